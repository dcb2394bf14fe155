// Package exporter publishes the latest value of every series as
// Prometheus gauges. Values are read from the store at scrape time, so the
// exporter holds no state of its own and never resets the cumulative figures.
package exporter

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Deeksh1tha/Energy-Audit/pkg/consumption"
	"github.com/Deeksh1tha/Energy-Audit/pkg/store"
)

// TotalsSource is implemented by *consumption.Engine.
type TotalsSource interface {
	Totals() consumption.Totals
}

// Collector is a prometheus.Collector over a store.Store.
type Collector struct {
	store  *store.Store
	totals TotalsSource

	cpu, mem, power, energy, carbon *prometheus.Desc
	efficiency                      *prometheus.Desc
	ticks, systemJ, attributedJ     *prometheus.Desc
}

// New builds a collector. totals may be nil.
func New(st *store.Store, totals TotalsSource) *Collector {
	labels := []string{"pid", "service"}
	return &Collector{
		store:  st,
		totals: totals,

		cpu:    prometheus.NewDesc("cpu_usage", "CPU usage (% of the machine).", labels, nil),
		mem:    prometheus.NewDesc("mem_usage", "Resident memory (MB).", labels, nil),
		power:  prometheus.NewDesc("power_usage", "Attributed power over the last tick (W).", labels, nil),
		energy: prometheus.NewDesc("energy_consumption", "Cumulative attributed energy (J).", labels, nil),
		carbon: prometheus.NewDesc("carbon_emissions", "Cumulative attributed emissions (gCO2).", labels, nil),

		efficiency: prometheus.NewDesc("efficiency_index", "System efficiency index of the last tick; lower is better.", nil, nil),

		ticks:       prometheus.NewDesc("energyaudit_ticks_total", "Attribution ticks run.", nil, nil),
		systemJ:     prometheus.NewDesc("energyaudit_system_energy_joules_total", "Energy read from the source (J).", nil, nil),
		attributedJ: prometheus.NewDesc("energyaudit_attributed_energy_joules_total", "Energy attributed to targets (J).", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{c.cpu, c.mem, c.power, c.energy, c.carbon, c.efficiency} {
		ch <- d
	}
	if c.totals != nil {
		ch <- c.ticks
		ch <- c.systemJ
		ch <- c.attributedJ
	}
}

// Collect implements prometheus.Collector. It reads the latest tick of every series.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, pid := range c.store.PIDs() {
		last, ok := c.store.Last(pid)
		if !ok {
			continue
		}
		service, _, _ := c.store.Info(pid)
		lv := []string{strconv.Itoa(pid), service}

		ch <- prometheus.MustNewConstMetric(c.cpu, prometheus.GaugeValue, last.CPU, lv...)
		ch <- prometheus.MustNewConstMetric(c.mem, prometheus.GaugeValue, last.MemoryMB, lv...)
		ch <- prometheus.MustNewConstMetric(c.power, prometheus.GaugeValue, last.PowerW, lv...)
		ch <- prometheus.MustNewConstMetric(c.energy, prometheus.GaugeValue, last.EnergyJ, lv...)
		ch <- prometheus.MustNewConstMetric(c.carbon, prometheus.GaugeValue, last.CarbonG, lv...)
	}

	if n := c.store.EfficiencyLen(); n > 0 {
		if v, _ := c.store.Efficiency(store.Since(n - 1)); len(v) == 1 {
			ch <- prometheus.MustNewConstMetric(c.efficiency, prometheus.GaugeValue, v[0])
		}
	}

	if c.totals != nil {
		t := c.totals.Totals()
		ch <- prometheus.MustNewConstMetric(c.ticks, prometheus.CounterValue, float64(t.Ticks))
		ch <- prometheus.MustNewConstMetric(c.systemJ, prometheus.CounterValue, t.SystemJoules)
		ch <- prometheus.MustNewConstMetric(c.attributedJ, prometheus.CounterValue, t.AttributedJ)
	}
}
