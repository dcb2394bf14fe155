package exporter

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deeksh1tha/Energy-Audit/pkg/consumption"
	"github.com/Deeksh1tha/Energy-Audit/pkg/store"
)

type fixedTotals consumption.Totals

func (f fixedTotals) Totals() consumption.Totals { return consumption.Totals(f) }

func gather(t *testing.T, c prometheus.Collector) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	mfs, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

func labels(m *dto.Metric) map[string]string {
	out := make(map[string]string)
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func TestCollector_LastPointPerSeries(t *testing.T) {
	st := store.New()
	st.Ensure(4242, "render", "blender")
	require.NoError(t, st.Record(4242, store.Point{CPU: 20, MemoryMB: 100, PowerW: 4, EnergyJ: 4, CarbonG: 0.5, Timestamp: time.Now()}))
	require.NoError(t, st.Record(4242, store.Point{CPU: 40, MemoryMB: 110, PowerW: 6, EnergyJ: 10, CarbonG: 1.2, Timestamp: time.Now()}))
	st.Ensure(7, "api", "node")
	require.NoError(t, st.Record(7, store.Point{CPU: 1, EnergyJ: 0.1}))
	st.AppendEfficiency(450)
	st.AppendEfficiency(720)

	mfs := gather(t, New(st, fixedTotals{Ticks: 2, SystemJoules: 22, AttributedJ: 10.1}))

	energy := mfs["energy_consumption"]
	require.NotNil(t, energy)
	require.Len(t, energy.GetMetric(), 2)
	for _, m := range energy.GetMetric() {
		l := labels(m)
		switch l["pid"] {
		case "4242":
			assert.Equal(t, "render", l["service"])
			assert.Equal(t, 10.0, m.GetGauge().GetValue())
		case "7":
			assert.Equal(t, "api", l["service"])
			assert.Equal(t, 0.1, m.GetGauge().GetValue())
		default:
			t.Errorf("unexpected pid label %q", l["pid"])
		}
	}

	for _, name := range []string{"cpu_usage", "mem_usage", "power_usage", "carbon_emissions"} {
		require.Contains(t, mfs, name)
		assert.Len(t, mfs[name].GetMetric(), 2, name)
	}

	require.Contains(t, mfs, "efficiency_index")
	assert.Equal(t, 720.0, mfs["efficiency_index"].GetMetric()[0].GetGauge().GetValue())

	require.Contains(t, mfs, "energyaudit_ticks_total")
	assert.Equal(t, 2.0, mfs["energyaudit_ticks_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 22.0, mfs["energyaudit_system_energy_joules_total"].GetMetric()[0].GetCounter().GetValue())
}

func TestCollector_EmptyStore(t *testing.T) {
	mfs := gather(t, New(store.New(), nil))
	assert.Empty(t, mfs)
}

func TestCollector_ScrapeDoesNotReset(t *testing.T) {
	st := store.New()
	st.Ensure(1, "s", "p")
	require.NoError(t, st.Record(1, store.Point{EnergyJ: 5}))
	c := New(st, nil)

	for i := 0; i < 3; i++ {
		mfs := gather(t, c)
		assert.Equal(t, 5.0, mfs["energy_consumption"].GetMetric()[0].GetGauge().GetValue())
	}
}
