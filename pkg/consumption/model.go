package consumption

import (
	"time"

	"github.com/Deeksh1tha/Energy-Audit/pkg/system/util"
)

// Config holds the attribution parameters.
// Units:
//   - Interval/SampleTimeout: wall-clock durations
//   - Cap: maximum share of one tick's energy a single process can receive [0..1]
//   - WeightCPU/WeightMem: efficiency index weights, dimensionless
type Config struct {
	Interval      time.Duration
	SampleTimeout time.Duration
	Cap           float64
	DisableCap    bool // attribute cpu/avg without an upper bound
	DisableCarbon bool // report carbon as zero regardless of intensity
	WeightCPU     float64
	WeightMem     float64
}

// _defaultConfig returns a Config pre-filled with the reference behaviour:
// capped, carbon-aware, one tick per second.
func _defaultConfig() *Config {
	return &Config{
		Interval:      time.Second,
		SampleTimeout: 500 * time.Millisecond,
		Cap:           0.9, // max share of system energy per process
		WeightCPU:     0.5,
		WeightMem:     0.5,
	}
}

// merge overlays cfg on the defaults.
// Notes:
//   - Interval/SampleTimeout/Cap must be > 0 to override; Cap above 1 is ignored.
//   - SampleTimeout never exceeds Interval, so ticks cannot overlap.
//   - Weights: a zero weight is a valid choice, but both zero (or any negative)
//     is treated as unset.
func merge(cfg *Config) Config {
	merged := *_defaultConfig()
	if cfg == nil {
		return merged
	}

	if cfg.Interval > 0 {
		merged.Interval = cfg.Interval
	}
	if cfg.SampleTimeout > 0 {
		merged.SampleTimeout = cfg.SampleTimeout
	}
	if cfg.Cap > 0 && cfg.Cap <= 1 {
		merged.Cap = cfg.Cap
	}
	merged.DisableCap = cfg.DisableCap
	merged.DisableCarbon = cfg.DisableCarbon

	if cfg.WeightCPU >= 0 && cfg.WeightMem >= 0 && cfg.WeightCPU+cfg.WeightMem > 0 {
		merged.WeightCPU, merged.WeightMem = cfg.WeightCPU, cfg.WeightMem
	}

	if merged.SampleTimeout > merged.Interval {
		merged.SampleTimeout = merged.Interval
	}
	return merged
}

// ScalingFactor is a process's share of one tick's energy: its CPU percent
// over the whole-machine average, bounded to [0, limit] when capped. An idle
// machine (avg == 0) attributes nothing.
//
// With the cap, several near-saturated processes can together receive more
// than the tick's energy. That is a known approximation, not corrected here.
func ScalingFactor(cpuPercent, avgCPU, limit float64, capped bool) float64 {
	if avgCPU <= 0 {
		return 0
	}
	sf := cpuPercent / avgCPU
	if capped {
		return util.Clamp(sf, 0, limit)
	}
	return util.NonNegative(sf)
}

// EfficiencyIndex combines machine utilisation and the tick's energy into
// one scalar; lower is better.
//
//	index = (wCPU·avgCPU + wMem·memPercent) × joules
func EfficiencyIndex(avgCPU, memPercent, joules, wCPU, wMem float64) float64 {
	return (wCPU*avgCPU + wMem*memPercent) * util.NonNegative(joules)
}

// Accumulator keeps engine-wide running totals across ticks.
type Accumulator struct {
	ticks          int
	systemJ        float64 // all energy read from the source
	attributedJ    float64 // energy handed to targets
	sumEfficiency  float64
	energyFailures int
}

// Apply folds one tick into the totals.
func (a *Accumulator) Apply(r TickResult) {
	a.ticks++
	a.systemJ += r.IntervalJoules
	for _, at := range r.Attributions {
		a.attributedJ += at.Joules
	}
	a.sumEfficiency += r.Efficiency
	if r.EnergyErr != nil {
		a.energyFailures++
	}
}

// Totals is a snapshot of an Accumulator.
type Totals struct {
	Ticks          int     `json:"ticks"`
	SystemJoules   float64 `json:"system_joules"`
	AttributedJ    float64 `json:"attributed_joules"`
	AvgEfficiency  float64 `json:"avg_efficiency"`
	EnergyFailures int     `json:"energy_failures"`
}

func (a *Accumulator) Totals() Totals {
	return Totals{
		Ticks:          a.ticks,
		SystemJoules:   a.systemJ,
		AttributedJ:    a.attributedJ,
		AvgEfficiency:  util.SafeDiv(a.sumEfficiency, float64(a.ticks)),
		EnergyFailures: a.energyFailures,
	}
}
