package consumption

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Deeksh1tha/Energy-Audit/pkg/carbon"
	"github.com/Deeksh1tha/Energy-Audit/pkg/energy"
	"github.com/Deeksh1tha/Energy-Audit/pkg/registry"
	"github.com/Deeksh1tha/Energy-Audit/pkg/store"
	"github.com/Deeksh1tha/Energy-Audit/pkg/system/proc"
	"github.com/Deeksh1tha/Energy-Audit/pkg/system/util"
)

// Handle is a sampled process. *proc.Handle satisfies it.
type Handle interface {
	PID() int
	Name() string
	Sample(ctx context.Context) (proc.Sample, error)
}

// HostSampler yields whole-machine utilisation. *proc.HostSampler satisfies it.
type HostSampler interface {
	Sample(ctx context.Context) (proc.HostSample, error)
}

// Opener attaches to a pid. It must fail with proc.ErrProcessNotFound when
// the process does not exist.
type Opener func(ctx context.Context, pid int) (Handle, error)

// OpenProcess is the default Opener.
func OpenProcess(ctx context.Context, pid int) (Handle, error) {
	h, err := proc.Open(ctx, pid)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Deps are the engine's collaborators. Registry, Store and Host are required.
type Deps struct {
	Registry  *registry.Registry
	Store     *store.Store
	Source    energy.Source     // nil: energy.Null
	Host      HostSampler
	Intensity *carbon.Intensity // nil: zero intensity
	Open      Opener            // nil: OpenProcess
	Logger    *slog.Logger      // nil: slog.Default()
}

// Attribution is one target's share of one tick.
type Attribution struct {
	Target  registry.Target `json:"target"`
	Sample  proc.Sample     `json:"sample"`
	Scaling float64         `json:"scaling_factor"`
	Joules  float64         `json:"joules"`   // attributed this tick
	PowerW  float64         `json:"power_w"`  // Joules / interval
	EnergyJ float64         `json:"energy_j"` // cumulative
	CarbonG float64         `json:"carbon_g"` // cumulative
}

// TickResult reports what one tick did.
type TickResult struct {
	At             time.Time
	IntervalJoules float64 // clamped to >= 0; 0 when the source failed
	HostCPU        float64
	HostMem        float64
	Efficiency     float64
	Attributions   []Attribution
	Exited         []registry.Target // removed from the registry this tick
	TimedOut       []registry.Target // sample dropped, still tracked
	Failed         []registry.Target // sample error other than exit or timeout
	EnergyErr      error
}

// Engine is the attribution loop. Ticks are strictly sequential; all appends
// within one tick share the same energy reading, host sample and intensity.
type Engine struct {
	cfg       Config
	reg       *registry.Registry
	store     *store.Store
	source    energy.Source
	host      HostSampler
	intensity *carbon.Intensity
	open      Opener
	log       *slog.Logger

	mu      sync.Mutex // one tick at a time; guards handles, exited and acc
	handles map[int]Handle
	exited  map[int]struct{} // series kept after exit; replaced if the pid returns
	acc     Accumulator
}

// New builds an engine. Fields of cfg that are unset (see merge) take the defaults.
func New(cfg *Config, d Deps) (*Engine, error) {
	if d.Registry == nil || d.Store == nil || d.Host == nil {
		return nil, fmt.Errorf("%w: registry, store and host sampler are required", ErrMissingDependency)
	}
	e := &Engine{
		cfg:       merge(cfg),
		reg:       d.Registry,
		store:     d.Store,
		source:    d.Source,
		host:      d.Host,
		intensity: d.Intensity,
		open:      d.Open,
		log:       d.Logger,
		handles:   make(map[int]Handle),
		exited:    make(map[int]struct{}),
	}
	if e.source == nil {
		e.source = energy.Null{}
	}
	if e.intensity == nil {
		e.intensity = &carbon.Intensity{}
	}
	if e.open == nil {
		e.open = OpenProcess
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	e.log = e.log.With("component", "engine")
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Totals returns the running totals across all ticks so far.
func (e *Engine) Totals() Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acc.Totals()
}

// Run ticks every cfg.Interval until ctx is done. A tick in progress when
// ctx is cancelled runs to completion.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("attribution loop started",
		"interval", e.cfg.Interval, "source", e.source.Name(),
		"cap", e.cfg.Cap, "capped", !e.cfg.DisableCap, "carbon", !e.cfg.DisableCarbon)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("attribution loop stopped", "ticks", e.Totals().Ticks)
			return nil
		case <-ticker.C:
			r := e.Tick(context.WithoutCancel(ctx))
			e.log.Debug("tick",
				"joules", r.IntervalJoules, "host_cpu", r.HostCPU, "host_mem", r.HostMem,
				"targets", len(r.Attributions), "exited", len(r.Exited), "timed_out", len(r.TimedOut))
		}
	}
}

// group is one pid's targets for a tick. The first target owns the series.
type group struct {
	pid     int
	targets []registry.Target
	handle  Handle
}

type outcome struct {
	sample proc.Sample
	err    error
}

// Tick runs one attribution step.
func (e *Engine) Tick(ctx context.Context) TickResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := TickResult{At: time.Now()}

	// 1. snapshot, grouped by pid so shared pids are sampled once
	groups := e.groups(e.reg.Snapshot())

	// 2. obtain handles; a pid that cannot be opened because it is gone is deregistered
	live := groups[:0]
	for _, g := range groups {
		h, ok := e.handles[g.pid]
		if !ok {
			var err error
			h, err = e.open(ctx, g.pid)
			if err != nil {
				if errors.Is(err, proc.ErrProcessNotFound) {
					res.Exited = append(res.Exited, e.exit(g.pid)...)
					continue
				}
				e.log.Warn("open process", "pid", g.pid, "err", err)
				res.Failed = append(res.Failed, g.targets...)
				continue
			}
			e.handles[g.pid] = h
			if _, ok := e.exited[g.pid]; ok {
				delete(e.exited, g.pid)
				e.store.Remove(g.pid)
			}
		}
		g.handle = h
		live = append(live, g)
	}

	// 3. one energy reading and one host sample for the whole tick
	joules, err := e.readEnergy(ctx)
	if err != nil {
		res.EnergyErr = err
		e.log.Warn("energy reading unavailable, tick energy treated as zero", "source", e.source.Name(), "err", err)
	}
	res.IntervalJoules = joules

	hs, err := e.host.Sample(ctx)
	if err != nil {
		e.log.Warn("host sample", "err", err)
	}
	res.HostCPU, res.HostMem = hs.CPUPercent, hs.MemPercent

	// 4-5. sample every live pid concurrently, then attribute in pid order
	outs := e.sampleAll(ctx, live)
	gPerKWh := e.intensity.Load()
	dt := e.cfg.Interval.Seconds()

	for i, g := range live {
		o := outs[i]
		switch {
		case errors.Is(o.err, proc.ErrProcessNotFound):
			res.Exited = append(res.Exited, e.exit(g.pid)...)
			continue
		case errors.Is(o.err, proc.ErrSampleTimeout):
			e.log.Warn("sample timed out, dropped for this tick", "pid", g.pid, "timeout", e.cfg.SampleTimeout)
			res.TimedOut = append(res.TimedOut, g.targets...)
			continue
		case o.err != nil:
			e.log.Warn("sample", "pid", g.pid, "err", o.err)
			res.Failed = append(res.Failed, g.targets...)
			continue
		}

		owner := g.targets[0]
		e.store.Ensure(g.pid, owner.Service, g.handle.Name())
		last, _ := e.store.Last(g.pid)

		sf := ScalingFactor(o.sample.CPUPercent, hs.CPUPercent, e.cfg.Cap, !e.cfg.DisableCap)
		j := sf * joules
		at := Attribution{
			Target:  owner,
			Sample:  o.sample,
			Scaling: sf,
			Joules:  j,
			PowerW:  util.SafeDiv(j, dt),
			EnergyJ: last.EnergyJ + j,
			CarbonG: last.CarbonG,
		}
		if !e.cfg.DisableCarbon {
			at.CarbonG += carbon.Grams(j, gPerKWh)
		}

		if err := e.store.Record(g.pid, store.Point{
			CPU:       o.sample.CPUPercent,
			MemoryMB:  o.sample.MemoryMB,
			PowerW:    at.PowerW,
			EnergyJ:   at.EnergyJ,
			CarbonG:   at.CarbonG,
			NetRx:     o.sample.NetRxBytes,
			NetTx:     o.sample.NetTxBytes,
			Timestamp: o.sample.Timestamp,
		}); err != nil {
			// only possible if the series was removed concurrently by Untrack,
			// which holds e.mu, so this is a programming error
			e.log.Error("record", "pid", g.pid, "err", err)
			continue
		}
		res.Attributions = append(res.Attributions, at)
	}

	// 6. system efficiency index
	res.Efficiency = EfficiencyIndex(hs.CPUPercent, hs.MemPercent, joules, e.cfg.WeightCPU, e.cfg.WeightMem)
	e.store.AppendEfficiency(res.Efficiency)

	e.acc.Apply(res)
	return res
}

// Untrack is the explicit caller removal: it deregisters t and, when no
// other service still tracks the pid, drops its series so cumulative
// counters restart if the pid is added again.
func (e *Engine) Untrack(t registry.Target) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.reg.Remove(t) {
		return false
	}
	for _, other := range e.reg.Snapshot() {
		if other.PID == t.PID {
			return true
		}
	}
	delete(e.handles, t.PID)
	delete(e.exited, t.PID)
	e.store.Remove(t.PID)
	e.log.Info("target untracked", "service", t.Service, "pid", t.PID)
	return true
}

func (e *Engine) groups(snap []registry.Target) []group {
	var out []group
	idx := make(map[int]int)
	for _, t := range snap {
		i, ok := idx[t.PID]
		if !ok {
			i = len(out)
			idx[t.PID] = i
			out = append(out, group{pid: t.PID})
		}
		out[i].targets = append(out[i].targets, t)
	}

	// handles for pids no longer tracked are released
	for pid := range e.handles {
		if _, ok := idx[pid]; !ok {
			delete(e.handles, pid)
		}
	}
	return out
}

// exit deregisters every target of pid. The series is kept for late readers
// until the pid is tracked again.
func (e *Engine) exit(pid int) []registry.Target {
	delete(e.handles, pid)
	e.exited[pid] = struct{}{}
	removed := e.reg.RemovePID(pid)
	for _, t := range removed {
		e.log.Info("process exited, target removed", "service", t.Service, "pid", t.PID)
	}
	return removed
}

func (e *Engine) readEnergy(ctx context.Context) (float64, error) {
	rd, err := e.source.Read(ctx)
	if err != nil {
		return 0, err
	}
	// counters that reset or wrap without a known range read negative
	return util.NonNegative(rd.Joules), nil
}

// sampleAll samples every group concurrently. Each sample is bounded by
// cfg.SampleTimeout; a sample that overruns reports proc.ErrSampleTimeout
// and its goroutine finishes in the background.
func (e *Engine) sampleAll(ctx context.Context, gs []group) []outcome {
	outs := make([]outcome, len(gs))
	var wg sync.WaitGroup
	for i, g := range gs {
		wg.Add(1)
		go func(i int, h Handle) {
			defer wg.Done()
			outs[i] = e.sampleOne(ctx, h)
		}(i, g.handle)
	}
	wg.Wait()
	return outs
}

func (e *Engine) sampleOne(ctx context.Context, h Handle) outcome {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.SampleTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		s, err := h.Sample(ctx)
		done <- outcome{sample: s, err: err}
	}()

	select {
	case o := <-done:
		if errors.Is(o.err, context.DeadlineExceeded) {
			o.err = fmt.Errorf("%w: pid %d", proc.ErrSampleTimeout, h.PID())
		}
		return o
	case <-ctx.Done():
		return outcome{err: fmt.Errorf("%w: pid %d", proc.ErrSampleTimeout, h.PID())}
	}
}
