package proc

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Deeksh1tha/Energy-Audit/pkg/system/util"
)

// HostSample is the whole-machine utilisation for one tick.
type HostSample struct {
	CPUPercent float64   `json:"cpu_percent"` // [0,100], averaged over all cores
	MemPercent float64   `json:"mem_percent"` // [0,100]
	Timestamp  time.Time `json:"timestamp"`
}

// HostSampler measures whole-machine CPU and memory utilisation. CPU is
// computed from counter deltas between calls, so the first Sample after
// NewHostSampler covers the time since construction.
//
// A HostSampler is not safe for concurrent use.
type HostSampler struct {
	cpu *cpuMeter
	ema *util.EMA
}

// NewHostSampler seeds the CPU baseline. alpha > 0 enables EMA smoothing of
// the CPU figure (helps avoid spikes when the tick interval is small).
func NewHostSampler(alpha float64) (*HostSampler, error) {
	m, err := newCPUMeter()
	if err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}
	h := &HostSampler{cpu: m}
	if alpha > 0 {
		h.ema = util.NewEMA(alpha)
	}
	return h, nil
}

func (h *HostSampler) Sample(ctx context.Context) (HostSample, error) {
	cpu, err := h.cpu.percent(ctx)
	if err != nil {
		return HostSample{}, fmt.Errorf("host: cpu: %w", err)
	}
	if h.ema != nil {
		cpu = h.ema.Next(cpu)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return HostSample{}, fmt.Errorf("host: memory: %w", err)
	}
	return HostSample{
		CPUPercent: util.ClampPercent(cpu),
		MemPercent: util.ClampPercent(vm.UsedPercent),
		Timestamp:  time.Now(),
	}, nil
}
