package proc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/Deeksh1tha/Energy-Audit/pkg/system/util"
	"github.com/Deeksh1tha/Energy-Audit/pkg/types"
)

// Sample is one measurement of a single process.
//
// CPUPercent is normalised against the machine's core count, so a process
// pegging one core of an 8-core host reads 12.5 and no process reads above 100.
// Network counters are cumulative since boot (as exposed by the kernel).
type Sample struct {
	PID        int         `json:"pid"`
	Name       string      `json:"name"`
	CPUPercent float64     `json:"cpu_percent"`
	MemoryMB   float64     `json:"memory_mb"`
	NetRxBytes types.Bytes `json:"net_rx_bytes"`
	NetTxBytes types.Bytes `json:"net_tx_bytes"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Handle wraps one OS process id.
type Handle struct {
	pid   int
	name  string
	nproc int
	ps    *process.Process

	mu      sync.Mutex
	prevCPU float64 // CPU seconds (user+system) at prevAt
	prevAt  time.Time
}

// Open attaches to pid. The CPU baseline is the process start time, so the
// first Sample reports the average share over the process lifetime instead
// of the few microseconds since Open. If the start time is unknown the
// baseline is Open itself.
func Open(ctx context.Context, pid int) (*Handle, error) {
	if !Exists(pid) {
		return nil, notFound(pid)
	}
	ps, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return nil, notFound(pid)
		}
		return nil, fmt.Errorf("proc: open %d: %w", pid, err)
	}

	h := &Handle{pid: pid, nproc: runtime.NumCPU(), ps: ps}
	h.name = h.readName(ctx)

	cpu, err := h.cpuSeconds(ctx)
	if err != nil {
		return nil, h.classify(err)
	}
	h.prevCPU, h.prevAt = cpu, time.Now()
	if ms, err := ps.CreateTimeWithContext(ctx); err == nil {
		if start := time.UnixMilli(ms); start.Before(h.prevAt) {
			h.prevCPU, h.prevAt = 0, start
		}
	}
	return h, nil
}

// PID returns the wrapped process id.
func (h *Handle) PID() int { return h.pid }

// Name returns the process name captured at Open.
func (h *Handle) Name() string { return h.name }

// Sample measures the process. It fails with ErrProcessNotFound once the
// process has exited.
func (h *Handle) Sample(ctx context.Context) (Sample, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	cpu, err := h.cpuSeconds(ctx)
	if err != nil {
		return Sample{}, h.classify(err)
	}
	rss, err := h.rssBytes(ctx)
	if err != nil {
		return Sample{}, h.classify(err)
	}

	elapsed := now.Sub(h.prevAt).Seconds()
	pct := util.ClampPercent(util.SafeDiv(cpu-h.prevCPU, float64(h.nproc)*elapsed) * 100)
	h.prevCPU, h.prevAt = cpu, now

	rx, tx := h.netCounters(ctx)
	return Sample{
		PID:        h.pid,
		Name:       h.name,
		CPUPercent: pct,
		MemoryMB:   types.ToBytes(rss).MB(),
		NetRxBytes: rx,
		NetTxBytes: tx,
		Timestamp:  now,
	}, nil
}

func (h *Handle) classify(err error) error {
	if errors.Is(err, ErrProcessNotFound) || errors.Is(err, process.ErrorProcessNotRunning) || !Exists(h.pid) {
		return notFound(h.pid)
	}
	return fmt.Errorf("proc: sample %d: %w", h.pid, err)
}

func notFound(pid int) error {
	return fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
}
