//go:build !linux

package proc

import (
	"context"
	"slices"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/Deeksh1tha/Energy-Audit/pkg/types"
)

func (h *Handle) readName(ctx context.Context) string {
	name, err := h.ps.NameWithContext(ctx)
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}

func (h *Handle) cpuSeconds(ctx context.Context) (float64, error) {
	if status, err := h.ps.StatusWithContext(ctx); err == nil && slices.Contains(status, process.Zombie) {
		return 0, ErrProcessNotFound
	}
	t, err := h.ps.TimesWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return t.User + t.System, nil
}

func (h *Handle) rssBytes(ctx context.Context) (uint64, error) {
	mi, err := h.ps.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, err
	}
	if mi == nil {
		return 0, ErrNoRSS
	}
	return mi.RSS, nil
}

// gopsutil has no per-process network accounting outside Linux.
func (h *Handle) netCounters(context.Context) (rx, tx types.Bytes) { return 0, 0 }
