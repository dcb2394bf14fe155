//go:build linux

package proc

import (
	"context"

	"github.com/prometheus/procfs"

	"github.com/Deeksh1tha/Energy-Audit/pkg/types"
)

// On Linux the handle reads /proc directly; gopsutil is only used for the
// process start time.

func (h *Handle) readName(context.Context) string {
	st, err := ReadProcStat(h.pid)
	if err != nil {
		return "unknown"
	}
	return st.Comm
}

func (h *Handle) cpuSeconds(context.Context) (float64, error) {
	st, err := ReadProcStat(h.pid)
	if err != nil {
		return 0, err
	}
	if st.Zombie() {
		return 0, ErrProcessNotFound
	}
	return float64(st.UTime+st.STime) / float64(ClockTicks()), nil
}

func (h *Handle) rssBytes(context.Context) (uint64, error) {
	return ReadProcRSS(h.pid)
}

// netCounters sums /proc/<pid>/net/dev over every interface but loopback.
// These are totals of the process's network namespace, shared by every
// process in it, not traffic of this process alone. Read failures give zeros.
func (h *Handle) netCounters(context.Context) (rx, tx types.Bytes) {
	p, err := procfs.NewProc(h.pid)
	if err != nil {
		return 0, 0
	}
	dev, err := p.NetDev()
	if err != nil {
		return 0, 0
	}
	for name, line := range dev {
		if name == "lo" {
			continue
		}
		rx += types.ToBytes(line.RxBytes)
		tx += types.ToBytes(line.TxBytes)
	}
	return rx, tx
}
