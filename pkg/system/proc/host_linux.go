//go:build linux

package proc

import (
	"context"

	"github.com/Deeksh1tha/Energy-Audit/pkg/system/util"
)

// cpuMeter derives utilisation from /proc/stat jiffy deltas.
type cpuMeter struct {
	activePrev uint64
	totalPrev  uint64
}

func newCPUMeter() (*cpuMeter, error) {
	active, total, err := ReadSystemCPU()
	if err != nil {
		return nil, err
	}
	return &cpuMeter{activePrev: active, totalPrev: total}, nil
}

func (m *cpuMeter) percent(context.Context) (float64, error) {
	active, total, err := ReadSystemCPU()
	if err != nil {
		return 0, err
	}
	dActive := util.DeltaU64(active, m.activePrev)
	dTotal := util.DeltaU64(total, m.totalPrev)
	m.activePrev, m.totalPrev = active, total
	return util.SafeDiv(float64(dActive), float64(dTotal)) * 100, nil
}
