//go:build !linux

package proc

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
)

// cpuMeter relies on gopsutil's interval-less Percent, which reports
// utilisation since the previous call.
type cpuMeter struct{}

func newCPUMeter() (*cpuMeter, error) {
	if _, err := cpu.Percent(0, false); err != nil {
		return nil, err
	}
	return &cpuMeter{}, nil
}

func (m *cpuMeter) percent(ctx context.Context) (float64, error) {
	v, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, ErrNoCPU
	}
	return v[0], nil
}
