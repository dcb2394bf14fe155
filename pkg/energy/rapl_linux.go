//go:build linux

package energy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/procfs/sysfs"
)

// RAPL sums the package-level powercap zones. Sub-zones (core, uncore,
// dram) are excluded: package already contains core and uncore.
type RAPL struct {
	mu    sync.Mutex
	zones []sysfs.RaplZone
	prev  []uint64
	at    time.Time
	total float64 // joules since NewRAPL
}

// NewRAPL discovers the package zones under root (normally /sys) and takes
// the baseline reading.
func NewRAPL(root string) (*RAPL, error) {
	fs, err := sysfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("%w: rapl: %v", ErrUnavailable, err)
	}
	all, err := sysfs.GetRaplZones(fs)
	if err != nil {
		return nil, fmt.Errorf("%w: rapl: %v", ErrUnavailable, err)
	}

	r := &RAPL{}
	for _, z := range all {
		if strings.HasPrefix(z.Name, "package") {
			r.zones = append(r.zones, z)
		}
	}
	if len(r.zones) == 0 {
		return nil, fmt.Errorf("%w: rapl: no package zones under %s", ErrUnavailable, root)
	}

	r.prev = make([]uint64, len(r.zones))
	for i, z := range r.zones {
		// energy_uj is root-only on most kernels; fail early rather than every tick
		if r.prev[i], err = z.GetEnergyMicrojoules(); err != nil {
			return nil, fmt.Errorf("%w: rapl: %s: %v", ErrUnavailable, z.Path, err)
		}
	}
	r.at = time.Now()
	return r, nil
}

func (r *RAPL) Name() string { return KindRAPL }
func (r *RAPL) Close() error { return nil }

// Read returns the joules consumed since the previous call. A counter that
// went backwards is unwrapped with the zone's max range when known;
// otherwise the negative delta is returned for the caller to clamp.
func (r *RAPL) Read(context.Context) (Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var uj float64
	for i, z := range r.zones {
		cur, err := z.GetEnergyMicrojoules()
		if err != nil {
			return Reading{}, fmt.Errorf("%w: rapl: %s: %v", ErrUnavailable, z.Path, err)
		}
		uj += counterDelta(cur, r.prev[i], z.MaxMicrojoules)
		r.prev[i] = cur
	}

	window := now.Sub(r.at)
	r.at = now
	j := uj / 1e6
	r.total += j

	rd := Reading{Joules: j, Window: window, Cumulative: []float64{r.total}}
	if s := window.Seconds(); s > 0 {
		rd.AvgPowerWatts = j / s
	}
	return rd, nil
}

// counterDelta returns cur-prev for a counter that wraps at limit.
func counterDelta(cur, prev, limit uint64) float64 {
	if cur >= prev {
		return float64(cur - prev)
	}
	if limit > 0 && prev <= limit {
		return float64(limit-prev) + float64(cur)
	}
	return float64(cur) - float64(prev)
}
