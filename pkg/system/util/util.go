package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EMA is an exponential moving average. The first value passes through.
type EMA struct {
	alpha, prev float64
	ok          bool
}

func NewEMA(alpha float64) *EMA { return &EMA{alpha: Clamp01(alpha)} }

func (e *EMA) Next(v float64) float64 {
	if !e.ok {
		e.prev, e.ok = v, true
		return v
	}
	e.prev = e.alpha*v + (1-e.alpha)*e.prev
	return e.prev
}

func DeltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	// counter wrapped or prev unset
	return 0
}

func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

// Clamp bounds x to [lo, hi]. NaN becomes lo.
func Clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func Clamp01(x float64) float64 { return Clamp(x, 0, 1) }

// ClampPercent bounds x to [0, 100].
func ClampPercent(x float64) float64 { return Clamp(x, 0, 100) }

// NonNegative returns max(0, x); NaN becomes 0.
func NonNegative(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	return x
}

// ParsePIDs accepts "PID" and inclusive "PID..PID" ranges, e.g.
// ["123", "200..203"]. Duplicates are dropped; order is preserved.
func ParsePIDs(args []string) ([]int, error) {
	var out []int
	seen := make(map[int]struct{})
	add := func(p int) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	for _, a := range args {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(a, ".."); ok {
			from, err1 := strconv.Atoi(lo)
			to, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil || from <= 0 || to < from {
				return nil, fmt.Errorf("invalid pid range %q", a)
			}
			if to-from > 1<<16 {
				return nil, fmt.Errorf("pid range %q too wide", a)
			}
			for p := from; p <= to; p++ {
				add(p)
			}
			continue
		}
		p, err := strconv.Atoi(a)
		if err != nil || p <= 0 {
			return nil, fmt.Errorf("invalid pid %q", a)
		}
		add(p)
	}
	return out, nil
}
