package store

// Range selects the half-open index window [Start, End) of a series.
// End < 0 means "up to the current length". Out-of-bounds values clamp, so
// a Range is valid against a series of any length.
type Range struct {
	Start int
	End   int
}

// Full selects the whole series.
func Full() Range { return Range{Start: 0, End: -1} }

// Since selects everything from index k onwards.
func Since(k int) Range { return Range{Start: k, End: -1} }

func (r Range) bounds(n int) (lo, hi int) {
	hi = r.End
	if hi < 0 || hi > n {
		hi = n
	}
	lo = r.Start
	if lo < 0 {
		lo = 0
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}
