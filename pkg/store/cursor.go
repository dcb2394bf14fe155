package store

// Delta is what a Cursor produced since its previous call.
// Series only holds pids that gained ticks (every pid when Full is set).
type Delta struct {
	Full            bool               `json:"full"`
	Series          map[int]Projection `json:"series"`
	Efficiency      []float64          `json:"system_efficiency"`
	EfficiencyStart int                `json:"efficiency_start"`
}

// Empty reports whether the delta carries no new data. A Full delta is never empty.
func (d Delta) Empty() bool { return !d.Full && len(d.Series) == 0 && len(d.Efficiency) == 0 }

// Cursor remembers how far a consumer has read each series. It is not safe
// for concurrent use; give each consumer its own.
type Cursor struct {
	store   *Store
	seen    map[int]mark
	eff     int
	started bool
}

type mark struct {
	series *Series
	n      int
}

func (s *Store) NewCursor() *Cursor { return &Cursor{store: s, seen: make(map[int]mark)} }

// Next returns everything appended since the previous call. The first call
// returns the full contents and is tagged Full.
func (c *Cursor) Next() Delta {
	d := Delta{Full: !c.started, Series: make(map[int]Projection)}
	c.started = true

	live := make(map[int]struct{})
	for _, se := range c.store.all() {
		live[se.pid] = struct{}{}
		var from int
		// a pid removed and observed again has a new series; start it over
		if m, ok := c.seen[se.pid]; ok && m.series == se {
			from = m.n
		}
		p := se.project(Since(from))
		c.seen[se.pid] = mark{series: se, n: p.Start + p.Len()}
		if d.Full || p.Len() > 0 {
			d.Series[se.pid] = p
		}
	}
	for pid := range c.seen {
		if _, ok := live[pid]; !ok {
			delete(c.seen, pid)
		}
	}

	d.Efficiency, d.EfficiencyStart = c.store.Efficiency(Since(c.eff))
	c.eff = d.EfficiencyStart + len(d.Efficiency)
	return d
}
