// Package store keeps the per-process metric time series and the
// system-wide efficiency series.
//
// The store has a single writer (the attribution engine) and any number of
// readers. Series only grow; each append takes the series lock for the
// duration of one tick, and readers copy the requested window under the read
// lock, so a read always observes a consistent prefix.
//
// Readers request explicit index windows (Range). The store keeps no
// per-consumer state; a Cursor does that bookkeeping on the consumer side.
package store

import (
	"fmt"
	"slices"
	"sync"
)

// Store holds one Series per recorded PID. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	series map[int]*Series

	effMu sync.RWMutex
	eff   []float64
}

// New returns an empty store.
func New() *Store { return &Store{series: make(map[int]*Series)} }

// Ensure creates the series for pid on first observation and reports whether
// it did. An existing series keeps its original service and display name.
func (s *Store) Ensure(pid int, service, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.series[pid]; ok {
		return false
	}
	s.series[pid] = newSeries(pid, service, name)
	return true
}

// Record appends one tick to pid's series.
func (s *Store) Record(pid int, p Point) error {
	se, ok := s.get(pid)
	if !ok {
		return fmt.Errorf("%w: pid %d", ErrUnknownSeries, pid)
	}
	se.append(p)
	return nil
}

// Last returns the most recent point of pid's series.
func (s *Store) Last(pid int) (Point, bool) {
	se, ok := s.get(pid)
	if !ok {
		return Point{}, false
	}
	return se.last()
}

// Read returns the window r of pid's series.
func (s *Store) Read(pid int, r Range) (Projection, error) {
	se, ok := s.get(pid)
	if !ok {
		return Projection{}, fmt.Errorf("%w: pid %d", ErrUnknownSeries, pid)
	}
	return se.project(r), nil
}

// ReadAll applies r to every series.
func (s *Store) ReadAll(r Range) map[int]Projection {
	out := make(map[int]Projection)
	for _, se := range s.all() {
		out[se.pid] = se.project(r)
	}
	return out
}

// Info returns the service and display name pid's series was created with.
func (s *Store) Info(pid int) (service, name string, ok bool) {
	se, ok := s.get(pid)
	if !ok {
		return "", "", false
	}
	return se.service, se.name, true
}

// Len returns the number of ticks recorded for pid (0 when unknown).
func (s *Store) Len(pid int) int {
	se, ok := s.get(pid)
	if !ok {
		return 0
	}
	return se.len()
}

// PIDs returns the observed pids in ascending order.
func (s *Store) PIDs() []int {
	s.mu.RLock()
	out := make([]int, 0, len(s.series))
	for pid := range s.series {
		out = append(out, pid)
	}
	s.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Remove drops pid's series. Cumulative counters restart from zero if the
// pid is observed again.
func (s *Store) Remove(pid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.series[pid]; !ok {
		return false
	}
	delete(s.series, pid)
	return true
}

// AppendEfficiency adds one system efficiency index value.
func (s *Store) AppendEfficiency(v float64) {
	s.effMu.Lock()
	s.eff = append(s.eff, v)
	s.effMu.Unlock()
}

// Efficiency returns a copy of the window r of the efficiency series and
// the index of its first value after clamping r to the series.
func (s *Store) Efficiency(r Range) (values []float64, start int) {
	s.effMu.RLock()
	defer s.effMu.RUnlock()
	lo, hi := r.bounds(len(s.eff))
	return slices.Clone(s.eff[lo:hi]), lo
}

// EfficiencyLen is the number of efficiency values recorded.
func (s *Store) EfficiencyLen() int {
	s.effMu.RLock()
	defer s.effMu.RUnlock()
	return len(s.eff)
}

func (s *Store) get(pid int) (*Series, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	se, ok := s.series[pid]
	return se, ok
}

// all copies the series pointers so callers iterate without the map lock.
func (s *Store) all() []*Series {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Series, 0, len(s.series))
	for _, se := range s.series {
		out = append(out, se)
	}
	return out
}
