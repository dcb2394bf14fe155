// Package registry holds the set of (service, pid) targets under tracking.
//
// Every operation takes the registry mutex for a short, I/O-free critical
// section. Readers iterate over a Snapshot copy, never over the live set, so
// the attribution loop and the ingest paths never block one another.
package registry

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// Target identifies one process under observation.
type Target struct {
	Service string `json:"service"`
	PID     int    `json:"pid"`
}

func (t Target) String() string { return fmt.Sprintf("%s/%d", t.Service, t.PID) }

// Registry is a thread-safe set of targets. The zero value is ready to use.
type Registry struct {
	mu  sync.Mutex
	set map[Target]struct{}
}

// New returns an empty registry.
func New() *Registry { return &Registry{set: make(map[Target]struct{})} }

// Add inserts t and reports whether it was new. Adding a present target is a no-op.
func (r *Registry) Add(t Target) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.set == nil {
		r.set = make(map[Target]struct{})
	}
	if _, ok := r.set[t]; ok {
		return false
	}
	r.set[t] = struct{}{}
	return true
}

// Remove deletes t and reports whether it was present.
func (r *Registry) Remove(t Target) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.set[t]; !ok {
		return false
	}
	delete(r.set, t)
	return true
}

// RemovePID deletes every target with the given pid, whatever its service,
// and returns the removed targets.
func (r *Registry) RemovePID(pid int) []Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Target
	for t := range r.set {
		if t.PID == pid {
			delete(r.set, t)
			out = append(out, t)
		}
	}
	sortTargets(out)
	return out
}

func (r *Registry) Contains(t Target) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.set[t]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.set)
}

// Snapshot returns a point-in-time copy ordered by pid, then service.
func (r *Registry) Snapshot() []Target {
	r.mu.Lock()
	out := make([]Target, 0, len(r.set))
	for t := range r.set {
		out = append(out, t)
	}
	r.mu.Unlock()

	sortTargets(out)
	return out
}

func sortTargets(ts []Target) {
	slices.SortFunc(ts, func(a, b Target) int {
		if c := cmp.Compare(a.PID, b.PID); c != 0 {
			return c
		}
		return cmp.Compare(a.Service, b.Service)
	})
}
