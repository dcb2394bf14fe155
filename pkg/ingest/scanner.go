package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Deeksh1tha/Energy-Audit/pkg/registry"
)

// Scanner is the durable path: it reconciles the pid directory into the
// registry, merging a service's pids only when its on-disk set differs from
// the last set merged for it.
type Scanner struct {
	dir string
	reg *registry.Registry
	log *slog.Logger

	mu   sync.Mutex
	seen map[string][]int
}

// NewScanner scans dir for PID files. A nil logger uses slog.Default.
func NewScanner(dir string, reg *registry.Registry, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		dir:  dir,
		reg:  reg,
		log:  logger.With("component", "ingest", "dir", dir),
		seen: make(map[string][]int),
	}
}

// Scan reads every *.json in the directory once and returns how many
// targets were new to the registry. A missing directory is not an error.
// Per-file failures are logged, joined into the returned error, and leave
// that service's last-seen state untouched.
func (s *Scanner) Scan() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}

	var (
		added int
		errs  []error
	)
	for _, e := range entries {
		name := e.Name()
		// temp files from in-flight writes start with a dot
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		f, err := ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			s.log.Warn("skipping pid file", "file", name, "err", err)
			errs = append(errs, err)
			continue
		}
		if slices.Equal(s.seen[f.Service], f.PIDs) {
			continue
		}
		n := 0
		for _, pid := range f.PIDs {
			if s.reg.Add(registry.Target{Service: f.Service, PID: pid}) {
				n++
			}
		}
		s.seen[f.Service] = f.PIDs
		added += n
		s.log.Info("merged pid file", "service", f.Service, "pids", f.PIDs, "new", n)
	}
	return added, errors.Join(errs...)
}

// Run scans once, then every interval until ctx is done. interval <= 0 means
// the startup scan only.
func (s *Scanner) Run(ctx context.Context, every time.Duration) {
	if _, err := s.Scan(); err != nil {
		s.log.Warn("scan", "err", err)
	}
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Scan(); err != nil {
				s.log.Warn("scan", "err", err)
			}
		}
	}
}
