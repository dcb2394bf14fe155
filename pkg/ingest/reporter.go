package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Deeksh1tha/Energy-Audit/pkg/registry"
)

// Reporter is the launcher side: it publishes a service's pids over both
// paths. The file is always written first so a collector that is down (or
// not yet listening) still picks the pids up on its next scan.
type Reporter struct {
	Addr    string        // push endpoint, default DefaultAddr
	Dir     string        // pid directory, default DefaultPIDDir()
	Timeout time.Duration // push dial/write timeout
	Logger  *slog.Logger
}

// Report writes the pid file, then pushes. It fails only when neither path
// succeeded; a single failed path is logged.
func (r *Reporter) Report(ctx context.Context, service string, pids []int) error {
	addr, dir, log := r.Addr, r.Dir, r.Logger
	if addr == "" {
		addr = DefaultAddr
	}
	if dir == "" {
		dir = DefaultPIDDir()
	}
	if log == nil {
		log = slog.Default()
	}

	pids = normalize(pids)
	path, ferr := WriteFile(dir, PIDFile{Service: service, PIDs: pids, Timestamp: time.Now().UTC()})
	if ferr != nil {
		log.Warn("pid file write failed", "service", service, "err", ferr)
	}

	b := make(Batch, 0, len(pids))
	for _, pid := range pids {
		b = append(b, registry.Target{Service: service, PID: pid})
	}
	perr := Push(ctx, addr, b, r.Timeout)
	if perr != nil {
		log.Warn("push failed; collector will pick the pid file up on its next scan", "addr", addr, "err", perr)
	}

	if ferr != nil && perr != nil {
		return errors.Join(ferr, perr)
	}
	log.Info("reported", "service", service, "pids", pids, "file", path, "pushed", perr == nil)
	return nil
}
