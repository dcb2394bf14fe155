//go:build linux

package proc

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/procfs"
)

// children maps every parent pid to its children from one pass over /proc.
// A nil map means the table could not be listed at all; a non-nil map with
// an error means some entries were unreadable. Processes that exit during
// the pass are skipped silently.
func children(ctx context.Context) (map[int][]int, error) {
	procs, err := procfs.AllProcs()
	if err != nil {
		return nil, err
	}
	kids := make(map[int][]int, len(procs))
	var errs []error
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return kids, err
		}
		st, err := p.Stat()
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) && Exists(p.PID) {
				errs = append(errs, fmt.Errorf("pid %d: %w", p.PID, err))
			}
			continue
		}
		kids[st.PPID] = append(kids[st.PPID], st.PID)
	}
	return kids, errors.Join(errs...)
}
