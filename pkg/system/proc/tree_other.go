//go:build !linux

package proc

import (
	"context"
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// children maps every parent pid to its children from one listing of the
// process table. A nil map means the table could not be listed at all.
func children(ctx context.Context) (map[int][]int, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	kids := make(map[int][]int, len(procs))
	var errs []error
	for _, p := range procs {
		ppid, err := p.PpidWithContext(ctx)
		if err != nil {
			if Exists(int(p.Pid)) {
				errs = append(errs, fmt.Errorf("pid %d: %w", p.Pid, err))
			}
			continue
		}
		kids[int(ppid)] = append(kids[int(ppid)], int(p.Pid))
	}
	return kids, errors.Join(errs...)
}
