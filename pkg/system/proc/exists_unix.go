//go:build !windows

package proc

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Exists reports whether a process with the given PID is alive.
// A zero signal performs the permission and existence checks without
// delivering anything; EPERM means the process exists but belongs to
// another user.
func Exists(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
