//go:build linux

// Package cgroup finds cgroup mounts and lists the processes of a cgroup,
// so a service running as a systemd unit or container can be registered by
// its cgroup path instead of by pid.
package cgroup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/prometheus/procfs"
)

// ErrNotFound indicates no mounted hierarchy has the requested cgroup.
var ErrNotFound = errors.New("cgroup: not found")

type Version int

const (
	Unsupported Version = iota // no cgroup mounts
	V1                         // legacy multi-hierarchy cgroup v1
	V2                         // unified cgroup v2
	Hybrid                     // both v1 and v2 present
)

func (v Version) String() string {
	switch v {
	case V1:
		return "cgroup v1"
	case V2:
		return "cgroup v2"
	case Hybrid:
		return "cgroup hybrid"
	default:
		return "unsupported"
	}
}

// Mounts holds cgroup mount points, unified hierarchy first.
type Mounts struct {
	V2 []string
	V1 []string
}

func (m Mounts) Version() Version {
	switch {
	case len(m.V1) > 0 && len(m.V2) > 0:
		return Hybrid
	case len(m.V2) > 0:
		return V2
	case len(m.V1) > 0:
		return V1
	default:
		return Unsupported
	}
}

func (m Mounts) String() string {
	switch m.Version() {
	case Hybrid:
		return fmt.Sprintf("cgroup2 on %s; cgroup v1 on %s", strings.Join(m.V2, ","), strings.Join(m.V1, ","))
	case V2:
		return "cgroup2 on " + strings.Join(m.V2, ",")
	case V1:
		return "cgroup v1 on " + strings.Join(m.V1, ",")
	default:
		return "no cgroup mounts found"
	}
}

// ReadMounts parses /proc/self/mountinfo.
func ReadMounts() (Mounts, error) {
	infos, err := procfs.GetMounts()
	if err != nil {
		return Mounts{}, fmt.Errorf("cgroup: mountinfo: %w", err)
	}
	var m Mounts
	for _, mi := range infos {
		switch mi.FSType {
		case "cgroup2":
			m.V2 = append(m.V2, mi.MountPoint)
		case "cgroup":
			m.V1 = append(m.V1, mi.MountPoint)
		}
	}
	return m, nil
}

// Detect returns the cgroup version and a human-readable description.
func Detect() (Version, string, error) {
	m, err := ReadMounts()
	if err != nil {
		return Unsupported, "", err
	}
	return m.Version(), m.String(), nil
}

// Procs lists the sorted pids directly in the cgroup at path (for example
// "/system.slice/nginx.service"), looking it up under each mount.
func Procs(path string) ([]int, error) {
	m, err := ReadMounts()
	if err != nil {
		return nil, err
	}
	return m.Procs(path)
}

// Procs resolves path under the unified hierarchy first, then under each v1
// hierarchy, and reads the first cgroup.procs found.
func (m Mounts) Procs(path string) ([]int, error) {
	rel := filepath.Clean("/" + path)
	for _, mp := range append(append([]string(nil), m.V2...), m.V1...) {
		f, err := os.Open(filepath.Join(mp, rel, "cgroup.procs"))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cgroup: %s: %w", rel, err)
		}
		pids, err := ParseProcs(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("cgroup: %s: %w", rel, err)
		}
		return pids, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
}

// ParseProcs reads one pid per line, as in cgroup.procs. The result is
// sorted and free of duplicates.
func ParseProcs(r io.Reader) ([]int, error) {
	var out []int
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil || pid <= 0 {
			return nil, fmt.Errorf("bad pid %q", line)
		}
		out = append(out, pid)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
