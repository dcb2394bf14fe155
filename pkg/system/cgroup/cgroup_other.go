//go:build !linux

package cgroup

import "errors"

var ErrNotFound = errors.New("cgroup: not found")

type Version int

const Unsupported Version = 0

func (Version) String() string { return "unsupported" }

func Detect() (Version, string, error) { return Unsupported, "no cgroups on this platform", nil }

func Procs(path string) ([]int, error) { return nil, ErrNotFound }
