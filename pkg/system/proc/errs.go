package proc

import "errors"

var (
	// ErrProcessNotFound indicates the OS process has exited (or was never there).
	// Callers treat it as "stop tracking", not as a failure.
	ErrProcessNotFound = errors.New("proc: process not found")

	// ErrSampleTimeout indicates a sample did not complete within its deadline.
	// The sample is dropped for this tick; the process is not considered gone.
	ErrSampleTimeout = errors.New("proc: sample timed out")

	// ErrNoStat indicates that /proc/<pid>/stat was empty or malformed.
	ErrNoStat = errors.New("proc: malformed or empty stat")

	// ErrShortStat indicates that /proc/<pid>/stat had fewer fields than expected.
	ErrShortStat = errors.New("proc: short stat")

	// ErrNoRSS indicates that resident set size could not be determined
	// (neither smaps_rollup nor statm succeeded).
	ErrNoRSS = errors.New("proc: no rss")

	// ErrNoCPU indicates that /proc/stat had no aggregate CPU line.
	ErrNoCPU = errors.New("proc: no cpu line")
)
