// Package proc wraps single OS processes and the host for the attribution
// engine (see pkg/consumption).
//
// Overview
//
//   - Handle:
//     Open(ctx, pid) attaches to a process and seeds a CPU baseline.
//     Handle.Sample(ctx) returns a Sample with CPU share, resident memory
//     and network byte counters. Once the process has exited (or become a
//     zombie) Sample fails with ErrProcessNotFound; callers stop tracking
//     the pid rather than treating it as fatal.
//
//   - CPU normalisation:
//     CPUPercent = Δ(utime+stime) / (NumCPU × Δwall) × 100, clamped to [0,100].
//     A process pegging one core of an N-core host reads 100/N.
//
//   - HostSampler:
//     whole-machine CPU utilisation (optionally EMA-smoothed) and memory
//     utilisation, one HostSample per tick.
//
//   - Tree / Trees:
//     a root pid plus all live descendants (gopsutil Children), used by the
//     reporter to register a whole process tree under one service.
//
//   - Backends:
//
//   - Linux: /proc/<pid>/stat (utime+stime, comm, state),
//     /proc/<pid>/smaps_rollup or statm (RSS), /proc/stat (host CPU).
//
//   - Other platforms: gopsutil process and cpu packages.
//
//   - All platforms: gopsutil for per-process network counters and host
//     memory; golang.org/x/sys for the liveness probe (Exists).
//
//   - Errors (errs.go):
//     ErrProcessNotFound : the process is gone
//     ErrSampleTimeout   : a sample exceeded its deadline (caller-enforced)
//     ErrNoStat, ErrShortStat, ErrNoRSS, ErrNoCPU : malformed kernel files
package proc
