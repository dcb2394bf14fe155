package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Deeksh1tha/Energy-Audit/pkg/ingest"
	"github.com/Deeksh1tha/Energy-Audit/pkg/system/cgroup"
	"github.com/Deeksh1tha/Energy-Audit/pkg/system/proc"
	"github.com/Deeksh1tha/Energy-Audit/pkg/system/util"
)

type reportOpts struct {
	name       string
	tree       bool
	cgroups    []string
	watch      bool
	interval   time.Duration
	timeout    time.Duration
	ingestAddr string
	pidDir     string
}

func newReportCmd() *cobra.Command {
	var o reportOpts

	c := &cobra.Command{
		Use:   "report [PID|PID..PID]... [--cgroup PATH]...",
		Short: "Register a service's pids with the collector",
		Long: `report announces pids under a service name. The list is written to the
pid directory and pushed to the collector's ingest port; either path is
enough for the collector to pick it up.

With --tree every descendant of the given pids is included. --cgroup adds
the processes of a cgroup, e.g. /system.slice/nginx.service. With --watch
the command stays in the foreground and re-reports whenever the set of
live processes changes, until the roots exit or it is interrupted.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			envDefault(cmd, "pid-dir", _envPIDDir, &o.pidDir)
			envDefault(cmd, "ingest-addr", _envIngestAddr, &o.ingestAddr)
			return runReport(cmd.Context(), o, args)
		},
	}

	f := c.Flags()
	f.StringVarP(&o.name, "name", "n", "", "service name (default service-<random>)")
	f.BoolVarP(&o.tree, "tree", "t", false, "include all descendants of each pid")
	f.StringArrayVar(&o.cgroups, "cgroup", nil, "cgroup path whose processes are included (repeatable)")
	f.BoolVarP(&o.watch, "watch", "w", false, "keep running and re-report when the process set changes")
	f.DurationVarP(&o.interval, "interval", "i", 2*time.Second, "poll period for --watch")
	f.DurationVar(&o.timeout, "timeout", 2*time.Second, "push timeout")
	f.StringVar(&o.ingestAddr, "ingest-addr", ingest.DefaultAddr, "collector ingest address; env "+_envIngestAddr)
	f.StringVar(&o.pidDir, "pid-dir", ingest.DefaultPIDDir(), "pid directory; env "+_envPIDDir)

	return c
}

func defaultServiceName() string { return "service-" + uuid.NewString()[:6] }

func runReport(ctx context.Context, o reportOpts, args []string) error {
	roots, err := util.ParsePIDs(args)
	if err != nil {
		return err
	}
	if len(roots) == 0 && len(o.cgroups) == 0 {
		return fmt.Errorf("no PIDs or cgroups provided")
	}
	if o.watch && o.interval <= 0 {
		return fmt.Errorf("interval must be > 0")
	}
	if o.name == "" {
		o.name = defaultServiceName()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.Default().With("service", o.name)
	rep := &ingest.Reporter{Addr: o.ingestAddr, Dir: o.pidDir, Timeout: o.timeout, Logger: log}

	pids, err := livePIDs(ctx, roots, o.tree, o.cgroups)
	if err != nil {
		return err
	}
	if err := rep.Report(ctx, o.name, pids); err != nil {
		return err
	}
	if !o.watch {
		return nil
	}

	t := time.NewTicker(o.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			cur, err := livePIDs(ctx, roots, o.tree, o.cgroups)
			if errors.Is(err, proc.ErrProcessNotFound) {
				log.Info("all processes exited")
				return nil
			}
			if err != nil {
				log.Warn("process scan", "err", err)
				continue
			}
			if slices.Equal(cur, pids) {
				continue
			}
			if err := rep.Report(ctx, o.name, cur); err != nil {
				log.Warn("re-report failed", "err", err)
				continue
			}
			pids = cur
		}
	}
}

// livePIDs returns the sorted live subset of roots, expanded to process
// trees when tree is set, plus the members of each cgroup. It fails with
// proc.ErrProcessNotFound when nothing is alive.
func livePIDs(ctx context.Context, roots []int, tree bool, cgroups []string) ([]int, error) {
	var out []int
	if len(roots) > 0 {
		if tree {
			pids, err := proc.Trees(ctx, roots)
			switch {
			case errors.Is(err, proc.ErrProcessNotFound):
			case err != nil && len(pids) == 0:
				return nil, err
			case err != nil:
				slog.Warn("process tree may be incomplete", "err", err)
			}
			out = append(out, pids...)
		} else {
			for _, p := range roots {
				if proc.Exists(p) {
					out = append(out, p)
				}
			}
		}
	}
	for _, path := range cgroups {
		pids, err := cgroup.Procs(path)
		if errors.Is(err, cgroup.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, pids...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: none of %v %v", proc.ErrProcessNotFound, roots, cgroups)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
