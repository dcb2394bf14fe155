package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Deeksh1tha/Energy-Audit/pkg/consumption"
	"github.com/Deeksh1tha/Energy-Audit/pkg/system/cgroup"
	"github.com/Deeksh1tha/Energy-Audit/pkg/system/util"
	"github.com/Deeksh1tha/Energy-Audit/pkg/types"
)

// systemSummary never fails; missing facts read "unknown".
func systemSummary(ctx context.Context) (hostname, kernel, cpus, memory string) {
	hostname, kernel, cpus, memory = "unknown", "unknown", strconv.Itoa(runtime.NumCPU()), "unknown"
	if hi, err := host.InfoWithContext(ctx); err == nil {
		hostname = hi.Hostname
		kernel = fmt.Sprintf("%s %s (%s)", hi.OS, hi.KernelVersion, hi.KernelArch)
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		cpus = strconv.Itoa(n)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		memory = types.ToBytes(vm.Total).Humanized()
	}
	return hostname, kernel, cpus, memory
}

func printHeader(ctx context.Context, w io.Writer, source string) {
	h, k, c, m := systemSummary(ctx)
	cg := "unknown"
	if _, desc, err := cgroup.Detect(); err == nil {
		cg = desc
	}
	fmt.Fprintf(w, _console, h, k, c, m, cg, source, time.Now().Format("2006-01-02 15:04:05"))
}

func printTotals(w io.Writer, t consumption.Totals, elapsed time.Duration) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKS\tELAPSED\tSYSTEM(J)\tATTRIBUTED(J)\tSHARE\tAVG EFF\tENERGY ERRORS")
	fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s%%\t%s\t%d\n",
		t.Ticks,
		elapsed.Round(time.Second),
		fmtFloat(t.SystemJoules),
		fmtFloat(t.AttributedJ),
		fmtFloat(100*util.SafeDiv(t.AttributedJ, t.SystemJoules)),
		fmtFloat(t.AvgEfficiency),
		t.EnergyFailures,
	)
	_ = tw.Flush()
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

const _console = `Energy Audit - Per-Process Energy & Carbon Attribution

       Host: %s
       Kernel: %s
       CPUs: %s
       Mem: %s
       Cgroups: %s
       Energy source: %s

Collector started at %s:

`
