package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Deeksh1tha/Energy-Audit/pkg/carbon"
	"github.com/Deeksh1tha/Energy-Audit/pkg/consumption"
	"github.com/Deeksh1tha/Energy-Audit/pkg/energy"
	"github.com/Deeksh1tha/Energy-Audit/pkg/exporter"
	"github.com/Deeksh1tha/Energy-Audit/pkg/ingest"
	"github.com/Deeksh1tha/Energy-Audit/pkg/registry"
	"github.com/Deeksh1tha/Energy-Audit/pkg/server"
	"github.com/Deeksh1tha/Energy-Audit/pkg/store"
	"github.com/Deeksh1tha/Energy-Audit/pkg/system/proc"
)

type collectOpts struct {
	// attribution
	interval      time.Duration
	sampleTimeout time.Duration
	limit         float64
	noCap         bool
	wCPU          float64
	wMem          float64
	ema           float64

	// carbon
	intensity     float64
	carbonSource  string
	carbonFile    string
	carbonRefresh time.Duration
	noCarbon      bool

	// energy
	energySource     string
	powerGadgetPath  string
	powermetricsPath string
	sysfsRoot        string

	// registration
	ingestAddr string
	pidDir     string
	rescan     time.Duration

	// outputs
	httpAddr       string
	streamInterval time.Duration
	quiet          bool
}

func newCollectCmd() *cobra.Command {
	var o collectOpts

	c := &cobra.Command{
		Use:   "collect",
		Short: "Run the attribution loop and serve metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			envDefault(cmd, "pid-dir", _envPIDDir, &o.pidDir)
			envDefault(cmd, "ingest-addr", _envIngestAddr, &o.ingestAddr)
			return runCollect(cmd.Context(), o)
		},
	}

	f := c.Flags()
	f.DurationVarP(&o.interval, "interval", "i", time.Second, "attribution tick (e.g. 1s, 500ms)")
	f.DurationVar(&o.sampleTimeout, "sample-timeout", 500*time.Millisecond, "per-process sampling deadline (capped at --interval)")
	f.Float64Var(&o.limit, "cap", 0.9, "upper bound for a process's scaling factor")
	f.BoolVar(&o.noCap, "no-cap", false, "do not bound the scaling factor")
	f.Float64Var(&o.wCPU, "w-cpu", 0.5, "CPU weight of the efficiency index")
	f.Float64Var(&o.wMem, "w-mem", 0.5, "memory weight of the efficiency index")
	f.Float64Var(&o.ema, "ema", 0, "EMA alpha for host CPU smoothing [0..1], 0 disables")

	f.Float64Var(&o.intensity, "carbon-intensity", 0, "grid carbon intensity (gCO2/kWh); 0 reports zero carbon")
	f.StringVar(&o.carbonSource, "carbon-source", "", "use the static intensity of a generation source (coal, natural_gas, solar, wind, nuclear, default)")
	f.StringVar(&o.carbonFile, "carbon-file", "", "file holding the current intensity, re-read every --carbon-refresh")
	f.DurationVar(&o.carbonRefresh, "carbon-refresh", 15*time.Minute, "how often --carbon-file is re-read")
	f.BoolVar(&o.noCarbon, "no-carbon", false, "report zero carbon")

	f.StringVar(&o.energySource, "energy-source", energy.KindAuto, "auto, rapl, powergadget, powermetrics or none")
	f.StringVar(&o.powerGadgetPath, "powergadget-path", energy.DefaultPowerGadgetPath, "PowerLog3.0 executable")
	f.StringVar(&o.powermetricsPath, "powermetrics-path", energy.DefaultPowermetricsPath, "powermetrics executable")
	f.StringVar(&o.sysfsRoot, "sysfs", "/sys", "sysfs mount point for RAPL")

	f.StringVar(&o.ingestAddr, "ingest-addr", ingest.DefaultAddr, "TCP address for pid batches; env "+_envIngestAddr)
	f.StringVar(&o.pidDir, "pid-dir", ingest.DefaultPIDDir(), "directory scanned for pid files; env "+_envPIDDir)
	f.DurationVar(&o.rescan, "rescan", 5*time.Second, "pid directory scan period")

	f.StringVar(&o.httpAddr, "http-addr", server.DefaultAddr, "HTTP address for /live-metrics and /metrics")
	f.DurationVar(&o.streamInterval, "stream-interval", time.Second, "SSE push period")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "do not print the host header and final totals")

	return c
}

func (o *collectOpts) validate() error {
	if o.interval <= 0 {
		return fmt.Errorf("interval must be > 0")
	}
	if o.sampleTimeout <= 0 {
		return fmt.Errorf("sample-timeout must be > 0")
	}
	if !o.noCap && (o.limit <= 0 || o.limit > 1) {
		return fmt.Errorf("cap must be in (0,1]")
	}
	if o.wCPU < 0 || o.wMem < 0 || o.wCPU+o.wMem <= 0 {
		return fmt.Errorf("w-cpu and w-mem must be >= 0 with a positive sum")
	}
	if o.ema < 0 || o.ema > 1 {
		return fmt.Errorf("ema must be in [0,1]")
	}
	if o.intensity < 0 {
		return fmt.Errorf("carbon-intensity must be >= 0")
	}
	if o.carbonFile != "" && o.carbonRefresh <= 0 {
		return fmt.Errorf("carbon-refresh must be > 0")
	}
	if o.rescan <= 0 {
		return fmt.Errorf("rescan must be > 0")
	}
	if o.streamInterval <= 0 {
		return fmt.Errorf("stream-interval must be > 0")
	}
	return nil
}

// baseIntensity is --carbon-source when given, else --carbon-intensity.
func (o *collectOpts) baseIntensity() (float64, error) {
	if o.carbonSource == "" {
		return o.intensity, nil
	}
	return carbon.ForSource(o.carbonSource)
}

func (o *collectOpts) config() *consumption.Config {
	return &consumption.Config{
		Interval:      o.interval,
		SampleTimeout: o.sampleTimeout,
		Cap:           o.limit,
		DisableCap:    o.noCap,
		DisableCarbon: o.noCarbon,
		WeightCPU:     o.wCPU,
		WeightMem:     o.wMem,
	}
}

func runCollect(ctx context.Context, o collectOpts) error {
	if err := o.validate(); err != nil {
		return err
	}
	base, err := o.baseIntensity()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.Default()

	src, err := energy.New(energy.Options{
		Kind:             o.energySource,
		Window:           o.interval,
		SysfsRoot:        o.sysfsRoot,
		PowerGadgetPath:  o.powerGadgetPath,
		PowermetricsPath: o.powermetricsPath,
		Logger:           log,
	})
	if err != nil {
		return fmt.Errorf("energy source: %w", err)
	}
	defer src.Close()

	host, err := proc.NewHostSampler(o.ema)
	if err != nil {
		return err
	}

	var (
		reg       = registry.New()
		st        = store.New()
		intensity = carbon.NewIntensity(base)
	)

	eng, err := consumption.New(o.config(), consumption.Deps{
		Registry:  reg,
		Store:     st,
		Source:    src,
		Host:      host,
		Intensity: intensity,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	lis := ingest.NewListener(reg, ingest.ListenerOptions{Addr: o.ingestAddr, Logger: log})
	if err := lis.Listen(); err != nil {
		return err
	}
	httpLn, err := net.Listen("tcp", o.httpAddr)
	if err != nil {
		_ = lis.Close()
		return fmt.Errorf("http: listen %s: %w", o.httpAddr, err)
	}

	if err := os.MkdirAll(o.pidDir, 0o755); err != nil {
		log.Warn("pid directory unavailable, relying on the ingest port", "dir", o.pidDir, "err", err)
	}
	scanner := ingest.NewScanner(o.pidDir, reg, log)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		exporter.New(st, eng),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := server.New(st, reg, server.Options{
		Addr:           o.httpAddr,
		StreamInterval: o.streamInterval,
		Gatherer:       promReg,
		Untracker:      eng,
		Logger:         log,
	})

	if !o.quiet {
		printHeader(ctx, os.Stdout, src.Name())
	}
	log.Info("collector ready",
		"ingest", lis.Addr().String(), "http", httpLn.Addr().String(),
		"pid_dir", o.pidDir, "intensity", intensity.Load())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  []error
	)
	fail := func(name string, err error) {
		if err == nil {
			return
		}
		errMu.Lock()
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
		errMu.Unlock()
		cancel()
	}

	start := time.Now()
	wg.Add(4)
	go func() { defer wg.Done(); fail("ingest", lis.Serve(ctx)) }()
	go func() { defer wg.Done(); scanner.Run(ctx, o.rescan) }()
	go func() { defer wg.Done(); fail("http", srv.Serve(ctx, httpLn)) }()
	go func() { defer wg.Done(); fail("attribution", eng.Run(ctx)) }()

	if o.carbonFile != "" && !o.noCarbon {
		r := &carbon.Refresher{
			Provider: carbon.Fallback{Primary: carbon.FileProvider(o.carbonFile), Value: base, Logger: log},
			Every:    o.carbonRefresh,
			Target:   intensity,
			Logger:   log,
		}
		wg.Add(1)
		go func() { defer wg.Done(); r.Run(ctx) }()
	}

	<-ctx.Done()
	log.Info("shutting down")
	wg.Wait()

	if !o.quiet {
		fmt.Println()
		printTotals(os.Stdout, eng.Totals(), time.Since(start))
	}
	return errors.Join(errs...)
}
