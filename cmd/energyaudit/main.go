package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const (
	_envPIDDir     = "ENERGY_AUDIT_PID_DIR"
	_envIngestAddr = "ENERGY_AUDIT_INGEST_ADDR"
)

type rootOpts struct {
	logLevel  string
	logFormat string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o rootOpts

	root := &cobra.Command{
		Use:   "energyaudit",
		Short: "Per-process energy and carbon attribution",
		Long: `energyaudit attributes whole-machine energy, measured by RAPL,
Intel Power Gadget or powermetrics, to the processes of registered
services in proportion to their CPU share, and converts it to grams of
CO2 using a grid carbon intensity.

Run "energyaudit collect" once per host; services register their pids
with "energyaudit report" (or by writing to the pid directory / ingest
port directly). Metrics are served as JSON, SSE and Prometheus text.

Examples:
  energyaudit collect --interval 1s --carbon-source wind
  energyaudit report --name api --tree $(pidof api)
  energyaudit report --name batch --watch 4100..4120`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setupLogging(o.logLevel, o.logFormat)
		},
	}

	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&o.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(newCollectCmd(), newReportCmd())
	return root
}

func setupLogging(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "text", "":
		h = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid --log-format %q (text or json)", format)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// envDefault replaces *dst with the environment variable when the flag was
// not given explicitly.
func envDefault(cmd *cobra.Command, flag, env string, dst *string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}
