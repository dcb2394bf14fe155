// Package energy reads the system-wide energy signal that the attribution
// engine splits across processes.
//
// A Source answers one question per tick: how many joules did the machine
// (or its CPU package) consume since the previous call. Implementations:
//
//   - RAPL (Linux): Intel/AMD package counters under /sys/class/powercap,
//     read through prometheus/procfs.
//   - PowerGadget (Windows): runs Intel Power Gadget's logger for the tick
//     window and parses its CSV.
//   - Powermetrics (macOS): runs powermetrics for one sample and parses the
//     reported package power.
//   - Null: always zero, for hosts without a meter.
//
// New picks one by name, or by runtime.GOOS for "auto".
package energy

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"
)

// Reading is one energy observation.
type Reading struct {
	Joules        float64   // energy since the previous Read; may be negative on a counter reset
	AvgCPUUtil    float64   // %, when the tool reports it
	AvgCPUFreqMHz float64   // when the tool reports it
	AvgPowerWatts float64   // mean power over Window
	Cumulative    []float64 // cumulative energy samples (J) inside the window, when available
	Window        time.Duration
}

// Source yields system-wide energy deltas. Read is called from a single
// goroutine; implementations need not be safe for concurrent use.
type Source interface {
	Read(ctx context.Context) (Reading, error)
	Name() string
	Close() error
}

// Kinds accepted by New.
const (
	KindAuto         = "auto"
	KindRAPL         = "rapl"
	KindPowerGadget  = "powergadget"
	KindPowermetrics = "powermetrics"
	KindNone         = "none"
)

// Options configures New.
type Options struct {
	Kind             string        // one of the Kind constants; empty means auto
	Window           time.Duration // tick length, used by the tools that sample for a duration
	SysfsRoot        string        // RAPL sysfs mount point (default /sys)
	PowerGadgetPath  string
	PowermetricsPath string
	Logger           *slog.Logger
}

func _defaultOptions() Options {
	return Options{
		Kind:             KindAuto,
		Window:           time.Second,
		SysfsRoot:        "/sys",
		PowerGadgetPath:  DefaultPowerGadgetPath,
		PowermetricsPath: DefaultPowermetricsPath,
		Logger:           slog.Default(),
	}
}

// New builds the source named by o.Kind. For auto the host OS decides:
// linux → RAPL, windows → Power Gadget, darwin → powermetrics; anything else
// fails with ErrUnsupportedPlatform.
func New(o Options) (Source, error) {
	merged := _defaultOptions()
	if k := strings.ToLower(strings.TrimSpace(o.Kind)); k != "" {
		merged.Kind = k
	}
	if o.Window > 0 {
		merged.Window = o.Window
	}
	if o.SysfsRoot != "" {
		merged.SysfsRoot = o.SysfsRoot
	}
	if o.PowerGadgetPath != "" {
		merged.PowerGadgetPath = o.PowerGadgetPath
	}
	if o.PowermetricsPath != "" {
		merged.PowermetricsPath = o.PowermetricsPath
	}
	if o.Logger != nil {
		merged.Logger = o.Logger
	}

	kind := merged.Kind
	if kind == KindAuto {
		var err error
		if kind, err = kindFor(runtime.GOOS); err != nil {
			return nil, err
		}
	}

	switch kind {
	case KindRAPL:
		return NewRAPL(merged.SysfsRoot)
	case KindPowerGadget:
		return NewPowerGadget(merged.PowerGadgetPath, merged.Window), nil
	case KindPowermetrics:
		return NewPowermetrics(merged.PowermetricsPath, merged.Window), nil
	case KindNone:
		merged.Logger.Warn("no energy source configured; attributed energy will be zero")
		return Null{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, o.Kind)
	}
}

func kindFor(goos string) (string, error) {
	switch goos {
	case "linux":
		return KindRAPL, nil
	case "windows":
		return KindPowerGadget, nil
	case "darwin":
		return KindPowermetrics, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

// Null reports zero energy on every call.
type Null struct{}

func (Null) Read(context.Context) (Reading, error) { return Reading{}, nil }
func (Null) Name() string                          { return KindNone }
func (Null) Close() error                          { return nil }
