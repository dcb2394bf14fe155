package energy

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultPowermetricsPath is the macOS location of powermetrics (needs root).
const DefaultPowermetricsPath = "/usr/bin/powermetrics"

var (
	pmPowerValue = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*(mW|W)\b`)
	pmFreqValue  = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*MHz`)
)

// Powermetrics runs macOS powermetrics for one sample per Read and converts
// the reported package power into joules over the window. Read blocks for
// the window.
type Powermetrics struct {
	path   string
	window time.Duration
	total  float64
}

func NewPowermetrics(path string, window time.Duration) *Powermetrics {
	if window <= 0 {
		window = time.Second
	}
	return &Powermetrics{path: path, window: window}
}

func (p *Powermetrics) Name() string { return KindPowermetrics }
func (p *Powermetrics) Close() error { return nil }

func (p *Powermetrics) Read(ctx context.Context) (Reading, error) {
	ms := strconv.FormatInt(p.window.Milliseconds(), 10)
	cmd := exec.CommandContext(ctx, p.path, "-n", "1", "-i", ms, "--samplers", "cpu_power")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Reading{}, fmt.Errorf("%w: powermetrics not found at %s", ErrUnavailable, p.path)
		}
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(strings.ToLower(msg), "root") {
			msg += "; run the collector with sudo"
		}
		return Reading{}, fmt.Errorf("%w: powermetrics: %v: %s", ErrUnavailable, err, msg)
	}

	rd, err := ParsePowermetrics(bytes.NewReader(out), p.window)
	if err != nil {
		return Reading{}, err
	}
	p.total += rd.Joules
	rd.Cumulative = []float64{p.total}
	return rd, nil
}

// ParsePowermetrics extracts package power from one powermetrics sample.
// Preference order: "Combined Power" (Apple silicon CPU+GPU+ANE), "CPU Power",
// then the Intel "package power" line. Values may be in mW or W. Cluster
// "HW active frequency" lines are averaged into AvgCPUFreqMHz.
func ParsePowermetrics(r io.Reader, window time.Duration) (Reading, error) {
	var (
		combined, cpu, pkg float64
		haveCombined       bool
		haveCPU, havePkg   bool
		freq               mean
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "combined power"):
			combined, haveCombined = powerWatts(line)
		case strings.HasPrefix(lower, "cpu power"):
			cpu, haveCPU = powerWatts(line)
		case strings.Contains(lower, "package power"):
			pkg, havePkg = powerWatts(line)
		case strings.Contains(lower, "hw active frequency"):
			if m := pmFreqValue.FindStringSubmatch(line); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					freq.add(v)
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return Reading{}, fmt.Errorf("%w: powermetrics: %v", ErrUnavailable, err)
	}

	var watts float64
	switch {
	case haveCombined:
		watts = combined
	case haveCPU:
		watts = cpu
	case havePkg:
		watts = pkg
	default:
		return Reading{}, fmt.Errorf("%w: powermetrics: no power line", ErrKeyNotPresent)
	}

	return Reading{
		Joules:        watts * window.Seconds(),
		AvgPowerWatts: watts,
		AvgCPUFreqMHz: freq.value(),
		Window:        window,
	}, nil
}

// powerWatts parses the value after the colon, e.g. "CPU Power: 1234 mW".
func powerWatts(line string) (float64, bool) {
	i := strings.LastIndexByte(line, ':')
	if i < 0 {
		return 0, false
	}
	m := pmPowerValue.FindStringSubmatch(line[i+1:])
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if m[2] == "mW" {
		v /= 1000
	}
	return v, true
}
