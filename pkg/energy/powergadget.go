package energy

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultPowerGadgetPath is where the Intel Power Gadget 3.6 installer puts the logger.
const DefaultPowerGadgetPath = `C:\Program Files\Intel\Power Gadget 3.6\PowerLog3.0.exe`

// Power Gadget CSV column markers (matched as substrings of the header).
const (
	pgColEnergy = "Cumulative Processor Energy"
	pgColUtil   = "CPU Utilization(%)"
	pgColFreq   = "CPU Frequency_0(MHz)"
	pgColPower  = "Processor Power_0(Watt)"
	pgSummary   = "Total Elapsed Time"
)

// PowerGadget runs Intel Power Gadget's logger for one window per Read and
// reports the energy it measured. Read blocks for the window.
type PowerGadget struct {
	path   string
	window time.Duration
}

func NewPowerGadget(path string, window time.Duration) *PowerGadget {
	if window <= 0 {
		window = time.Second
	}
	return &PowerGadget{path: path, window: window}
}

func (p *PowerGadget) Name() string { return KindPowerGadget }
func (p *PowerGadget) Close() error { return nil }

func (p *PowerGadget) Read(ctx context.Context) (Reading, error) {
	dir, err := os.MkdirTemp("", "energyaudit-pg-*")
	if err != nil {
		return Reading{}, fmt.Errorf("%w: powergadget: %v", ErrUnavailable, err)
	}
	defer os.RemoveAll(dir)
	logFile := filepath.Join(dir, "power_log.csv")

	secs := strconv.FormatFloat(p.window.Seconds(), 'f', -1, 64)
	cmd := exec.CommandContext(ctx, p.path, "-duration", secs, "-file", logFile)
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Reading{}, fmt.Errorf("%w: powergadget not found at %s", ErrUnavailable, p.path)
		}
		return Reading{}, fmt.Errorf("%w: powergadget: %v", ErrUnavailable, err)
	}

	f, err := os.Open(logFile)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: powergadget: %v", ErrUnavailable, err)
	}
	defer f.Close()

	rd, err := ParsePowerGadgetLog(f)
	if err != nil {
		return Reading{}, err
	}
	rd.Window = p.window
	return rd, nil
}

// ParsePowerGadgetLog reads a Power Gadget CSV log. Rows stop at the
// "Total Elapsed Time" summary block. Joules is the spread of the
// cumulative energy column; the averages are plain means over the rows.
func ParsePowerGadgetLog(r io.Reader) (Reading, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: powergadget: %v", ErrUnavailable, err)
	}
	text := string(body)
	if i := strings.Index(text, pgSummary); i >= 0 {
		text = text[:i]
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return Reading{}, fmt.Errorf("%w: powergadget: csv: %v", ErrUnavailable, err)
	}
	if len(records) == 0 {
		return Reading{}, fmt.Errorf("%w: powergadget: empty log", ErrKeyNotPresent)
	}

	header := records[0]
	energyCol := column(header, pgColEnergy)
	if energyCol < 0 {
		return Reading{}, fmt.Errorf("%w: powergadget: %q", ErrKeyNotPresent, pgColEnergy)
	}
	utilCol, freqCol, powerCol := column(header, pgColUtil), column(header, pgColFreq), column(header, pgColPower)

	var (
		rd                Reading
		util, freq, power mean
	)
	for _, rec := range records[1:] {
		v, ok := field(rec, energyCol)
		if !ok {
			continue
		}
		rd.Cumulative = append(rd.Cumulative, v)
		if v, ok := field(rec, utilCol); ok {
			util.add(v)
		}
		if v, ok := field(rec, freqCol); ok {
			freq.add(v)
		}
		if v, ok := field(rec, powerCol); ok {
			power.add(v)
		}
	}
	if len(rd.Cumulative) == 0 {
		return Reading{}, fmt.Errorf("%w: powergadget: no samples", ErrKeyNotPresent)
	}

	rd.Joules = rd.Cumulative[len(rd.Cumulative)-1] - rd.Cumulative[0]
	rd.AvgCPUUtil = util.value()
	rd.AvgCPUFreqMHz = freq.value()
	rd.AvgPowerWatts = power.value()
	return rd, nil
}

// column returns the index of the first header containing marker, or -1.
func column(header []string, marker string) int {
	for i, h := range header {
		if strings.Contains(strings.TrimSpace(h), marker) {
			return i
		}
	}
	return -1
}

func field(rec []string, i int) (float64, bool) {
	if i < 0 || i >= len(rec) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	return v, err == nil
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) { m.sum += v; m.n++ }

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}
