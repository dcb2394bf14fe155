package store

import (
	"slices"
	"sync"
	"time"

	"github.com/Deeksh1tha/Energy-Audit/pkg/types"
)

// Point is one tick of one process. EnergyJ and CarbonG are cumulative.
type Point struct {
	CPU       float64     // % of the machine
	MemoryMB  float64     // resident memory
	PowerW    float64     // attributed power for the tick
	EnergyJ   float64     // cumulative attributed energy
	CarbonG   float64     // cumulative gCO2
	NetRx     types.Bytes // cumulative
	NetTx     types.Bytes // cumulative
	Timestamp time.Time
}

// Series is the per-pid time series. Every sequence shares its index: position
// i across all of them describes the same tick.
type Series struct {
	pid     int
	service string
	name    string

	mu     sync.RWMutex
	cpu    []float64
	mem    []float64
	power  []float64
	energy []float64
	carbon []float64
	rx     []types.Bytes
	tx     []types.Bytes
	ts     []time.Time
}

func newSeries(pid int, service, name string) *Series {
	return &Series{pid: pid, service: service, name: name}
}

// append adds p to every sequence under one lock hold, so readers see
// either the whole tick or none of it.
func (s *Series) append(p Point) {
	s.mu.Lock()
	s.cpu = append(s.cpu, p.CPU)
	s.mem = append(s.mem, p.MemoryMB)
	s.power = append(s.power, p.PowerW)
	s.energy = append(s.energy, p.EnergyJ)
	s.carbon = append(s.carbon, p.CarbonG)
	s.rx = append(s.rx, p.NetRx)
	s.tx = append(s.tx, p.NetTx)
	s.ts = append(s.ts, p.Timestamp)
	s.mu.Unlock()
}

func (s *Series) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ts)
}

func (s *Series) last() (Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.ts)
	if n == 0 {
		return Point{}, false
	}
	i := n - 1
	return Point{
		CPU:       s.cpu[i],
		MemoryMB:  s.mem[i],
		PowerW:    s.power[i],
		EnergyJ:   s.energy[i],
		CarbonG:   s.carbon[i],
		NetRx:     s.rx[i],
		NetTx:     s.tx[i],
		Timestamp: s.ts[i],
	}, true
}

// project copies the sequences in r. The returned slices never alias the series.
func (s *Series) project(r Range) Projection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo, hi := r.bounds(len(s.ts))
	return Projection{
		PID:               s.pid,
		Service:           s.service,
		DisplayName:       s.name,
		Start:             lo,
		CPUUtilization:    slices.Clone(s.cpu[lo:hi]),
		MemoryUsage:       slices.Clone(s.mem[lo:hi]),
		PowerUsage:        slices.Clone(s.power[lo:hi]),
		EnergyConsumption: slices.Clone(s.energy[lo:hi]),
		CarbonEmissions:   slices.Clone(s.carbon[lo:hi]),
		NetRxBytes:        slices.Clone(s.rx[lo:hi]),
		NetTxBytes:        slices.Clone(s.tx[lo:hi]),
		Timestamps:        slices.Clone(s.ts[lo:hi]),
	}
}

// Projection is a copied window of one series, as served to readers.
// Start is the index of the first element within the full series.
type Projection struct {
	PID               int           `json:"pid"`
	Service           string        `json:"service"`
	DisplayName       string        `json:"name"`
	Start             int           `json:"start"`
	CPUUtilization    []float64     `json:"cpu_utilization"`
	MemoryUsage       []float64     `json:"memory_usage"`
	PowerUsage        []float64     `json:"power_usage"`
	EnergyConsumption []float64     `json:"energy_consumption"`
	CarbonEmissions   []float64     `json:"carbon_emissions"`
	NetRxBytes        []types.Bytes `json:"net_rx_bytes"`
	NetTxBytes        []types.Bytes `json:"net_tx_bytes"`
	Timestamps        []time.Time   `json:"timestamps"`
}

// Len is the number of ticks in the projection.
func (p Projection) Len() int { return len(p.Timestamps) }

