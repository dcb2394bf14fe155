// Package carbon converts attributed energy into grams of CO2.
//
// The intensity (gCO2 per kWh) is held in an Intensity value that readers
// load once per tick. A Refresher may replace it on a slower schedule; the
// value is a single atomic word, so readers never see a torn float.
package carbon

import (
	"math"
	"sync/atomic"
)

// JoulesPerKWh is the number of joules in one kilowatt-hour.
const JoulesPerKWh = 3.6e6

// Intensity is an atomically replaceable gCO2/kWh figure. The zero value
// reads 0, meaning carbon is reported as zero until a value is supplied.
type Intensity struct {
	bits atomic.Uint64
}

// NewIntensity returns an Intensity holding gPerKWh.
func NewIntensity(gPerKWh float64) *Intensity {
	i := &Intensity{}
	i.Store(gPerKWh)
	return i
}

// Load returns the current gCO2/kWh.
func (i *Intensity) Load() float64 { return math.Float64frombits(i.bits.Load()) }

// Store replaces the intensity. Negative and NaN values store 0.
func (i *Intensity) Store(gPerKWh float64) {
	if math.IsNaN(gPerKWh) || gPerKWh < 0 {
		gPerKWh = 0
	}
	i.bits.Store(math.Float64bits(gPerKWh))
}


// Grams returns gCO2 emitted by joules at gPerKWh.
func Grams(joules, gPerKWh float64) float64 { return joules / JoulesPerKWh * gPerKWh }
