// v1
// internal/trayline/kinetics.go
package trayline

import (
	"math"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/region"
)

// Baseline decay rate for starch-rich blends at 25 °C, doubled per 10 °C.
const (
	baseRatePerDay = 0.05
	q10            = 2.0
)

// DecayRatePerDay is the first-order decay constant at the given compost
// temperature.
func DecayRatePerDay(compostTempC float64) float64 {
	return baseRatePerDay * math.Pow(q10, (compostTempC-25.0)/10.0)
}

// T90Days models the time to 90% mass loss. Mineral binder slows decay,
// up to 1.5x at a fully mineral mix.
func T90Days(mix MaterialMix, compostTempC float64) float64 {
	return math.Ln10 / DecayRatePerDay(compostTempC) * (1.0 + 0.5*mix.MineralFrac)
}

// RtoxCorridor is the toxicity proxy scaled into the region's corridor:
// 0 at or below the safe band, 1 at or above the hard band, linear between.
// The raw proxy leans on mineral and protein content until LC-MS assay data
// replaces it.
func RtoxCorridor(p region.Profile, mix MaterialMix) float64 {
	base := 0.02 + 0.05*mix.MineralFrac + 0.01*math.Max(mix.ProteinFrac, 0)
	switch {
	case base <= p.RtoxSafe:
		return 0
	case base >= p.RtoxHard:
		return 1
	default:
		return (base - p.RtoxSafe) / (p.RtoxHard - p.RtoxSafe)
	}
}
