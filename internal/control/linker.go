// v1
// internal/control/linker.go
// Canonical-impact karma linker: a pollutant-normalized alternative to the
// raw per-kg karma operator, used for cross-fleet award accounting.
//
//	K          = λ · (ΔC / Cref) · Q · t        Cref ≤ 0 falls back to 1
//	karmaBytes = K · clamp(ecoScore, 0, 1) · κ
//	S(K)       = 1 − exp(−α · K / k0)           model cross-check score
//
// S(K) is reported next to the shard's own eco score and never fed back
// into the duty integrator.
package control

import (
	"math"
	"strings"
)

// Pollutant is the normalized pollutant tag carried by award events and
// fleet totals.
type Pollutant string

const (
	PollutantPM25  Pollutant = "PM2.5"
	PollutantNO2   Pollutant = "NO2"
	PollutantO3    Pollutant = "O3"
	PollutantVOC   Pollutant = "VOC"
	PollutantBC    Pollutant = "BC"
	PollutantOther Pollutant = "OTHER"
)

// ParsePollutant normalizes the free-text pollutant column. Unrecognized
// text maps to PollutantOther; rows are never dropped over spelling.
func ParsePollutant(s string) Pollutant {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PM2.5", "PM25", "PM_2_5":
		return PollutantPM25
	case "NO2":
		return PollutantNO2
	case "O3", "OZONE":
		return PollutantO3
	case "VOC", "VOCS":
		return PollutantVOC
	case "BC", "BLACK_CARBON", "BLACKCARBON":
		return PollutantBC
	default:
		return PollutantOther
	}
}

// CanonicalImpact computes K = λ·(ΔC/Cref)·Q·t. Negative concentration
// deltas clamp to zero; a non-positive Cref falls back to 1 so a missing
// reference degrades the scale, not the sign.
func CanonicalImpact(lambda, cIn, cOut, cRef, airflowM3s, periodS float64) float64 {
	delta := cIn - cOut
	if delta < 0 {
		delta = 0
	}
	if cRef <= 0 {
		cRef = 1
	}
	return lambda * (delta / cRef) * airflowM3s * periodS
}

// NanoKarmaBytes converts a canonical impact into award bytes. The eco
// score is clamped to [0,1] before scaling.
func NanoKarmaBytes(impact, ecoScore, kappaPerUnit float64) float64 {
	return impact * clamp01(ecoScore) * kappaPerUnit
}

// EcoScoreModel is the saturating cross-check S(K) = 1 − exp(−α·K/k0).
// A non-positive k0 yields 0: no reference scale, no model score.
func EcoScoreModel(karma, alpha, k0 float64) float64 {
	if k0 <= 0 {
		return 0
	}
	return 1 - math.Exp(-alpha*karma/k0)
}

// BlendedScore averages the shard's own eco score with the model score,
// both clamped to [0,1].
func BlendedScore(rowScore, modelScore float64) float64 {
	return 0.5*clamp01(rowScore) + 0.5*clamp01(modelScore)
}

// FleetTotals sums derived mass and karma over a stepped fleet snapshot,
// overall and per pollutant tag.
type FleetTotals struct {
	Nodes        int                   `json:"nodes"`
	MassKg       float64               `json:"mass_kg"`
	KarmaBytes   float64               `json:"karma_bytes"`
	ByPollutant  map[Pollutant]float64 `json:"mass_kg_by_pollutant"`
	KarmaByMatch map[Pollutant]float64 `json:"karma_by_pollutant"`
}

// TotalFleet folds a stepped snapshot into totals. Call after StepAll;
// un-stepped nodes contribute their zero values.
func TotalFleet(nodes []NodeState) FleetTotals {
	t := FleetTotals{
		Nodes:        len(nodes),
		ByPollutant:  make(map[Pollutant]float64),
		KarmaByMatch: make(map[Pollutant]float64),
	}
	for _, n := range nodes {
		p := ParsePollutant(n.Row.Pollutant)
		t.MassKg += n.MassKg
		t.KarmaBytes += n.KarmaBytes
		t.ByPollutant[p] += n.MassKg
		t.KarmaByMatch[p] += n.KarmaBytes
	}
	return t
}
