// v1
// internal/trayline/score.go
package trayline

import (
	"fmt"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/region"
)

// Waste diverted by a typical Phoenix tray node per cycle; normalizes the
// eco-impact score.
const refWasteKgPerCycle = 300.0

// Candidate is a recipe put forward for scoring, with its projected
// per-cycle yields.
type Candidate struct {
	Mix                    MaterialMix `json:"mix"`
	WasteReducedKgPerCycle float64     `json:"waste_reduced_kg_per_cycle"`
	EnergyKWhPerCycle      float64     `json:"energy_kwh_per_cycle"`
	KnowledgeFactor        float64     `json:"knowledge_factor"`
}

// SimResult is the scored outcome for one candidate in one region.
type SimResult struct {
	MaterialID             string  `json:"material_id"`
	RegionCode             string  `json:"region_code"`
	T90Days                float64 `json:"modeled_t90_days"`
	Rtox                   float64 `json:"r_tox"`
	KnowledgeFactor        float64 `json:"knowledge_factor"`
	EcoImpact              float64 `json:"ecoimpact_score"`
	RiskOfHarm             bool    `json:"risk_of_harm"`
	WasteReducedKgPerCycle float64 `json:"waste_reduced_kg_per_cycle"`
	EnergyKWhPerCycle      float64 `json:"energy_kwh_per_cycle"`
}

// Score evaluates the candidate against the region's corridors at the
// feed's current compost temperature.
//
// Risk of harm trips on t90 beyond the hard limit or rtox beyond the gold
// band. Eco-impact is waste diverted over the reference cycle, clamped to
// [0,1], and collapses to zero when risk trips: a recipe that poisons the
// corridor earns nothing for its throughput.
func (c Candidate) Score(p region.Profile, feed region.Feed) (SimResult, error) {
	if err := c.Mix.Validate(); err != nil {
		return SimResult{}, err
	}
	tempC, err := feed.CompostTempC()
	if err != nil {
		return SimResult{}, fmt.Errorf("score %s: %w", c.Mix.ID, err)
	}

	t90 := T90Days(c.Mix, tempC)
	rtox := RtoxCorridor(p, c.Mix)
	risk := t90 > p.T90HardDays || rtox > p.RtoxGold

	eco := clamp01(c.WasteReducedKgPerCycle / refWasteKgPerCycle)
	if risk {
		eco = 0
	}

	return SimResult{
		MaterialID:             c.Mix.ID,
		RegionCode:             p.Code,
		T90Days:                t90,
		Rtox:                   rtox,
		KnowledgeFactor:        c.KnowledgeFactor,
		EcoImpact:              eco,
		RiskOfHarm:             risk,
		WasteReducedKgPerCycle: c.WasteReducedKgPerCycle,
		EnergyKWhPerCycle:      c.EnergyKWhPerCycle,
	}, nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
