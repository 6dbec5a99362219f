// v1
// internal/trayline/shardrow.go
package trayline

import (
	"fmt"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/region"
)

// Class is the ISO 14851 disintegration verdict band.
type Class string

const (
	ClassStrongPass Class = "StrongPass"
	ClassPass       Class = "Pass"
	ClassFail       Class = "Fail"
)

// Classify bands a modeled t90 against the region targets. Both bounds are
// inclusive: landing exactly on the target is still a strong pass, exactly
// on the hard limit still a pass.
func Classify(p region.Profile, t90Days float64) Class {
	switch {
	case t90Days <= p.T90TargetDays:
		return ClassStrongPass
	case t90Days <= p.T90HardDays:
		return ClassPass
	default:
		return ClassFail
	}
}

// Label renders the class as carried in shard rows, e.g.
// "PHX-ISO14851-StrongPass".
func (c Class) Label(p region.Profile) string {
	return fmt.Sprintf("%s-ISO14851-%s", p.Code, c)
}

// ShardRow is one row of a tray-line qpudatashard.
type ShardRow struct {
	MachineID              string  `json:"machine_id"`
	Facility               string  `json:"facility"`
	Region                 string  `json:"region"`
	Lat                    float64 `json:"lat"`
	Lon                    float64 `json:"lon"`
	MaterialMix            string  `json:"materialmix"`
	TargetT90Days          float64 `json:"target_t90_days"`
	ModeledT90Days         float64 `json:"modeled_t90_days"`
	ISO14851Class          string  `json:"iso14851_class"`
	EcoImpactScore         float64 `json:"ecoimpact_score"`
	WasteReducedKgPerCycle float64 `json:"waste_reduced_kg_per_cycle"`
	ToxRiskCorridor        float64 `json:"tox_risk_corridor"`
	EnergyKWhPerCycle      float64 `json:"energy_kwh_per_cycle"`
}

// ToShardRow flattens a scored recipe into its shard form.
func ToShardRow(machineID, facility string, lat, lon float64, mix MaterialMix, p region.Profile, sim SimResult) ShardRow {
	return ShardRow{
		MachineID:              machineID,
		Facility:               facility,
		Region:                 p.Name,
		Lat:                    lat,
		Lon:                    lon,
		MaterialMix:            mix.Description,
		TargetT90Days:          p.T90TargetDays,
		ModeledT90Days:         sim.T90Days,
		ISO14851Class:          Classify(p, sim.T90Days).Label(p),
		EcoImpactScore:         sim.EcoImpact,
		WasteReducedKgPerCycle: sim.WasteReducedKgPerCycle,
		ToxRiskCorridor:        sim.Rtox,
		EnergyKWhPerCycle:      sim.EnergyKWhPerCycle,
	}
}

// Placement sites one recipe at a facility for batch simulation.
type Placement struct {
	Mix      MaterialMix
	Facility string
	Lat      float64
	Lon      float64
}

// SimulateRecipes scores a batch of placements against the region's static
// feed and returns shard rows in placement order. Per-cycle yields and the
// knowledge factor apply batch-wide, matching how design studies are run.
func SimulateRecipes(p region.Profile, placements []Placement, wasteKgPerCycle, energyKWhPerCycle, knowledgeFactor float64) ([]ShardRow, error) {
	feed := region.StaticFeed{Profile: p}
	rows := make([]ShardRow, 0, len(placements))
	for _, pl := range placements {
		cand := Candidate{
			Mix:                    pl.Mix,
			WasteReducedKgPerCycle: wasteKgPerCycle,
			EnergyKWhPerCycle:      energyKWhPerCycle,
			KnowledgeFactor:        knowledgeFactor,
		}
		sim, err := cand.Score(p, feed)
		if err != nil {
			return nil, err
		}
		rows = append(rows, ToShardRow(pl.Mix.ID, pl.Facility, pl.Lat, pl.Lon, pl.Mix, p, sim))
	}
	return rows, nil
}
