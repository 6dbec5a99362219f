// v1
// internal/ecosafety/lca.go
package ecosafety

import (
	"errors"
	"fmt"
)

// Functional units a lifecycle scenario can be normalized to. A comparison
// is only defined between scenarios on the same basis.
const (
	FunctionalUnitMSWTon     = "MSW_TON"     // one tonne of municipal solid waste handled
	FunctionalUnitEnergyMWh  = "ENERGY_MWH"  // one MWh of delivered energy
	FunctionalUnitResourceKg = "RESOURCE_KG" // one kg of recovered resource
)

// Scenario mode tags. A comparison pairs exactly one baseline with one
// candidate.
const (
	ModeStatusQuo  = "STATUS_QUO"
	ModeCybocinder = "CYBOCINDER"
)

// ErrScenarioMismatch flags a lifecycle comparison whose inputs are not
// comparable. Callers abort the tick; the predicate never degrades a
// mismatch into a false verdict.
var ErrScenarioMismatch = errors.New("lca scenarios not comparable")

// Scenario is one fully aggregated lifecycle assessment: region, functional
// unit, mode tag and the resulting GWP total, plus the coefficients the
// total was built from. The coefficients ride along for reporting; nothing
// here re-derives the total from them.
type Scenario struct {
	ID             string  `json:"scenario_id"`
	RegionID       string  `json:"region_id"`
	FunctionalUnit string  `json:"functional_unit"`
	Mode           string  `json:"mode"`
	GWPKgCO2eq     float64 `json:"gwp_kg_co2_eq"`

	GridGCO2PerKWh     float64 `json:"grid_gco2_per_kwh"`
	LandfillRefGWP     float64 `json:"landfill_ref_gwp"`
	AvoidedVirginMetal float64 `json:"avoided_virgin_metal"`
	EnergyRecoveryEff  float64 `json:"energy_recovery_efficiency"`
	RecyclingRate      float64 `json:"recycling_rate"`
}

// LifecycleOK reports whether the candidate scenario beats the baseline on
// greenhouse-gas potential: cand.GWPKgCO2eq strictly below base.GWPKgCO2eq.
//
// Preconditions, each reported as a wrapped ErrScenarioMismatch: both
// scenarios share region and functional unit, base carries ModeStatusQuo
// and cand carries ModeCybocinder. This is a one-shot predicate over two
// scenario totals, not a tick-to-tick trend.
func LifecycleOK(base, cand Scenario) (bool, error) {
	if base.RegionID != cand.RegionID {
		return false, fmt.Errorf("%w: region %q vs %q", ErrScenarioMismatch, base.RegionID, cand.RegionID)
	}
	if base.FunctionalUnit != cand.FunctionalUnit {
		return false, fmt.Errorf("%w: functional unit %q vs %q", ErrScenarioMismatch, base.FunctionalUnit, cand.FunctionalUnit)
	}
	if base.Mode != ModeStatusQuo {
		return false, fmt.Errorf("%w: baseline tagged %q, want %s", ErrScenarioMismatch, base.Mode, ModeStatusQuo)
	}
	if cand.Mode != ModeCybocinder {
		return false, fmt.Errorf("%w: candidate tagged %q, want %s", ErrScenarioMismatch, cand.Mode, ModeCybocinder)
	}
	return cand.GWPKgCO2eq < base.GWPKgCO2eq, nil
}
