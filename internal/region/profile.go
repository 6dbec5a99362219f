// v1
// internal/region/profile.go
// Package region holds the per-deployment-region constants the corridor and
// tray-line models evaluate against, plus the environment feeds that supply
// live readings. A Profile is a closed value: define it once, read it
// everywhere, never mutate it at runtime.
package region

import (
	"errors"
	"fmt"
)

// ErrUnknownRegion is returned by Lookup for a code with no profile.
var ErrUnknownRegion = errors.New("unknown region code")

// Profile is one deployment region's operating envelope. Code is the short
// tag used in topic keys and shard tables; Name is the full reporting label.
type Profile struct {
	Code string `json:"code"`
	Name string `json:"name"`

	// Compost corridor.
	CompostTempMinC float64 `json:"compost_temp_min_c"`
	CompostTempMaxC float64 `json:"compost_temp_max_c"`
	MoistureMin     float64 `json:"moisture_min"`
	MoistureMax     float64 `json:"moisture_max"`
	O2MinPct        float64 `json:"o2_min_pct"`

	// Canal water corridor.
	CanalPHMin          float64 `json:"canal_ph_min"`
	CanalPHMax          float64 `json:"canal_ph_max"`
	TDSMinMgL           float64 `json:"tds_min_mg_l"`
	TDSMaxMgL           float64 `json:"tds_max_mg_l"`
	TrayResidualCrefMgL float64 `json:"tray_residual_cref_mg_l"`

	// Canal micro-hydro unit. Area and velocity are the design defaults the
	// static feed reports; telemetry replaces them per site.
	WaterDensityKgM3  float64 `json:"water_density_kg_m3"`
	DefaultAreaM2     float64 `json:"default_area_m2"`
	DefaultVelocityMS float64 `json:"default_velocity_m_s"`
	PowerCoefficient  float64 `json:"power_coefficient"`

	// Biodegradation targets, days to 90% mass loss.
	T90TargetDays float64 `json:"t90_target_days"`
	T90HardDays   float64 `json:"t90_hard_days"`

	// Toxicity-proxy corridor.
	RtoxSafe float64 `json:"rtox_safe"`
	RtoxGold float64 `json:"rtox_gold"`
	RtoxHard float64 `json:"rtox_hard"`

	// Award scale.
	KarmaPerKg float64 `json:"karma_per_kg"`
}

// Phoenix is the reference deployment: Sonoran-desert composting, SRP canal
// water, summer grid.
func Phoenix() Profile {
	return Profile{
		Code:                "PHX",
		Name:                "Phoenix-AZ-US",
		CompostTempMinC:     45,
		CompostTempMaxC:     60,
		MoistureMin:         0.45,
		MoistureMax:         0.65,
		O2MinPct:            10,
		CanalPHMin:          7.2,
		CanalPHMax:          8.3,
		TDSMinMgL:           500,
		TDSMaxMgL:           900,
		TrayResidualCrefMgL: 50,
		WaterDensityKgM3:    1000,
		DefaultAreaM2:       2,
		DefaultVelocityMS:   2,
		PowerCoefficient:    0.4,
		T90TargetDays:       90,
		T90HardDays:         180,
		RtoxSafe:            0.05,
		RtoxGold:            0.10,
		RtoxHard:            0.20,
		KarmaPerKg:          6.7e5,
	}
}

// Tucson runs the same Sonoran composting envelope as Phoenix but draws CAP
// canal water, which carries more dissolved solids and moves slower through
// the smaller laterals.
func Tucson() Profile {
	p := Phoenix()
	p.Code = "TUS"
	p.Name = "Tucson-AZ-US"
	p.TDSMinMgL = 550
	p.TDSMaxMgL = 950
	p.DefaultAreaM2 = 1.5
	p.DefaultVelocityMS = 1.6
	return p
}

// Lookup resolves a region code. Codes match case-sensitively; the shard
// tables carry them uppercase.
func Lookup(code string) (Profile, error) {
	switch code {
	case "PHX":
		return Phoenix(), nil
	case "TUS":
		return Tucson(), nil
	default:
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownRegion, code)
	}
}

// Validate rejects profiles whose corridor ranges are empty or whose
// toxicity bands are out of order.
func (p Profile) Validate() error {
	if p.Code == "" {
		return errors.New("region code must not be empty")
	}
	if p.CompostTempMaxC <= p.CompostTempMinC {
		return fmt.Errorf("region %s: compost temperature range [%g,%g] is empty", p.Code, p.CompostTempMinC, p.CompostTempMaxC)
	}
	if p.MoistureMax <= p.MoistureMin {
		return fmt.Errorf("region %s: moisture range [%g,%g] is empty", p.Code, p.MoistureMin, p.MoistureMax)
	}
	if p.CanalPHMax <= p.CanalPHMin {
		return fmt.Errorf("region %s: canal pH range [%g,%g] is empty", p.Code, p.CanalPHMin, p.CanalPHMax)
	}
	if p.TDSMaxMgL <= p.TDSMinMgL {
		return fmt.Errorf("region %s: TDS range [%g,%g] is empty", p.Code, p.TDSMinMgL, p.TDSMaxMgL)
	}
	if p.T90HardDays <= p.T90TargetDays {
		return fmt.Errorf("region %s: t90 hard bound %g must exceed target %g", p.Code, p.T90HardDays, p.T90TargetDays)
	}
	if !(p.RtoxSafe < p.RtoxGold && p.RtoxGold < p.RtoxHard) {
		return fmt.Errorf("region %s: rtox bands %g/%g/%g out of order", p.Code, p.RtoxSafe, p.RtoxGold, p.RtoxHard)
	}
	return nil
}
