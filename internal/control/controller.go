// v1
// internal/control/controller.go
// Package control implements the per-device side of the platform: unit
// conversion, mass-removal and karma operators, and the saturating
// duty-cycle integrator. Everything is pure arithmetic over one measurement
// row; transport and persistence live elsewhere.
//
// Per tick and per node:
//
//	mass  = max(Cin − Cout, 0) · factor(unit) · airflow · period      [kg]
//	karma = λ_hazard · β_per_kg · mass                                 [NanoKarmaBytes]
//	duty' = clamp(duty + η1·mass/mRef + η2·karma/kRef + η3·w_geo − η4·cPower, 0, 1)
//
// The integrator saturates hard at [0,1]: once clamped, the overshoot is
// discarded, no windup memory is kept beyond the clamped value itself.
package control

import "fmt"

// DeviceRow is one fleet measurement row, column for column as carried by
// the qpudatashard CSVs and the readings topic.
type DeviceRow struct {
	MachineID    string  `json:"machineid"`
	DeviceType   string  `json:"type"`
	Location     string  `json:"location"`
	Pollutant    string  `json:"pollutant"`
	CIn          float64 `json:"cin"`
	COut         float64 `json:"cout"`
	Unit         string  `json:"unit"`
	AirflowM3s   float64 `json:"airflow_m3_per_s"`
	PeriodS      float64 `json:"period_s"`
	LambdaHazard float64 `json:"lambda_hazard"`
	BetaPerKg    float64 `json:"beta_nb_per_kg"`
	EcoScore     float64 `json:"ecoimpact_score"`
	Notes        string  `json:"notes,omitempty"`
}

// NodeState is the controller's view of one device: the current measurement
// row plus everything derived from it this tick. Duty persists across ticks;
// every other derived field is overwritten each Step.
type NodeState struct {
	Row        DeviceRow `json:"row"`
	MassKg     float64   `json:"mass_kg"`
	KarmaBytes float64   `json:"karma_bytes"`
	GeoWeight  float64   `json:"geo_weight"`
	PowerCost  float64   `json:"power_cost"`
	Duty       float64   `json:"duty_cycle"`
}

// Gains are the four non-negative integrator gains η1..η4.
type Gains struct {
	Mass  float64 `json:"eta_mass"`
	Karma float64 `json:"eta_karma"`
	Geo   float64 `json:"eta_geo"`
	Power float64 `json:"eta_power"`
}

// References scale mass and karma into dimensionless integrator increments.
// A non-positive reference disables its term rather than dividing by it.
type References struct {
	MassRefKg float64 `json:"mass_ref_kg"`
	KarmaRef  float64 `json:"karma_ref"`
}

// Env carries the ideal-gas constants the ppb conversion needs.
type Env struct {
	TemperatureK      float64 `json:"temperature_k"`
	MolarMassKgPerMol float64 `json:"molar_mass_kg_per_mol"`
}

// Reference tuning. Desert-summer ambient temperature, NO2 molar mass.
func DefaultGains() Gains           { return Gains{Mass: 0.1, Karma: 0.1, Geo: 0.2, Power: 0.05} }
func DefaultReferences() References { return References{MassRefKg: 1e-6, KarmaRef: 1e10} }
func DefaultEnv() Env               { return Env{TemperatureK: 310.0, MolarMassKgPerMol: 0.048} }

// Controller steps NodeStates. The zero value is not usable; build one with
// NewController and override fields as needed.
type Controller struct {
	Gains     Gains
	Refs      References
	Env       Env
	GeoWeight GeoWeightFunc
	PowerCost PowerCostFunc
}

// NewController returns a controller with the reference tuning, tag-based
// geo weights and the fixed power-cost policy.
func NewController() Controller {
	return Controller{
		Gains:     DefaultGains(),
		Refs:      DefaultReferences(),
		Env:       DefaultEnv(),
		GeoWeight: GeoWeightFromTags,
		PowerCost: FixedPowerCost(0.3),
	}
}

// Validate rejects tunings that would corrupt every later Step.
func (c Controller) Validate() error {
	if c.Gains.Mass < 0 || c.Gains.Karma < 0 || c.Gains.Geo < 0 || c.Gains.Power < 0 {
		return fmt.Errorf("integrator gains must be non-negative, got %+v", c.Gains)
	}
	if c.GeoWeight == nil || c.PowerCost == nil {
		return fmt.Errorf("controller needs geo-weight and power-cost strategies")
	}
	return nil
}

// Step recomputes the derived fields of st from its current row and advances
// the duty cycle once. Only st is mutated, nothing else is touched.
//
// An unknown concentration unit still steps the node: the zero factor zeroes
// mass and karma while the geo and power terms keep acting, and the unit
// error is returned for the caller to log and count. Any other conversion
// error aborts the step with st unchanged.
func (c Controller) Step(st *NodeState) error {
	factor, ferr := MassFactor(st.Row.Unit, c.Env.MolarMassKgPerMol, c.Env.TemperatureK)
	if ferr != nil && !IsUnknownUnit(ferr) {
		return ferr
	}

	delta := st.Row.CIn - st.Row.COut
	if delta < 0 {
		delta = 0
	}
	st.MassKg = delta * factor * st.Row.AirflowM3s * st.Row.PeriodS
	st.KarmaBytes = st.Row.LambdaHazard * st.Row.BetaPerKg * st.MassKg
	st.GeoWeight = c.GeoWeight(st.Row.Location)
	st.PowerCost = c.PowerCost(st.Row)

	u := st.Duty
	if c.Refs.MassRefKg > 0 {
		u += c.Gains.Mass * st.MassKg / c.Refs.MassRefKg
	}
	if c.Refs.KarmaRef > 0 {
		u += c.Gains.Karma * st.KarmaBytes / c.Refs.KarmaRef
	}
	u += c.Gains.Geo * st.GeoWeight
	u -= c.Gains.Power * st.PowerCost
	st.Duty = clamp01(u)

	return ferr
}

// StepAll steps every node in order and returns the number of rows whose
// unit tag had no conversion. A non-unit error aborts at the offending node.
func (c Controller) StepAll(nodes []NodeState) (unknownUnits int, err error) {
	for i := range nodes {
		if serr := c.Step(&nodes[i]); serr != nil {
			if !IsUnknownUnit(serr) {
				return unknownUnits, fmt.Errorf("node %s: %w", nodes[i].Row.MachineID, serr)
			}
			unknownUnits++
		}
	}
	return unknownUnits, nil
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
