// v1
// internal/engine/engine_test.go
package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/control"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/ecosafety"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/region"
)

func testConfig() Config {
	pmLegal, pmGold := 35.0, 12.0
	tdsLegal := 900.0
	return Config{
		Region: region.Phoenix(),
		Params: map[string]ecosafety.Parameter{
			"pm25": {
				Name: "pm25", Unit: "ugm3", DomainMin: 0, DomainMax: 500,
				LegalLimit: &pmLegal, GoldLimit: &pmGold, Direction: ecosafety.DirectionMax,
			},
			"tds": {
				Name: "tds", Unit: "mgm3", DomainMin: 0, DomainMax: 2000,
				LegalLimit: &tdsLegal, Direction: ecosafety.DirectionMax,
			},
		},
		Defs: []ecosafety.CoordinateDef{
			{ID: 1, ParamName: "pm25", RMin: 0, RMax: 50, Weight: 1.0, Channel: 0},
			{ID: 2, ParamName: "tds", RMin: 500, RMax: 900, Weight: 0.2, Channel: 1},
		},
		Eps:        0,
		BootstrapV: 0.15,
		Controller: control.NewController(),
		LCABase: ecosafety.Scenario{
			ID: "phx-base", RegionID: "PHX",
			FunctionalUnit: ecosafety.FunctionalUnitMSWTon,
			Mode:           ecosafety.ModeStatusQuo, GWPKgCO2eq: 612,
		},
		LCACand: ecosafety.Scenario{
			ID: "phx-cand", RegionID: "PHX",
			FunctionalUnit: ecosafety.FunctionalUnitMSWTon,
			Mode:           ecosafety.ModeCybocinder, GWPKgCO2eq: 474,
		},
		HasLCA:     true,
		PilotReady: true,
	}
}

// Readings that map to pm25 r=0.05·scale and tds r=0.5: V = scale·0.05 + 0.10.
func readingsForV(pm25 float64) map[string]float64 {
	return map[string]float64{"pm25": pm25, "tds": 700}
}

func TestConfigValidates(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("reference config must validate: %v", err)
	}

	broken := testConfig()
	broken.Defs = append(broken.Defs, ecosafety.CoordinateDef{ID: 3, ParamName: "ozone", RMin: 0, RMax: 1, Weight: 1})
	if err := broken.Validate(); err == nil {
		t.Fatal("dangling parameter reference must not validate")
	}

	broken = testConfig()
	broken.Eps = -0.01
	if err := broken.Validate(); err == nil {
		t.Fatal("negative eps must not validate")
	}
}

func TestTickResidualTrajectory(t *testing.T) {
	cfg := testConfig()
	st := NewState(cfg.BootstrapV)

	// pm25 x=2.5 -> r=0.05, tds 700 -> r=0.5: V = 0.05 + 0.10 = 0.15.
	st, out, err := Tick(cfg, st, Input{Readings: readingsForV(2.5)})
	if err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	if math.Abs(out.Residual.V-0.15) > 1e-12 {
		t.Fatalf("tick 1: expected V=0.15, got %g", out.Residual.V)
	}
	if out.Decision.Derate || out.Decision.Stop {
		t.Fatalf("tick 1 holds the bootstrap level, got %+v", out.Decision)
	}
	if !out.Gates.Safety || !out.Gates.ScaleUp || !out.Gates.Deployment {
		t.Fatalf("tick 1: all gates must open, got %+v", out.Gates)
	}

	// pm25 x=5 -> r=0.10: V = 0.20, a strict increase.
	st, out, err = Tick(cfg, st, Input{Readings: readingsForV(5)})
	if err != nil {
		t.Fatalf("tick 2: %v", err)
	}
	if math.Abs(out.Residual.V-0.20) > 1e-12 {
		t.Fatalf("tick 2: expected V=0.20, got %g", out.Residual.V)
	}
	if !out.Decision.Derate || out.Decision.Stop {
		t.Fatalf("tick 2 must derate on the rise, got %+v", out.Decision)
	}
	if out.Gates.Safety {
		t.Fatal("tick 2: rising V at eps=0 must shut safety")
	}

	// pm25 x=0 -> r=0: V = 0.10, recovering.
	_, out, err = Tick(cfg, st, Input{Readings: readingsForV(0)})
	if err != nil {
		t.Fatalf("tick 3: %v", err)
	}
	if math.Abs(out.Residual.V-0.10) > 1e-12 {
		t.Fatalf("tick 3: expected V=0.10, got %g", out.Residual.V)
	}
	if !out.Gates.Safety || !out.Gates.ScaleUp {
		t.Fatalf("tick 3: recovery must reopen the gates, got %+v", out.Gates)
	}
	if out.Decision.Reason != ecosafety.ReasonWithin {
		t.Fatalf("tick 3: expected %q, got %q", ecosafety.ReasonWithin, out.Decision.Reason)
	}
}

func TestTickBandFlags(t *testing.T) {
	cfg := testConfig()
	st := NewState(1.0)

	// pm25 15 µg/m³: above gold 12, below legal 35, r=0.3.
	_, out, err := Tick(cfg, st, Input{Readings: readingsForV(15)})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !out.Flags.CorridorOK || !out.Flags.LegalOK || out.Flags.GoldOK {
		t.Fatalf("expected only gold breached, got %+v", out.Flags)
	}
	if !out.Gates.Safety || out.Gates.ScaleUp {
		t.Fatalf("gold breach shuts scale-up only, got %+v", out.Gates)
	}

	// pm25 40 µg/m³: above legal, r=0.8.
	_, out, err = Tick(cfg, st, Input{Readings: readingsForV(40)})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !out.Flags.CorridorOK || out.Flags.LegalOK {
		t.Fatalf("expected legal breached with corridor intact, got %+v", out.Flags)
	}

	// pm25 50 µg/m³: at the hard limit, r=1.0.
	_, out, err = Tick(cfg, st, Input{Readings: readingsForV(50)})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if out.Flags.CorridorOK {
		t.Fatal("r=1.0 must break the corridor flag")
	}
	if !out.Decision.Stop || out.Decision.Reason != ecosafety.ReasonHardLimit {
		t.Fatalf("expected hard-limit stop, got %+v", out.Decision)
	}
}

func TestTickMissingReadingAborts(t *testing.T) {
	cfg := testConfig()
	st := NewState(cfg.BootstrapV)

	st2, _, err := Tick(cfg, st, Input{Readings: map[string]float64{"pm25": 2.5}})
	if err == nil {
		t.Fatal("a missing tds reading must abort the tick")
	}
	if st2.Prev.V != st.Prev.V {
		t.Fatalf("failed tick must leave state untouched: %g vs %g", st2.Prev.V, st.Prev.V)
	}
}

func TestTickLCAMismatchAborts(t *testing.T) {
	cfg := testConfig()
	cfg.LCACand.RegionID = "TUS"
	st := NewState(cfg.BootstrapV)

	_, _, err := Tick(cfg, st, Input{Readings: readingsForV(2.5)})
	if !errors.Is(err, ecosafety.ErrScenarioMismatch) {
		t.Fatalf("expected ErrScenarioMismatch, got %v", err)
	}
}

func TestTickWithoutLCAKeepsDependentGatesShut(t *testing.T) {
	cfg := testConfig()
	cfg.HasLCA = false
	st := NewState(cfg.BootstrapV)

	_, out, err := Tick(cfg, st, Input{Readings: readingsForV(2.5)})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if out.LCAOK {
		t.Fatal("no scenarios, no lifecycle verdict")
	}
	if !out.Gates.Safety {
		t.Fatal("safety does not depend on the lifecycle verdict")
	}
	if out.Gates.ScaleUp || out.Gates.Deployment {
		t.Fatalf("lifecycle-dependent gates must stay shut, got %+v", out.Gates)
	}
}

func TestTickDutyPersistsAcrossTicks(t *testing.T) {
	cfg := testConfig()
	st := NewState(cfg.BootstrapV)
	row := control.DeviceRow{
		MachineID: "CYB-AX-001", DeviceType: "CyboAir", Location: "PHX-School-01",
		Pollutant: "PM2.5", CIn: 25, COut: 15, Unit: "ugm3",
		AirflowM3s: 0.1, PeriodS: 3600, LambdaHazard: 1.2, BetaPerKg: 6.7e5,
	}

	st, out, err := Tick(cfg, st, Input{Readings: readingsForV(2.5), Rows: []control.DeviceRow{row}})
	if err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	first := out.Nodes[0].Duty
	if first <= 0 {
		t.Fatalf("expected a positive duty after tick 1, got %g", first)
	}

	// Machine missing this tick: its duty survives in state.
	st, _, err = Tick(cfg, st, Input{Readings: readingsForV(2.5)})
	if err != nil {
		t.Fatalf("tick 2: %v", err)
	}
	if st.Duties[row.MachineID] != first {
		t.Fatalf("absent machine must keep its duty, got %g want %g", st.Duties[row.MachineID], first)
	}

	// Back again: integration continues from the kept value.
	_, out, err = Tick(cfg, st, Input{Readings: readingsForV(2.5), Rows: []control.DeviceRow{row}})
	if err != nil {
		t.Fatalf("tick 3: %v", err)
	}
	if out.Nodes[0].Duty <= first {
		t.Fatalf("duty must integrate upward from %g, got %g", first, out.Nodes[0].Duty)
	}
}

func TestTickCountsUnitGaps(t *testing.T) {
	cfg := testConfig()
	st := NewState(cfg.BootstrapV)
	rows := []control.DeviceRow{
		{MachineID: "a", Location: "Downtown", Unit: "ugm3", CIn: 20, COut: 10, AirflowM3s: 0.1, PeriodS: 3600},
		{MachineID: "b", Location: "Downtown", Unit: "parsecs", CIn: 20, COut: 10, AirflowM3s: 0.1, PeriodS: 3600},
	}

	_, out, err := Tick(cfg, st, Input{Readings: readingsForV(2.5), Rows: rows})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if out.UnknownUnits != 1 {
		t.Fatalf("expected 1 unit gap, got %d", out.UnknownUnits)
	}
	if out.Totals.Nodes != 2 {
		t.Fatalf("totals must cover the whole fleet, got %d", out.Totals.Nodes)
	}
	if out.Nodes[1].MassKg != 0 {
		t.Fatalf("unit-gap node must carry zero mass, got %g", out.Nodes[1].MassKg)
	}
}

func TestTickDeterministic(t *testing.T) {
	cfg := testConfig()
	in := Input{Readings: readingsForV(2.5), Rows: []control.DeviceRow{
		{MachineID: "a", Location: "Farm-12", Unit: "ugm3", CIn: 20, COut: 10, AirflowM3s: 0.1, PeriodS: 3600, LambdaHazard: 1, BetaPerKg: 1e5},
	}}

	_, out1, err := Tick(cfg, NewState(cfg.BootstrapV), in)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	_, out2, err := Tick(cfg, NewState(cfg.BootstrapV), in)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if out1.Residual.V != out2.Residual.V || out1.Nodes[0].Duty != out2.Nodes[0].Duty {
		t.Fatalf("identical inputs must evaluate identically: %+v vs %+v", out1, out2)
	}
}
