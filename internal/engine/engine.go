// v1
// internal/engine/engine.go
// Package engine evaluates one deployment region for one tick: it normalizes
// the region's corridor readings, aggregates the residual, derives the band
// flags, runs the safe-step and gate cascade, and steps the device fleet's
// duty cycles. Tick is a pure function over an explicit State value; the
// caller owns scheduling, transport and any locking. On error the returned
// State is the input State unchanged.
package engine

import (
	"fmt"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/control"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/ecosafety"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/region"
)

// Config is the static evaluation setup for one region. Build it once at
// startup, validate it, and treat it as read-only afterwards.
type Config struct {
	Region region.Profile

	// Corridor tables: parameters by name plus the ordered coordinate
	// definitions that bind them into the residual.
	Params map[string]ecosafety.Parameter
	Defs   []ecosafety.CoordinateDef

	// Epsilon for the cascade's admissibility check.
	Eps float64

	// BootstrapV seeds the previous residual before the first tick.
	BootstrapV float64

	Controller control.Controller

	// Lifecycle comparison pair. HasLCA false means no scenarios are
	// configured; the lifecycle verdict is then false and the gates that
	// need it stay shut.
	LCABase ecosafety.Scenario
	LCACand ecosafety.Scenario
	HasLCA  bool

	PilotReady bool
}

// Validate checks the corridor tables once so Tick can assume them sound.
func (c Config) Validate() error {
	if err := c.Region.Validate(); err != nil {
		return err
	}
	if len(c.Defs) == 0 {
		return ecosafety.ErrNoCorridor
	}
	if c.Eps < 0 {
		return fmt.Errorf("eps must be non-negative, got %g", c.Eps)
	}
	for _, def := range c.Defs {
		if err := def.Validate(); err != nil {
			return err
		}
		p, ok := c.Params[def.ParamName]
		if !ok {
			return fmt.Errorf("coordinate %d references unknown parameter %q", def.ID, def.ParamName)
		}
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return c.Controller.Validate()
}

// State is everything that survives from tick to tick: the previous
// residual and the per-machine duty cycles.
type State struct {
	Prev   ecosafety.Residual
	Duties map[string]float64
}

// NewState seeds the tick chain. The bootstrap residual carries no
// coordinates, only the configured V, so the first safe-step check runs
// against the configured baseline.
func NewState(bootstrapV float64) State {
	return State{
		Prev:   ecosafety.Residual{V: bootstrapV},
		Duties: map[string]float64{},
	}
}

// Input is one tick's worth of measurements.
type Input struct {
	// Readings maps parameter name to the raw measurement. Every parameter
	// named by a coordinate definition must be present.
	Readings map[string]float64

	// Rows is the fleet snapshot for this tick, one row per machine.
	Rows []control.DeviceRow
}

// Output is the full evaluation of one tick.
type Output struct {
	Residual ecosafety.Residual
	Decision ecosafety.Decision
	Flags    ecosafety.Flags
	Gates    ecosafety.Gates
	LCAOK    bool

	Nodes        []control.NodeState
	UnknownUnits int
	Totals       control.FleetTotals
}

// Tick evaluates one round. The corridor side aborts on any precondition
// violation (unknown parameter, missing reading, malformed definition,
// incomparable lifecycle scenarios) and leaves the state untouched. Unknown
// device units do not abort: they zero that node's mass and are counted in
// the output.
func Tick(cfg Config, st State, in Input) (State, Output, error) {
	coords := make([]ecosafety.RiskCoordinate, 0, len(cfg.Defs))
	flags := ecosafety.Flags{CorridorOK: true, LegalOK: true, GoldOK: true}

	for _, def := range cfg.Defs {
		p, ok := cfg.Params[def.ParamName]
		if !ok {
			return st, Output{}, fmt.Errorf("coordinate %d references unknown parameter %q", def.ID, def.ParamName)
		}
		x, ok := in.Readings[def.ParamName]
		if !ok {
			return st, Output{}, fmt.Errorf("no reading for parameter %q", def.ParamName)
		}
		c, err := ecosafety.NormalizeCoordinate(p, def, x)
		if err != nil {
			return st, Output{}, err
		}
		coords = append(coords, c)

		if c.R >= 1.0 {
			flags.CorridorOK = false
		}
		if p.LegalLimit != nil && p.Exceeds(x, *p.LegalLimit) {
			flags.LegalOK = false
		}
		if p.GoldLimit != nil && p.Exceeds(x, *p.GoldLimit) {
			flags.GoldOK = false
		}
	}

	next, err := ecosafety.NewResidual(coords)
	if err != nil {
		return st, Output{}, err
	}

	lcaOK := false
	if cfg.HasLCA {
		lcaOK, err = ecosafety.LifecycleOK(cfg.LCABase, cfg.LCACand)
		if err != nil {
			return st, Output{}, err
		}
	}

	out := Output{
		Residual: next,
		Decision: ecosafety.EnforceSafeStep(st.Prev, next),
		Flags:    flags,
		Gates:    ecosafety.ComputeGates(flags, st.Prev.V, next.V, cfg.Eps, lcaOK, cfg.PilotReady),
		LCAOK:    lcaOK,
	}

	nodes := make([]control.NodeState, len(in.Rows))
	for i, row := range in.Rows {
		nodes[i] = control.NodeState{Row: row, Duty: st.Duties[row.MachineID]}
	}
	unknown, err := cfg.Controller.StepAll(nodes)
	if err != nil {
		return st, Output{}, err
	}
	out.Nodes = nodes
	out.UnknownUnits = unknown
	out.Totals = control.TotalFleet(nodes)

	// Machines absent from this tick keep their last duty for when they
	// report again.
	duties := make(map[string]float64, len(st.Duties)+len(nodes))
	for id, u := range st.Duties {
		duties[id] = u
	}
	for _, n := range nodes {
		duties[n.Row.MachineID] = n.Duty
	}

	return State{Prev: next, Duties: duties}, out, nil
}
