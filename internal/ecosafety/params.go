// v1
// internal/ecosafety/params.go
// Package ecosafety implements the corridor-gated risk model: dimensionless
// risk coordinates, the Lyapunov-style residual V, the hard-corridor safe-step
// check, the lifecycle (LCA) comparison gate, and the safety/scale-up/deployment
// gate cascade. Everything here is pure and synchronous: one tick of inputs in,
// one decision out. Transport, scheduling, and rendering live elsewhere.
package ecosafety

import (
	"errors"
	"fmt"
)

// Direction states which end of a parameter's range is dangerous.
type Direction string

const (
	// DirectionMax means higher readings push risk up (e.g. PM2.5, TDS).
	DirectionMax Direction = "MAX"
	// DirectionMin means lower readings push risk up (e.g. dissolved O2).
	DirectionMin Direction = "MIN"
)

var (
	// ErrNoCorridor is returned when a residual is requested over an empty
	// coordinate set. A deployment with no defined corridor must never be
	// evaluable: no corridor, no decision.
	ErrNoCorridor = errors.New("no risk coordinates: no corridor, no decision")
	// ErrBadBounds is returned when a coordinate definition has rMax <= rMin.
	ErrBadBounds = errors.New("invalid normalization bounds: rMax must exceed rMin")
	// ErrNegativeWeight is returned when a coordinate definition carries w < 0.
	ErrNegativeWeight = errors.New("negative coordinate weight")
)

// Parameter describes one physical quantity tracked by a deployment region:
// its unit, admissible domain, optional legal and gold (aspirational) limits,
// and which direction is dangerous. Parameters are defined once per region
// and never mutated afterwards.
type Parameter struct {
	Name      string
	Unit      string
	DomainMin float64
	DomainMax float64
	// LegalLimit and GoldLimit are nil when the region defines no such band
	// for this parameter.
	LegalLimit *float64
	GoldLimit  *float64
	Direction  Direction
}

// Validate reports configuration mistakes that would make every later
// evaluation of this parameter meaningless.
func (p Parameter) Validate() error {
	if p.Name == "" {
		return errors.New("parameter name must not be empty")
	}
	if p.DomainMax <= p.DomainMin {
		return fmt.Errorf("parameter %s: domain [%g,%g] is empty", p.Name, p.DomainMin, p.DomainMax)
	}
	switch p.Direction {
	case DirectionMax, DirectionMin:
	default:
		return fmt.Errorf("parameter %s: unknown direction %q", p.Name, p.Direction)
	}
	return nil
}

// Exceeds reports whether the raw reading x lies beyond the given limit on the
// dangerous side of this parameter. Callers pass the legal or gold limit.
func (p Parameter) Exceeds(x, limit float64) bool {
	if p.Direction == DirectionMin {
		return x < limit
	}
	return x > limit
}

// CoordinateDef binds a parameter to the corridor model: the raw range
// [RMin,RMax] mapped onto [0,1], the contribution weight into V, and the
// aggregation channel used for grouping in reports.
type CoordinateDef struct {
	ID        int
	ParamName string
	RMin      float64
	RMax      float64
	Weight    float64
	Channel   int
}

// Validate checks the definition invariants shared by every normalization:
// a non-empty raw range and a non-negative weight.
func (d CoordinateDef) Validate() error {
	if d.RMax <= d.RMin {
		return fmt.Errorf("%w: coordinate %s has rMin=%g rMax=%g", ErrBadBounds, d.ParamName, d.RMin, d.RMax)
	}
	if d.Weight < 0 {
		return fmt.Errorf("%w: coordinate %s has w=%g", ErrNegativeWeight, d.ParamName, d.Weight)
	}
	return nil
}
