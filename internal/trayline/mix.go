// v1
// internal/trayline/mix.go
// Package trayline models the compost tray-line side of a deployment:
// first-order biodegradation kinetics, a toxicity-corridor proxy, recipe
// scoring, and the mapping of scored recipes into qpudatashard rows.
//
// Per recipe, against a region profile and an environment feed:
//
//	k    = 0.05 · 2^((T−25)/10)                     [1/day, Q10 kinetics]
//	t90  = ln(10)/k · (1 + 0.5·mineral)             [days to 90% mass loss]
//	rtox = scale(0.02 + 0.05·mineral + 0.01·protein) into [0,1] across
//	       the region's safe..hard toxicity band
//
// Risk of harm trips when t90 exceeds the hard limit or rtox exceeds the
// gold band; a tripped recipe scores zero eco-impact regardless of the
// waste it diverts.
package trayline

import (
	"errors"
	"fmt"
)

// MaterialMix is one tray recipe: dry-mass fractions of the four feedstock
// classes plus shard identity.
type MaterialMix struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	FiberFrac   float64 `json:"fiber_frac"`
	StarchFrac  float64 `json:"starch_frac"`
	ProteinFrac float64 `json:"protein_frac"`
	MineralFrac float64 `json:"mineral_frac"`
}

// Validate rejects mixes whose fractions leave [0,1] or do not add up to a
// full recipe. A small slack absorbs shard rounding.
func (m MaterialMix) Validate() error {
	if m.ID == "" {
		return errors.New("material mix id must not be empty")
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"fiber", m.FiberFrac},
		{"starch", m.StarchFrac},
		{"protein", m.ProteinFrac},
		{"mineral", m.MineralFrac},
	} {
		if f.v < 0 || f.v > 1 {
			return fmt.Errorf("mix %s: %s fraction %g outside [0,1]", m.ID, f.name, f.v)
		}
	}
	sum := m.FiberFrac + m.StarchFrac + m.ProteinFrac + m.MineralFrac
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("mix %s: fractions sum to %g, want 1", m.ID, sum)
	}
	return nil
}
