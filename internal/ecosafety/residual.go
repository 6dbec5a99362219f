// v2
// internal/ecosafety/residual.go
package ecosafety

// RiskCoordinate is one normalized risk reading for one tick: r in [0,1]
// (0 fully safe, 1 at the hard limit) with its contribution weight into V.
// Param and Channel are carried for reporting only and never affect V.
type RiskCoordinate struct {
	Param   string
	Channel int
	R       float64
	W       float64
}

// Residual is the full coordinate set for one tick plus the aggregated
// scalar V = Σ r_j·w_j. A Residual is immutable once built; callers keep the
// previous tick's value around to drive the trend checks.
type Residual struct {
	Coords []RiskCoordinate
	V      float64
}

// NormalizeCoordinate maps a raw measurement x into the [0,1] corridor
// coordinate for the given parameter and definition.
//
//	DirectionMax: raw = (x − rMin) / (rMax − rMin)
//	DirectionMin: raw = (rMax − x) / (rMax − rMin)
//	r            = clamp(raw, 0, 1)
//
// Readings beyond the raw range clamp to the corridor boundary; they are
// never extrapolated past it. A malformed definition (rMax <= rMin, negative
// weight) aborts the evaluation: a misconfigured corridor must not yield
// a coordinate at all.
func NormalizeCoordinate(p Parameter, def CoordinateDef, x float64) (RiskCoordinate, error) {
	if err := def.Validate(); err != nil {
		return RiskCoordinate{}, err
	}
	denom := def.RMax - def.RMin
	var raw float64
	if p.Direction == DirectionMin {
		raw = (def.RMax - x) / denom
	} else {
		raw = (x - def.RMin) / denom
	}
	return RiskCoordinate{
		Param:   p.Name,
		Channel: def.Channel,
		R:       clamp01(raw),
		W:       def.Weight,
	}, nil
}

// NewResidual aggregates an ordered coordinate set into V = Σ r_j·w_j.
// Summation follows input order so results are bit-reproducible; the sum is
// commutative, so permuting the input only moves floating-point dust.
// An empty set is a configuration error, not a zero-risk tick.
func NewResidual(coords []RiskCoordinate) (Residual, error) {
	if len(coords) == 0 {
		return Residual{}, ErrNoCorridor
	}
	cs := make([]RiskCoordinate, len(coords))
	copy(cs, coords)
	var v float64
	for _, c := range cs {
		v += c.R * c.W
	}
	return Residual{Coords: cs, V: v}, nil
}

// Admissible is the tolerance-aware trend check used by the gate cascade:
// the residual may move sideways or down, and up by at most eps.
// It is not the strict no-increase rule applied by EnforceSafeStep; the two
// checks gate different decisions.
func Admissible(vPrev, vNext, eps float64) bool {
	return vNext <= vPrev+eps
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
