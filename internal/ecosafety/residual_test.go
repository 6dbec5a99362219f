// v1
// internal/ecosafety/residual_test.go
package ecosafety

import (
	"errors"
	"math"
	"testing"
)

func pm25Param() Parameter {
	legal := 35.0
	gold := 12.0
	return Parameter{
		Name:       "pm25",
		Unit:       "ugm3",
		DomainMin:  0,
		DomainMax:  500,
		LegalLimit: &legal,
		GoldLimit:  &gold,
		Direction:  DirectionMax,
	}
}

func TestNormalizeCoordinateMidRange(t *testing.T) {
	def := CoordinateDef{ID: 1, ParamName: "pm25", RMin: 0, RMax: 50, Weight: 1.0, Channel: 0}
	c, err := NormalizeCoordinate(pm25Param(), def, 25.0)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if math.Abs(c.R-0.5) > 1e-12 {
		t.Fatalf("expected r=0.5 at mid range, got %g", c.R)
	}
	if c.Param != "pm25" || c.W != 1.0 {
		t.Fatalf("coordinate lost its identity: %+v", c)
	}
}

func TestNormalizeCoordinateMinDirection(t *testing.T) {
	p := Parameter{Name: "dissolved_o2", Unit: "mgm3", DomainMin: 0, DomainMax: 20, Direction: DirectionMin}
	def := CoordinateDef{ID: 2, ParamName: p.Name, RMin: 2, RMax: 10, Weight: 0.5, Channel: 1}

	c, err := NormalizeCoordinate(p, def, 10.0)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if c.R != 0 {
		t.Fatalf("reading at rMax should be fully safe for a MIN parameter, got r=%g", c.R)
	}
	c, err = NormalizeCoordinate(p, def, 4.0)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if math.Abs(c.R-0.75) > 1e-12 {
		t.Fatalf("expected r=0.75 at x=4, got %g", c.R)
	}
}

func TestNormalizeCoordinateClampsOutOfRange(t *testing.T) {
	def := CoordinateDef{ID: 1, ParamName: "pm25", RMin: 0, RMax: 50, Weight: 1.0}
	cases := []struct {
		x    float64
		want float64
	}{
		{-10, 0},
		{0, 0},
		{50, 1},
		{900, 1},
	}
	for _, tc := range cases {
		c, err := NormalizeCoordinate(pm25Param(), def, tc.x)
		if err != nil {
			t.Fatalf("normalize x=%g: %v", tc.x, err)
		}
		if c.R != tc.want {
			t.Fatalf("x=%g: expected r=%g, got %g", tc.x, tc.want, c.R)
		}
	}
}

func TestNormalizeCoordinateRejectsBadDefinition(t *testing.T) {
	bad := CoordinateDef{ID: 1, ParamName: "pm25", RMin: 50, RMax: 50, Weight: 1.0}
	if _, err := NormalizeCoordinate(pm25Param(), bad, 10); !errors.Is(err, ErrBadBounds) {
		t.Fatalf("expected ErrBadBounds for empty raw range, got %v", err)
	}
	neg := CoordinateDef{ID: 1, ParamName: "pm25", RMin: 0, RMax: 50, Weight: -0.1}
	if _, err := NormalizeCoordinate(pm25Param(), neg, 10); !errors.Is(err, ErrNegativeWeight) {
		t.Fatalf("expected ErrNegativeWeight, got %v", err)
	}
}

func TestResidualWeightedSum(t *testing.T) {
	coords := []RiskCoordinate{
		{Param: "pm25", R: 0.05, W: 1.0},
		{Param: "tds", R: 0.5, W: 0.2},
	}
	res, err := NewResidual(coords)
	if err != nil {
		t.Fatalf("residual: %v", err)
	}
	if math.Abs(res.V-0.15) > 1e-12 {
		t.Fatalf("expected V=0.15, got %g", res.V)
	}
}

func TestResidualRejectsEmptySet(t *testing.T) {
	if _, err := NewResidual(nil); !errors.Is(err, ErrNoCorridor) {
		t.Fatalf("expected ErrNoCorridor for empty coordinate set, got %v", err)
	}
}

func TestResidualPermutationInvariant(t *testing.T) {
	a := RiskCoordinate{Param: "pm25", R: 0.31, W: 0.7}
	b := RiskCoordinate{Param: "no2", R: 0.12, W: 0.2}
	c := RiskCoordinate{Param: "tds", R: 0.83, W: 0.1}

	fwd, err := NewResidual([]RiskCoordinate{a, b, c})
	if err != nil {
		t.Fatalf("residual: %v", err)
	}
	rev, err := NewResidual([]RiskCoordinate{c, b, a})
	if err != nil {
		t.Fatalf("residual: %v", err)
	}
	if math.Abs(fwd.V-rev.V) > 1e-12 {
		t.Fatalf("permuting coordinates moved V: %g vs %g", fwd.V, rev.V)
	}
}

func TestResidualMonotoneInCoordinates(t *testing.T) {
	lo, err := NewResidual([]RiskCoordinate{{Param: "pm25", R: 0.2, W: 0.5}, {Param: "no2", R: 0.4, W: 0.5}})
	if err != nil {
		t.Fatalf("residual: %v", err)
	}
	hi, err := NewResidual([]RiskCoordinate{{Param: "pm25", R: 0.3, W: 0.5}, {Param: "no2", R: 0.4, W: 0.5}})
	if err != nil {
		t.Fatalf("residual: %v", err)
	}
	if hi.V <= lo.V {
		t.Fatalf("raising a coordinate must raise V: %g then %g", lo.V, hi.V)
	}
}

func TestResidualCopiesInput(t *testing.T) {
	coords := []RiskCoordinate{{Param: "pm25", R: 0.2, W: 1.0}}
	res, err := NewResidual(coords)
	if err != nil {
		t.Fatalf("residual: %v", err)
	}
	coords[0].R = 0.9
	if res.Coords[0].R != 0.2 {
		t.Fatalf("residual must not alias caller slice, saw r=%g", res.Coords[0].R)
	}
}

func TestAdmissibleTolerance(t *testing.T) {
	if !Admissible(0.15, 0.15, 0) {
		t.Fatal("equal residuals must be admissible at eps=0")
	}
	if !Admissible(0.15, 0.10, 0) {
		t.Fatal("a decreasing residual must be admissible")
	}
	if Admissible(0.15, 0.20, 0) {
		t.Fatal("an increase must be inadmissible at eps=0")
	}
	if !Admissible(0.15, 0.158, 0.01) {
		t.Fatal("an increase within eps must be admissible")
	}
	if Admissible(0.15, 0.17, 0.01) {
		t.Fatal("an increase beyond eps must be inadmissible")
	}
}
