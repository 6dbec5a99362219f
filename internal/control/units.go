// v1
// internal/control/units.go
package control

import (
	"errors"
	"fmt"
	"strings"
)

// GasConstant is the molar gas constant R in J/(mol·K).
const GasConstant = 8.3145

// ErrUnknownUnit is returned when a row carries a unit tag no conversion is
// defined for. Conversions still hand back a zero factor so a fleet tick can
// finish arithmetically; the error keeps the gap visible to logs and counters
// instead of silently zeroing mass.
var ErrUnknownUnit = errors.New("unknown concentration unit")

// MassFactor maps a concentration unit tag to the factor that turns one unit
// of concentration into kg/m³.
//
//	ugm3, ug/m3, µg/m3 -> 1e-9
//	mgm3, mg/m3        -> 1e-6
//	ppb                -> molarMass / (R·T) · 1e-9   (ideal gas)
//
// Tags are matched after trimming and lowercasing. ppb needs a positive
// absolute temperature; anything else is a misconfigured environment, not a
// convertible reading.
func MassFactor(unit string, molarMassKgPerMol, temperatureK float64) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "ugm3", "ug/m3", "µg/m3":
		return 1e-9, nil
	case "mgm3", "mg/m3":
		return 1e-6, nil
	case "ppb":
		if temperatureK <= 0 {
			return 0, fmt.Errorf("ppb conversion needs T > 0 K, got %g", temperatureK)
		}
		return molarMassKgPerMol / (GasConstant * temperatureK) * 1e-9, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
}

// IsUnknownUnit reports whether err is the unit-gap signal, wrapped or not.
func IsUnknownUnit(err error) bool {
	return errors.Is(err, ErrUnknownUnit)
}

// FlowM3PerSec normalizes a volumetric flow reading to m³/s.
// Accepted tags: m3/s (and m3s), m3/h (and m3h, divided by 3600).
func FlowM3PerSec(value float64, unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "m3/s", "m3s":
		return value, nil
	case "m3/h", "m3h":
		return value / 3600.0, nil
	default:
		return 0, fmt.Errorf("%w: flow %q", ErrUnknownUnit, unit)
	}
}
