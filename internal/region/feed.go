// v1
// internal/region/feed.go
package region

import (
	"errors"
	"math"
)

// ErrTelemetryNotWired marks an environment accessor whose live data source
// does not exist yet. It is a distinct, checkable error so callers can fall
// back to the static feed instead of treating the gap as a broken sensor.
var ErrTelemetryNotWired = errors.New("telemetry feed not wired")

// Feed supplies the current environment readings a tray-line evaluation
// needs. Implementations return an error per accessor rather than a whole-
// feed error: a partially instrumented site can still answer what it knows.
type Feed interface {
	CompostTempC() (float64, error)
	MoistureFrac() (float64, error)
	O2Pct() (float64, error)
	CanalPH() (float64, error)
	TDSMgL() (float64, error)
	CanalVelocityMS() (float64, error)
	CanalAreaM2() (float64, error)
}

// StaticFeed answers every accessor from the profile's corridor midpoints
// and design defaults. O2 carries only a floor, so the floor itself is
// reported. Used for design studies and as the fallback when no telemetry
// exists for a region.
type StaticFeed struct {
	Profile Profile
}

func (f StaticFeed) CompostTempC() (float64, error) {
	return (f.Profile.CompostTempMinC + f.Profile.CompostTempMaxC) / 2, nil
}

func (f StaticFeed) MoistureFrac() (float64, error) {
	return (f.Profile.MoistureMin + f.Profile.MoistureMax) / 2, nil
}

func (f StaticFeed) O2Pct() (float64, error) {
	return f.Profile.O2MinPct, nil
}

func (f StaticFeed) CanalPH() (float64, error) {
	return (f.Profile.CanalPHMin + f.Profile.CanalPHMax) / 2, nil
}

func (f StaticFeed) TDSMgL() (float64, error) {
	return (f.Profile.TDSMinMgL + f.Profile.TDSMaxMgL) / 2, nil
}

func (f StaticFeed) CanalVelocityMS() (float64, error) {
	return f.Profile.DefaultVelocityMS, nil
}

func (f StaticFeed) CanalAreaM2() (float64, error) {
	return f.Profile.DefaultAreaM2, nil
}

// TelemetryFeed is the placeholder for the site instrumentation bus. Every
// accessor answers ErrTelemetryNotWired until the ingest path lands; callers
// must check, not assume.
type TelemetryFeed struct {
	Region string
}

func (f TelemetryFeed) CompostTempC() (float64, error)    { return 0, ErrTelemetryNotWired }
func (f TelemetryFeed) MoistureFrac() (float64, error)    { return 0, ErrTelemetryNotWired }
func (f TelemetryFeed) O2Pct() (float64, error)           { return 0, ErrTelemetryNotWired }
func (f TelemetryFeed) CanalPH() (float64, error)         { return 0, ErrTelemetryNotWired }
func (f TelemetryFeed) TDSMgL() (float64, error)          { return 0, ErrTelemetryNotWired }
func (f TelemetryFeed) CanalVelocityMS() (float64, error) { return 0, ErrTelemetryNotWired }
func (f TelemetryFeed) CanalAreaM2() (float64, error)     { return 0, ErrTelemetryNotWired }

// CanalHydroPowerKW estimates the micro-hydro harvest at the feed's current
// canal state, P = ½·ρ·A·v³·Cp, in kW. Density and power coefficient come
// from the profile, area and velocity from the feed.
func CanalHydroPowerKW(p Profile, feed Feed) (float64, error) {
	v, err := feed.CanalVelocityMS()
	if err != nil {
		return 0, err
	}
	a, err := feed.CanalAreaM2()
	if err != nil {
		return 0, err
	}
	watts := 0.5 * p.WaterDensityKgM3 * a * math.Pow(v, 3) * p.PowerCoefficient
	return watts / 1000.0, nil
}
