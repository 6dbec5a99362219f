// v1
// internal/control/strategies.go
package control

import "strings"

// GeoWeightFunc maps a device's location text to its geospatial priority
// weight. PowerCostFunc maps a row to its normalized power cost in [0,1].
// Both are injection points; the reference policies below cover the fleet
// as deployed.
type (
	GeoWeightFunc func(location string) float64
	PowerCostFunc func(row DeviceRow) float64
)

// GeoWeightFromTags classifies a location by substring tags, most sensitive
// first:
//
//	School, Elementary            -> 1.0
//	Intersection, Industrial,
//	BusRoute                      -> 0.8
//	Canal, Farm                   -> 0.7
//	anything else                 -> 0.5
//
// Tags are matched case-sensitively against the location text as written in
// the shard ("PHX-Elementary-04", "BusRoute-7thAve").
func GeoWeightFromTags(location string) float64 {
	switch {
	case strings.Contains(location, "School"), strings.Contains(location, "Elementary"):
		return 1.0
	case strings.Contains(location, "Intersection"),
		strings.Contains(location, "Industrial"),
		strings.Contains(location, "BusRoute"):
		return 0.8
	case strings.Contains(location, "Canal"), strings.Contains(location, "Farm"):
		return 0.7
	default:
		return 0.5
	}
}

// FixedPowerCost pins every node to the same normalized cost, clamped to
// [0,1]. The fleet default is 0.3.
func FixedPowerCost(cost float64) PowerCostFunc {
	c := clamp01(cost)
	return func(DeviceRow) float64 { return c }
}

// AirflowPowerCost derives the cost from the commanded airflow,
// min(airflow/3.0, 1.0): a 3 m³/s unit runs at full cost.
func AirflowPowerCost(row DeviceRow) float64 {
	return clamp01(row.AirflowM3s / 3.0)
}
