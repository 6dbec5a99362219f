// v1
// internal/ecosafety/gates.go
package ecosafety

// Flags are the per-tick corridor band checks, computed next to the raw
// measurements (the cascade never sees those):
//
//	CorridorOK: no coordinate at or past its hard limit (r < 1.0 everywhere)
//	LegalOK:    no parameter beyond its legal limit
//	GoldOK:     every parameter inside its gold (aspirational) band
type Flags struct {
	CorridorOK bool `json:"corridor_ok"`
	LegalOK    bool `json:"legal_ok"`
	GoldOK     bool `json:"gold_ok"`
}

// Gates is the composed go/no-go surface published once per tick.
type Gates struct {
	Safety     bool `json:"safety_gate"`
	ScaleUp    bool `json:"scaleup_gate"`
	Deployment bool `json:"deployment_gate"`
}

// ComputeGates folds the band flags, the residual trend and the external
// lifecycle and pilot booleans into the three gates:
//
//	safety     = corridor_ok && legal_ok && admissible(vPrev, vNext, eps)
//	scaleup    = safety && gold_ok && lcaOK
//	deployment = lcaOK && pilotReady
//
// ScaleUp implies Safety by construction. Deployment keys on the lifecycle
// comparison and pilot readiness alone and does not consult Safety; a
// deployment verdict can therefore stand while the safety gate is shut.
func ComputeGates(flags Flags, vPrev, vNext, eps float64, lcaOK, pilotReady bool) Gates {
	safety := flags.CorridorOK && flags.LegalOK && Admissible(vPrev, vNext, eps)
	return Gates{
		Safety:     safety,
		ScaleUp:    safety && flags.GoldOK && lcaOK,
		Deployment: lcaOK && pilotReady,
	}
}
