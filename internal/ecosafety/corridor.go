// v1
// internal/ecosafety/corridor.go
package ecosafety

// Corridor decision reasons, stable strings consumed by ledger events and CSV rows.
const (
	ReasonHardLimit = "hard corridor limit exceeded"
	ReasonIncreased = "Lyapunov residual increased"
	ReasonWithin    = "within corridors"
)

// Decision is the tri-level outcome of a safe-step check: continue
// (neither flag), derate (Derate only), or stop (both).
type Decision struct {
	Derate bool   `json:"derate"`
	Stop   bool   `json:"stop"`
	Reason string `json:"reason"`
}

// EnforceSafeStep compares the proposed next residual against the previous
// tick. The checks form a priority chain, first match wins:
//
//  1. any coordinate at or past its hard limit (r >= 1.0) -> derate and stop;
//  2. V strictly increased -> derate (any increase is disallowed here, with
//     no tolerance: this is the early, strict trend signal, not the
//     eps-tolerant Admissible check used by the gate cascade);
//  3. otherwise -> continue.
//
// Pure function of its two snapshots; no side effects.
func EnforceSafeStep(prev, next Residual) Decision {
	for _, c := range next.Coords {
		if c.R >= 1.0 {
			return Decision{Derate: true, Stop: true, Reason: ReasonHardLimit}
		}
	}
	if next.V > prev.V {
		return Decision{Derate: true, Stop: false, Reason: ReasonIncreased}
	}
	return Decision{Derate: false, Stop: false, Reason: ReasonWithin}
}
