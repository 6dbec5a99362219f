// v1
// internal/trayline/kinetics_test.go
package trayline

import (
	"math"
	"testing"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/region"
)

func bagasseMix() MaterialMix {
	return MaterialMix{
		ID:          "AR-PHX-LAB-01",
		Description: "70% bagasse 25% starch 5% clay",
		FiberFrac:   0.70,
		StarchFrac:  0.25,
		MineralFrac: 0.05,
	}
}

func TestDecayRateQ10(t *testing.T) {
	if got := DecayRatePerDay(25); math.Abs(got-0.05) > 1e-12 {
		t.Fatalf("expected baseline 0.05 at 25 °C, got %g", got)
	}
	if got := DecayRatePerDay(35); math.Abs(got-0.10) > 1e-12 {
		t.Fatalf("expected doubled rate at 35 °C, got %g", got)
	}
	if got := DecayRatePerDay(15); math.Abs(got-0.025) > 1e-12 {
		t.Fatalf("expected halved rate at 15 °C, got %g", got)
	}
}

func TestT90MineralPenalty(t *testing.T) {
	clean := MaterialMix{ID: "clean", FiberFrac: 1}
	want := math.Ln10 / 0.05
	if got := T90Days(clean, 25); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %g days, got %g", want, got)
	}

	mineral := MaterialMix{ID: "mineral", MineralFrac: 1}
	if got := T90Days(mineral, 25); math.Abs(got-want*1.5) > 1e-9 {
		t.Fatalf("fully mineral mix must decay 1.5x slower, got %g", got)
	}
}

func TestRtoxCorridorBands(t *testing.T) {
	p := region.Phoenix()

	// 0.02 + 0.05·0.05 is well under the safe band.
	if got := RtoxCorridor(p, bagasseMix()); got != 0 {
		t.Fatalf("clean mix must sit at 0, got %g", got)
	}

	// Fully mineral: base 0.07 scales to (0.07−0.05)/0.15.
	mineral := MaterialMix{ID: "mineral", MineralFrac: 1}
	want := (0.07 - p.RtoxSafe) / (p.RtoxHard - p.RtoxSafe)
	if got := RtoxCorridor(p, mineral); math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected scaled rtox %g, got %g", want, got)
	}
}

func TestRtoxCorridorSaturates(t *testing.T) {
	tight := region.Phoenix()
	tight.RtoxSafe, tight.RtoxGold, tight.RtoxHard = 0.01, 0.02, 0.05

	mineral := MaterialMix{ID: "mineral", MineralFrac: 1}
	if got := RtoxCorridor(tight, mineral); got != 1 {
		t.Fatalf("base beyond the hard band must saturate at 1, got %g", got)
	}
}
