// v1
// cmd/fleetsim/fleet_test.go
package main

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/config"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/control"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/kafkaio"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Fleetsim {
	return &config.Fleetsim{
		Regions:      []string{"PHX", "TUS"},
		TickMs:       1000,
		Seed:         42,
		DutyPull:     0.35,
		SensorBase:   map[string]float64{"pm25": 18, "tds": 700},
		SensorJitter: map[string]float64{"pm25": 6, "tds": 120},
	}
}

func testRoster() []control.DeviceRow {
	return []control.DeviceRow{
		{MachineID: "CYB-AX-001", DeviceType: "CyboAir", Location: "PHX-School-01", Pollutant: "PM2.5", CIn: 25, COut: 15, Unit: "ugm3", AirflowM3s: 0.1, PeriodS: 3600, LambdaHazard: 1.2, BetaPerKg: 670000, EcoScore: 0.8},
		{MachineID: "CYB-AX-002", DeviceType: "CyboAir", Location: "BusRoute-7thAve", Pollutant: "NO2", CIn: 48, COut: 30, Unit: "ppb", AirflowM3s: 0.25, PeriodS: 3600, LambdaHazard: 1.5, BetaPerKg: 450000, EcoScore: 0.7},
		{MachineID: "CYB-HY-003", DeviceType: "CyboHydro", Location: "GrandCanal-East", Pollutant: "VOC", CIn: 2.2, COut: 1.4, Unit: "mgm3", AirflowM3s: 0.05, PeriodS: 1800, LambdaHazard: 0.9, BetaPerKg: 120000, EcoScore: 0.6},
	}
}

func TestNewFleetSplitsRoundRobin(t *testing.T) {
	f := newFleet(testConfig(), discardLogger(), testRoster())

	phx := f.byRegion["PHX"]
	tus := f.byRegion["TUS"]
	if len(phx) != 2 || len(tus) != 1 {
		t.Fatalf("expected 2/1 split, got %d/%d", len(phx), len(tus))
	}
	if phx[0].base.MachineID != "CYB-AX-001" || phx[1].base.MachineID != "CYB-HY-003" {
		t.Fatalf("unexpected PHX roster: %s, %s", phx[0].base.MachineID, phx[1].base.MachineID)
	}
	if tus[0].base.MachineID != "CYB-AX-002" {
		t.Fatalf("unexpected TUS roster: %s", tus[0].base.MachineID)
	}
	if _, ok := f.byID["CYB-HY-003"]; !ok {
		t.Fatalf("expected machine index to cover the roster")
	}
	for _, m := range phx {
		if m.duty != defaultDuty {
			t.Fatalf("expected initial duty %v, got %v", defaultDuty, m.duty)
		}
	}
}

func TestTickBatchStaysWithinWalkBounds(t *testing.T) {
	cfg := testConfig()
	f := newFleet(cfg, discardLogger(), testRoster())
	now := time.UnixMilli(1700000000000)

	for i := 0; i < 50; i++ {
		batch := f.tickBatch("PHX", now)
		if batch.Region != "PHX" || batch.TSMs != 1700000000000 {
			t.Fatalf("unexpected batch routing: %+v", batch)
		}
		if len(batch.Rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(batch.Rows))
		}
		for param, v := range batch.Sensors {
			base := cfg.SensorBase[param]
			half := cfg.SensorJitter[param]
			if v < base-half || v > base+half {
				t.Fatalf("sensor %s walked out of bounds: %v not in [%v, %v]", param, v, base-half, base+half)
			}
		}
		for _, row := range batch.Rows {
			if row.CIn < 0 || row.COut < 0 {
				t.Fatalf("negative concentration on %s: cin=%v cout=%v", row.MachineID, row.CIn, row.COut)
			}
			if row.COut > row.CIn {
				t.Fatalf("outlet above inlet on %s: cin=%v cout=%v", row.MachineID, row.CIn, row.COut)
			}
		}
	}
}

func TestApplyDutyClampsAndIgnoresUnknown(t *testing.T) {
	f := newFleet(testConfig(), discardLogger(), testRoster())

	if f.applyDuty(kafkaio.DutyCommand{MachineID: "CYB-ZZ-999", Duty: 0.7}) {
		t.Fatalf("expected unknown machine to be ignored")
	}

	if !f.applyDuty(kafkaio.DutyCommand{MachineID: "CYB-AX-001", Duty: 1.5}) {
		t.Fatalf("expected command to apply")
	}
	if d, _ := f.dutyOf("CYB-AX-001"); d != 1.0 {
		t.Fatalf("expected duty clamped to 1.0, got %v", d)
	}

	f.applyDuty(kafkaio.DutyCommand{MachineID: "CYB-AX-001", Duty: -0.2})
	if d, _ := f.dutyOf("CYB-AX-001"); d != 0.0 {
		t.Fatalf("expected duty clamped to 0.0, got %v", d)
	}
}

func TestHigherDutyWidensSpread(t *testing.T) {
	// Same seed on both fleets, so the machines draw identical inlet walks
	// and only the duty feedback differs.
	low := newFleet(testConfig(), discardLogger(), testRoster())
	high := newFleet(testConfig(), discardLogger(), testRoster())
	low.applyDuty(kafkaio.DutyCommand{MachineID: "CYB-AX-001", Duty: 0.0})
	high.applyDuty(kafkaio.DutyCommand{MachineID: "CYB-AX-001", Duty: 1.0})
	now := time.Now()

	lb := low.tickBatch("PHX", now)
	hb := high.tickBatch("PHX", now)
	var lowSpread, highSpread float64
	for _, row := range lb.Rows {
		if row.MachineID == "CYB-AX-001" {
			lowSpread = row.CIn - row.COut
		}
	}
	for _, row := range hb.Rows {
		if row.MachineID == "CYB-AX-001" {
			highSpread = row.CIn - row.COut
		}
	}
	if highSpread <= lowSpread {
		t.Fatalf("expected duty 1.0 to remove more than duty 0.0, got %v <= %v", highSpread, lowSpread)
	}
}

func TestNeutralDutyKeepsBaselineSpread(t *testing.T) {
	f := newFleet(testConfig(), discardLogger(), testRoster())
	batch := f.tickBatch("PHX", time.Now())

	for _, row := range batch.Rows {
		m := f.byID[row.MachineID]
		baseSpread := m.base.CIn - m.base.COut
		if got := row.CIn - row.COut; math.Abs(got-baseSpread) > 1e-9 {
			t.Fatalf("expected neutral duty to keep spread %v on %s, got %v", baseSpread, row.MachineID, got)
		}
	}
}
