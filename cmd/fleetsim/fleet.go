// v1
// cmd/fleetsim/fleet.go
package main

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/config"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/control"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/kafkaio"
)

const (
	// defaultDuty is the neutral operating point machines hold until the
	// daemon's first command arrives.
	defaultDuty = 0.5

	// walkStepFraction scales one sensor step relative to the configured
	// jitter half-width.
	walkStepFraction = 0.25

	// inletWalkFraction is the relative half-width of the inlet walk.
	inletWalkFraction = 0.08
)

// machine carries one simulated device: the shard baseline it walks around,
// the row it currently reports, and the last commanded duty cycle.
type machine struct {
	base control.DeviceRow
	row  control.DeviceRow
	duty float64
}

// fleet is the mutable simulation state shared by the region publishers and
// the duty consumers.
type fleet struct {
	log *slog.Logger
	cfg *config.Fleetsim

	mu       sync.Mutex
	rng      *rand.Rand
	byRegion map[string][]*machine
	byID     map[string]*machine
	sensors  map[string]map[string]float64
}

func newFleet(cfg *config.Fleetsim, log *slog.Logger, rows []control.DeviceRow) *fleet {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	f := &fleet{
		log:      log.With("component", "fleet"),
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(seed)),
		byRegion: make(map[string][]*machine, len(cfg.Regions)),
		byID:     make(map[string]*machine, len(rows)),
		sensors:  make(map[string]map[string]float64, len(cfg.Regions)),
	}
	for _, code := range cfg.Regions {
		vals := make(map[string]float64, len(cfg.SensorBase))
		for param, base := range cfg.SensorBase {
			vals[param] = base
		}
		f.sensors[code] = vals
	}
	// machines split round-robin across the configured regions
	for i := range rows {
		code := cfg.Regions[i%len(cfg.Regions)]
		m := &machine{base: rows[i], row: rows[i], duty: defaultDuty}
		f.byRegion[code] = append(f.byRegion[code], m)
		f.byID[rows[i].MachineID] = m
	}
	return f
}

// walkSensorsLocked advances the region's corridor sensors one step of the
// bounded walk and returns a copy for publishing.
func (f *fleet) walkSensorsLocked(code string) map[string]float64 {
	out := make(map[string]float64, len(f.sensors[code]))
	for param, v := range f.sensors[code] {
		base := f.cfg.SensorBase[param]
		half := f.cfg.SensorJitter[param]
		v += (f.rng.Float64()*2 - 1) * half * walkStepFraction
		if v < base-half {
			v = base - half
		}
		if v > base+half {
			v = base + half
		}
		if v < 0 {
			v = 0
		}
		f.sensors[code][param] = v
		out[param] = v
	}
	return out
}

// walkMachineLocked advances one machine's concentrations. The inlet walks
// around the shard baseline; the outlet follows from the duty-scaled removal
// spread, so a higher duty widens Cin-Cout.
func (f *fleet) walkMachineLocked(m *machine) control.DeviceRow {
	cin := m.base.CIn * (1 + (f.rng.Float64()*2-1)*inletWalkFraction)
	if cin < 0 {
		cin = 0
	}

	spread := m.base.CIn - m.base.COut
	if spread < 0 {
		spread = 0
	}
	pull := 1 + f.cfg.DutyPull*(m.duty-defaultDuty)
	if pull < 0 {
		pull = 0
	}
	cout := cin - spread*pull
	if cout < 0 {
		cout = 0
	}
	if cout > cin {
		cout = cin
	}

	m.row.CIn = cin
	m.row.COut = cout
	return m.row
}

// tickBatch walks every machine and sensor of one region and assembles the
// telemetry batch for this tick.
func (f *fleet) tickBatch(code string, now time.Time) kafkaio.TelemetryBatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := make([]control.DeviceRow, 0, len(f.byRegion[code]))
	for _, m := range f.byRegion[code] {
		rows = append(rows, f.walkMachineLocked(m))
	}
	return kafkaio.TelemetryBatch{
		Region:  code,
		TSMs:    now.UnixMilli(),
		Sensors: f.walkSensorsLocked(code),
		Rows:    rows,
	}
}

// applyDuty folds one command back into the machine it addresses. Unknown
// machines are ignored so stale commands cannot grow the roster.
func (f *fleet) applyDuty(cmd kafkaio.DutyCommand) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[cmd.MachineID]
	if !ok {
		return false
	}
	d := cmd.Duty
	if d < 0 {
		d = 0
	}
	if d > 1 {
		d = 1
	}
	m.duty = d
	return true
}

func (f *fleet) dutyOf(machineID string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[machineID]
	if !ok {
		return 0, false
	}
	return m.duty, true
}

func (f *fleet) startRegionPublisher(ctx context.Context, w kafkaio.MessageWriter, code string) {
	t := time.NewTicker(time.Duration(f.cfg.TickMs) * time.Millisecond)
	f.log.Info("publisher started", "region", code, "tick_ms", f.cfg.TickMs, "machines", len(f.byRegion[code]))
	go func() {
		defer t.Stop()
		for {
			select {
			case now := <-t.C:
				batch := f.tickBatch(code, now)
				if err := kafkaio.PublishTelemetry(ctx, w, batch); err != nil {
					f.log.Error("telemetry write failed", "region", code, "error", err)
					continue
				}
				f.log.Info("published", "region", code, "ts_ms", batch.TSMs, "rows", len(batch.Rows))
			case <-ctx.Done():
				f.log.Info("publisher stopped", "region", code)
				return
			}
		}
	}()
}
