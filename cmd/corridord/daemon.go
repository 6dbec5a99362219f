// v1
// cmd/corridord/daemon.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/config"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/control"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/ecosafety"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/engine"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/httpapi"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/kafkaio"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/karma"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/observability"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/region"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/shard"
)

// creditFlushInterval is how often accumulated karma credits are handed to
// the leaderboard store. Ticks arrive about once a second per region, so the
// store is fed minute-level aggregates instead of raw per-tick credits.
const creditFlushInterval = time.Minute

// corridorTables holds the shard CSV content the engine evaluates against.
// Reload swaps the whole struct so a half-read table set never goes live.
type corridorTables struct {
	params map[string]ecosafety.Parameter
	defs   []ecosafety.CoordinateDef
	base   ecosafety.Scenario
	cand   ecosafety.Scenario
	hasLCA bool
}

// loadTables reads the parameter, coordinate and lifecycle tables named by
// the configuration and applies the configured weight overrides. An empty
// LCA table path disables the lifecycle comparison.
func loadTables(cfg *config.Corridord) (corridorTables, error) {
	var t corridorTables

	pf, err := os.Open(cfg.ParamsTable)
	if err != nil {
		return t, fmt.Errorf("params table: %w", err)
	}
	t.params, err = shard.ReadParameters(pf)
	pf.Close()
	if err != nil {
		return t, fmt.Errorf("params table %s: %w", cfg.ParamsTable, err)
	}

	cf, err := os.Open(cfg.CoordsTable)
	if err != nil {
		return t, fmt.Errorf("coords table: %w", err)
	}
	t.defs, err = shard.ReadCoordinateDefs(cf)
	cf.Close()
	if err != nil {
		return t, fmt.Errorf("coords table %s: %w", cfg.CoordsTable, err)
	}
	for i := range t.defs {
		if w, ok := cfg.WeightOverrides[t.defs[i].ParamName]; ok {
			t.defs[i].Weight = w
		}
	}

	if cfg.LCATable != "" {
		lf, err := os.Open(cfg.LCATable)
		if err != nil {
			return t, fmt.Errorf("lca table: %w", err)
		}
		scens, err := shard.ReadScenarios(lf)
		lf.Close()
		if err != nil {
			return t, fmt.Errorf("lca table %s: %w", cfg.LCATable, err)
		}
		t.base, t.cand, err = shard.SelectPair(scens)
		if err != nil {
			return t, fmt.Errorf("lca table %s: %w", cfg.LCATable, err)
		}
		t.hasLCA = true
	}
	return t, nil
}

// resolveProfiles maps every configured region code to its deployment
// profile. Unknown codes fail here rather than mid-loop.
func resolveProfiles(codes []string) (map[string]region.Profile, error) {
	out := make(map[string]region.Profile, len(codes))
	for _, code := range codes {
		p, err := region.Lookup(code)
		if err != nil {
			return nil, err
		}
		out[code] = p
	}
	return out, nil
}

// daemon owns the evaluation loop: it drains telemetry per region, runs the
// corridor engine, publishes the resulting commands and events, and carries
// the per-region residual state across ticks.
type daemon struct {
	cfg     *config.Corridord
	lg      *slog.Logger
	metrics *observability.Metrics
	io      *kafkaio.IO
	board   *httpapi.Board
	tuning  *httpapi.TuningStore
	credits *karma.NodeStore

	mu        sync.Mutex
	tables    corridorTables
	profiles  map[string]region.Profile
	states    map[string]engine.State
	pending   map[string]karma.Credit
	lastFlush time.Time
}

func newDaemon(cfg *config.Corridord, lg *slog.Logger, metrics *observability.Metrics,
	io *kafkaio.IO, board *httpapi.Board, tuning *httpapi.TuningStore,
	credits *karma.NodeStore, profiles map[string]region.Profile, tbl corridorTables) *daemon {
	return &daemon{
		cfg:       cfg,
		lg:        lg.With("component", "daemon"),
		metrics:   metrics,
		io:        io,
		board:     board,
		tuning:    tuning,
		credits:   credits,
		tables:    tbl,
		profiles:  profiles,
		states:    make(map[string]engine.State),
		pending:   make(map[string]karma.Credit),
		lastFlush: time.Now(),
	}
}

// Reload re-reads the properties file, reloads the corridor tables and
// region set, and pushes the reloaded tolerance and gains into the tuning
// store. Any failure leaves the previous tables and tuning active. The lock
// spans the whole reload because ReloadProperties rewrites the config fields
// the tick path reads.
func (d *daemon) Reload() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := *d.cfg // loadProperties swaps maps wholesale, so a shallow copy restores cleanly
	if err := d.cfg.ReloadProperties(); err != nil {
		return err
	}
	tbl, err := loadTables(d.cfg)
	if err != nil {
		*d.cfg = prev
		return err
	}
	profiles, err := resolveProfiles(d.cfg.Regions)
	if err != nil {
		*d.cfg = prev
		return err
	}
	if _, err := d.tuning.Set(httpapi.Tuning{Eps: d.cfg.Eps, Gains: d.cfg.Gains}); err != nil {
		*d.cfg = prev
		return err
	}
	d.tables = tbl
	d.profiles = profiles
	d.lg.Info("tables reloaded",
		"params", len(tbl.params), "coords", len(tbl.defs), "lca", tbl.hasLCA,
		"regions", d.cfg.Regions)
	return nil
}

// Run round-robins the configured regions until the context is cancelled.
func (d *daemon) Run(ctx context.Context) {
	interval := time.Duration(d.cfg.PollIntervalMs) * time.Millisecond
	d.lg.Info("evaluation loop started",
		"interval_ms", d.cfg.PollIntervalMs, "regions", d.cfg.Regions)
	for {
		select {
		case <-ctx.Done():
			d.flushCredits(time.Now())
			d.lg.Info("evaluation loop stopped")
			return
		default:
		}

		for _, code := range d.regionCodes() {
			d.tickRegion(ctx, code)
		}
		d.flushCreditsIfDue(time.Now())
		time.Sleep(interval)
	}
}

func (d *daemon) regionCodes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.profiles))
	for _, code := range d.cfg.Regions {
		if _, ok := d.profiles[code]; ok {
			out = append(out, code)
		}
	}
	return out
}

// tickRegion drains the newest telemetry batch for one region and runs a
// single engine tick over it. Failures are logged and counted; the previous
// residual state stays in place so the next tick compares against it.
func (d *daemon) tickRegion(ctx context.Context, code string) {
	batch, ok, err := d.io.DrainRegionLatest(ctx, code)
	if err != nil {
		d.lg.Error("telemetry drain failed", "region", code, "error", err)
		return
	}
	if !ok {
		return
	}

	start := time.Now()
	tun := d.tuning.Get()

	d.mu.Lock()
	tbl := d.tables
	profile := d.profiles[code]
	st, seeded := d.states[code]
	bootstrapV := d.cfg.BootstrapV[code]
	refs := d.cfg.Refs
	env := d.cfg.Env
	pilotReady := d.cfg.PilotReady
	d.mu.Unlock()
	if !seeded {
		st = engine.NewState(bootstrapV)
	}

	ctrl := control.NewController()
	ctrl.Gains = tun.Gains
	ctrl.Refs = refs
	ctrl.Env = env

	ecfg := engine.Config{
		Region:     profile,
		Params:     tbl.params,
		Defs:       tbl.defs,
		Eps:        tun.Eps,
		BootstrapV: bootstrapV,
		Controller: ctrl,
		LCABase:    tbl.base,
		LCACand:    tbl.cand,
		HasLCA:     tbl.hasLCA,
		PilotReady: pilotReady,
	}

	next, out, err := engine.Tick(ecfg, st, engine.Input{Readings: batch.Sensors, Rows: batch.Rows})
	if err != nil {
		d.lg.Error("tick failed", "region", code, "error", err)
		d.metrics.TickFailed(code)
		d.board.RecordFailure()
		return
	}

	d.mu.Lock()
	d.states[code] = next
	d.mu.Unlock()

	d.metrics.TickEvaluated(code, time.Since(start), out.Decision, out.Residual.V)
	d.metrics.GatesEvaluated(code, out.Gates)
	d.metrics.FleetStepped(code, len(out.Nodes), out.UnknownUnits, out.Totals.MassKg, out.Totals.KarmaBytes)

	cmds, ledger, awards := buildTickEvents(code, batch.TSMs, st.Prev.V, out)

	if len(cmds) > 0 {
		if err := d.io.PublishDuties(ctx, cmds); err != nil {
			d.lg.Error("duty publish failed", "region", code, "error", err)
		} else {
			d.board.CountDuties(len(cmds))
		}
	}
	if err := d.io.PublishLedger(ctx, ledger); err != nil {
		d.lg.Error("ledger publish failed", "region", code, "error", err)
	} else {
		d.board.CountLedgerWrite()
	}
	if len(awards) > 0 {
		if err := d.io.PublishKarma(ctx, awards); err != nil {
			d.lg.Error("karma publish failed", "region", code, "error", err)
		} else {
			d.board.CountKarmaEvents(len(awards))
		}
		d.accumulateCredits(awards)
	}

	d.board.Publish(buildRegionStatus(code, batch.TSMs, st.Prev.V, out))
	d.lg.Info("region evaluated",
		"region", code, "ts_ms", batch.TSMs,
		"v_prev", st.Prev.V, "v_next", out.Residual.V,
		"reason", out.Decision.Reason,
		"nodes", len(out.Nodes), "unknown_units", out.UnknownUnits)
}

// accumulateCredits folds this tick's karma events into the per-machine
// pending sums that flushCredits hands to the leaderboard store.
func (d *daemon) accumulateCredits(awards []kafkaio.KarmaEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ev := range awards {
		c := d.pending[ev.MachineID]
		c.MachineID = ev.MachineID
		c.Region = ev.Region
		c.Location = ev.Location
		c.Pollutant = ev.Pollutant
		c.At = time.UnixMilli(ev.TSMs).UTC()
		c.MassKg += ev.MassKg
		c.KarmaBytes += ev.KarmaBytes
		d.pending[ev.MachineID] = c
	}
}

func (d *daemon) flushCreditsIfDue(now time.Time) {
	d.mu.Lock()
	due := now.Sub(d.lastFlush) >= creditFlushInterval
	d.mu.Unlock()
	if due {
		d.flushCredits(now)
	}
}

// flushCredits appends one aggregated credit per machine to the store and
// clears the pending sums. Bounding the store to aggregates keeps week-long
// leaderboard windows inside the store's ring capacity.
func (d *daemon) flushCredits(now time.Time) {
	d.mu.Lock()
	pending := d.pending
	d.pending = make(map[string]karma.Credit)
	d.lastFlush = now
	d.mu.Unlock()

	for machine, c := range pending {
		d.credits.Append(machine, c)
	}
}

// buildTickEvents maps one engine evaluation onto the outbound message set:
// one duty command and one karma event per node, one ledger event for the
// region tick.
func buildTickEvents(code string, tsMs int64, vPrev float64, out engine.Output) ([]kafkaio.DutyCommand, kafkaio.LedgerEvent, []kafkaio.KarmaEvent) {
	cmds := make([]kafkaio.DutyCommand, 0, len(out.Nodes))
	awards := make([]kafkaio.KarmaEvent, 0, len(out.Nodes))
	for _, n := range out.Nodes {
		cmds = append(cmds, kafkaio.DutyCommand{
			MachineID: n.Row.MachineID,
			Region:    code,
			Duty:      n.Duty,
			TSMs:      tsMs,
		})
		awards = append(awards, kafkaio.KarmaEvent{
			MachineID:  n.Row.MachineID,
			Region:     code,
			Location:   n.Row.Location,
			Pollutant:  n.Row.Pollutant,
			MassKg:     n.MassKg,
			KarmaBytes: n.KarmaBytes,
			Duty:       n.Duty,
			TSMs:       tsMs,
		})
	}
	ev := kafkaio.LedgerEvent{
		Region:       code,
		TSMs:         tsMs,
		VPrev:        vPrev,
		VNext:        out.Residual.V,
		Decision:     out.Decision,
		Flags:        out.Flags,
		Gates:        out.Gates,
		LCAOK:        out.LCAOK,
		Nodes:        len(out.Nodes),
		UnknownUnits: out.UnknownUnits,
	}
	return cmds, ev, awards
}

// buildRegionStatus shapes one evaluation for the HTTP status board.
func buildRegionStatus(code string, tsMs int64, vPrev float64, out engine.Output) httpapi.RegionStatus {
	return httpapi.RegionStatus{
		Region:       code,
		TSMs:         tsMs,
		VPrev:        vPrev,
		VNext:        out.Residual.V,
		Coords:       httpapi.ViewCoords(out.Residual.Coords),
		Decision:     out.Decision,
		Flags:        out.Flags,
		Gates:        out.Gates,
		LCAOK:        out.LCAOK,
		Nodes:        out.Nodes,
		Totals:       out.Totals,
		UnknownUnits: out.UnknownUnits,
	}
}
