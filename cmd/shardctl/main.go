// v1
// cmd/shardctl/main.go

// shardctl evaluates one corridor tick over a device shard CSV and the
// region tables, offline. Node results and gate rows are rendered as CSV;
// -out-trays additionally runs the reference tray-recipe design study for
// the region. Precondition violations exit non-zero with the error on
// stderr.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/control"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/engine"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/region"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/shard"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/trayline"
)

// Per-cycle yields assumed for the tray design study.
const (
	trayWasteKgPerCycle   = 120.0
	trayEnergyKWhPerCycle = 18.0
	trayKnowledgeFactor   = 0.8
)

type cliConfig struct {
	shardPath  string
	paramsPath string
	coordsPath string
	lcaPath    string
	regionCode string
	eps        float64
	pilotReady bool
	readings   map[string]float64
	bootstrapV float64
	outNodes   string
	outGates   string
	outTrays   string
}

func loadConfig() cliConfig {
	shardFlag := flag.String("shard", "", "Device shard CSV (required)")
	paramsFlag := flag.String("params", "", "Corridor parameter CSV (required)")
	coordsFlag := flag.String("coords", "", "Coordinate definition CSV (required)")
	lcaFlag := flag.String("lca", "", "Lifecycle scenario CSV (optional; empty disables the gate)")
	regionFlag := flag.String("region", "PHX", "Deployment region code")
	epsFlag := flag.Float64("eps", 0.001, "Admissibility tolerance on the residual trend")
	pilotFlag := flag.Bool("pilot-ready", false, "Operator attestation for the deployment gate")
	readingsFlag := flag.String("readings", "", "Corridor readings as param=value pairs, comma-separated (required)")
	bootstrapFlag := flag.Float64("bootstrap-v", 0, "Previous-tick residual the trend check compares against")
	outNodesFlag := flag.String("out-nodes", "", "Node result CSV path (empty or - for stdout)")
	outGatesFlag := flag.String("out-gates", "", "Gate row CSV path (empty or - for stdout)")
	outTraysFlag := flag.String("out-trays", "", "Tray design-study CSV path (empty skips, - for stdout)")
	flag.Parse()

	cfg := cliConfig{
		shardPath:  strings.TrimSpace(*shardFlag),
		paramsPath: strings.TrimSpace(*paramsFlag),
		coordsPath: strings.TrimSpace(*coordsFlag),
		lcaPath:    strings.TrimSpace(*lcaFlag),
		regionCode: strings.TrimSpace(*regionFlag),
		eps:        *epsFlag,
		pilotReady: *pilotFlag,
		bootstrapV: *bootstrapFlag,
		outNodes:   strings.TrimSpace(*outNodesFlag),
		outGates:   strings.TrimSpace(*outGatesFlag),
		outTrays:   strings.TrimSpace(*outTraysFlag),
	}
	if cfg.shardPath == "" || cfg.paramsPath == "" || cfg.coordsPath == "" {
		fmt.Fprintln(os.Stderr, "-shard, -params and -coords must be provided")
		os.Exit(2)
	}
	readings, err := parseReadings(*readingsFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(readings) == 0 {
		fmt.Fprintln(os.Stderr, "-readings must supply at least one param=value pair")
		os.Exit(2)
	}
	cfg.readings = readings
	return cfg
}

// parseReadings decodes "pm25=18.2,tds=700" into the corridor reading map.
func parseReadings(s string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, val, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("bad reading %q, want param=value", pair)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("bad reading %q: %v", pair, err)
		}
		out[name] = f
	}
	return out, nil
}

// evaluate runs one engine tick over the configured tables and shard.
func evaluate(cfg cliConfig) (engine.Output, error) {
	params, err := readCSV(cfg.paramsPath, shard.ReadParameters)
	if err != nil {
		return engine.Output{}, fmt.Errorf("params table: %w", err)
	}
	defs, err := readCSV(cfg.coordsPath, shard.ReadCoordinateDefs)
	if err != nil {
		return engine.Output{}, fmt.Errorf("coords table: %w", err)
	}
	rows, err := readCSV(cfg.shardPath, shard.ReadDeviceRows)
	if err != nil {
		return engine.Output{}, fmt.Errorf("device shard: %w", err)
	}

	profile, err := region.Lookup(cfg.regionCode)
	if err != nil {
		return engine.Output{}, err
	}

	ecfg := engine.Config{
		Region:     profile,
		Params:     params,
		Defs:       defs,
		Eps:        cfg.eps,
		BootstrapV: cfg.bootstrapV,
		Controller: control.NewController(),
		PilotReady: cfg.pilotReady,
	}
	if cfg.lcaPath != "" {
		scens, err := readCSV(cfg.lcaPath, shard.ReadScenarios)
		if err != nil {
			return engine.Output{}, fmt.Errorf("lca table: %w", err)
		}
		base, cand, err := shard.SelectPair(scens)
		if err != nil {
			return engine.Output{}, fmt.Errorf("lca table: %w", err)
		}
		ecfg.LCABase, ecfg.LCACand, ecfg.HasLCA = base, cand, true
	}

	st := engine.NewState(cfg.bootstrapV)
	_, out, err := engine.Tick(ecfg, st, engine.Input{Readings: cfg.readings, Rows: rows})
	if err != nil {
		return engine.Output{}, err
	}
	return out, nil
}

// trayStudy scores the reference recipe batch against the region's static
// feed: the baseline bagasse blend plus a high-mineral and a starch-heavy
// variant, sited at the three study facilities.
func trayStudy(code string) ([]trayline.ShardRow, error) {
	p, err := region.Lookup(code)
	if err != nil {
		return nil, err
	}
	placements := []trayline.Placement{
		{
			Mix: trayline.MaterialMix{
				ID:          "TRAY-BAG-70",
				Description: "70% bagasse 25% starch 5% clay",
				FiberFrac:   0.70,
				StarchFrac:  0.25,
				MineralFrac: 0.05,
			},
			Facility: "Cafeteria-District-01",
			Lat:      33.4484, Lon: -112.0740,
		},
		{
			Mix: trayline.MaterialMix{
				ID:          "TRAY-MIN-20",
				Description: "55% bagasse 25% starch 20% clay",
				FiberFrac:   0.55,
				StarchFrac:  0.25,
				MineralFrac: 0.20,
			},
			Facility: "Cafeteria-District-02",
			Lat:      33.6101, Lon: -112.0312,
		},
		{
			Mix: trayline.MaterialMix{
				ID:          "TRAY-STA-35",
				Description: "60% bagasse 35% starch 5% clay",
				FiberFrac:   0.60,
				StarchFrac:  0.35,
				MineralFrac: 0.05,
			},
			Facility: "Cafeteria-District-03",
			Lat:      33.3942, Lon: -111.9400,
		},
	}
	return trayline.SimulateRecipes(p, placements, trayWasteKgPerCycle, trayEnergyKWhPerCycle, trayKnowledgeFactor)
}

func readCSV[T any](path string, read func(r io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return read(f)
}

func openOut(path string) (*os.File, bool, error) {
	if path == "" || path == "-" {
		return os.Stdout, false, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

func main() {
	cfg := loadConfig()
	lg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	out, err := evaluate(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "shardctl:", err)
		os.Exit(1)
	}

	nodesOut, closeNodes, err := openOut(cfg.outNodes)
	if err != nil {
		fmt.Fprintln(os.Stderr, "shardctl:", err)
		os.Exit(1)
	}
	if err := shard.WriteNodeResults(nodesOut, out.Nodes); err != nil {
		fmt.Fprintln(os.Stderr, "shardctl:", err)
		os.Exit(1)
	}
	if closeNodes {
		if cerr := nodesOut.Close(); cerr != nil {
			fmt.Fprintln(os.Stderr, "shardctl:", cerr)
			os.Exit(1)
		}
	}

	gatesOut, closeGates, err := openOut(cfg.outGates)
	if err != nil {
		fmt.Fprintln(os.Stderr, "shardctl:", err)
		os.Exit(1)
	}
	row := shard.GateRow{
		Region:   cfg.regionCode,
		VPrev:    cfg.bootstrapV,
		VNext:    out.Residual.V,
		Decision: out.Decision,
		Flags:    out.Flags,
		LCAOK:    out.LCAOK,
		Gates:    out.Gates,
	}
	if err := shard.WriteGateRows(gatesOut, []shard.GateRow{row}); err != nil {
		fmt.Fprintln(os.Stderr, "shardctl:", err)
		os.Exit(1)
	}
	if closeGates {
		if cerr := gatesOut.Close(); cerr != nil {
			fmt.Fprintln(os.Stderr, "shardctl:", cerr)
			os.Exit(1)
		}
	}

	lg.Info("tick evaluated",
		"region", cfg.regionCode,
		"v_prev", cfg.bootstrapV, "v_next", out.Residual.V,
		"reason", out.Decision.Reason,
		"nodes", len(out.Nodes), "unknown_units", out.UnknownUnits)
	if out.UnknownUnits > 0 {
		lg.Warn("unknown concentration units zeroed mass", "count", out.UnknownUnits)
	}

	if cfg.outTrays != "" {
		trays, err := trayStudy(cfg.regionCode)
		if err != nil {
			fmt.Fprintln(os.Stderr, "shardctl:", err)
			os.Exit(1)
		}
		traysOut, closeTrays, err := openOut(cfg.outTrays)
		if err != nil {
			fmt.Fprintln(os.Stderr, "shardctl:", err)
			os.Exit(1)
		}
		if err := shard.WriteTrayRows(traysOut, trays); err != nil {
			fmt.Fprintln(os.Stderr, "shardctl:", err)
			os.Exit(1)
		}
		if closeTrays {
			if cerr := traysOut.Close(); cerr != nil {
				fmt.Fprintln(os.Stderr, "shardctl:", cerr)
				os.Exit(1)
			}
		}
		lg.Info("tray study rendered", "region", cfg.regionCode, "recipes", len(trays))
	}
}
