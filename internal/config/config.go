// v1
// internal/config/config.go
// Package config loads service configuration from environment variables and
// .properties files. Environment variables carry deployment wiring (brokers,
// topics, bind addresses); the properties file carries the region's corridor
// tuning and is reloadable at runtime.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/control"
)

// Corridord holds the corridor daemon's runtime configuration.
type Corridord struct {
	HTTPBind       string   // address:port for the HTTP API
	KafkaBrokers   []string // bootstrap servers
	ReadingsTopic  string   // telemetry batches in, one partition per region
	DutyTopic      string   // duty commands out, keyed by machine id
	LedgerTopic    string   // per-tick corridor verdicts out
	KarmaTopic     string   // per-node karma events out
	PollIntervalMs int      // main loop sleep between region round-robins
	PropertiesPath string   // corridor tuning, reloadable
	LogDir         string   // optional; empty means stdout only

	// Properties-backed fields. Reload replaces all of them atomically
	// from the caller's point of view: a failed reload leaves them as-is.
	Regions     []string           // region codes; index is the readings partition
	Eps         float64            // admissibility tolerance on the residual
	BootstrapV  map[string]float64 // first-tick residual per region
	PilotReady  bool               // operator attestation for the deployment gate
	ParamsTable string             // corridor parameter CSV path
	CoordsTable string             // coordinate definition CSV path
	LCATable    string             // lifecycle scenario CSV path, empty disables the gate
	Gains       control.Gains
	Refs        control.References
	Env         control.Env
	// WeightOverrides rebind coordinate weights by parameter name without
	// editing the coordinate table.
	WeightOverrides map[string]float64
}

// LoadCorridord reads the environment and the properties file.
func LoadCorridord() (*Corridord, error) {
	cfg := &Corridord{
		HTTPBind:       getEnv("HTTP_BIND", ":8086"),
		KafkaBrokers:   splitAndTrim(os.Getenv("KAFKA_BROKERS"), ","),
		ReadingsTopic:  getEnv("READINGS_TOPIC", "corridor.readings"),
		DutyTopic:      getEnv("DUTY_TOPIC", "duty.commands"),
		LedgerTopic:    getEnv("LEDGER_TOPIC", "corridor.ledger"),
		KarmaTopic:     getEnv("KARMA_TOPIC", "karma.events"),
		PollIntervalMs: getEnvInt("POLL_INTERVAL_MS", 250),
		PropertiesPath: getEnv("PROPERTIES_PATH", "./configs/corridord.properties"),
		LogDir:         os.Getenv("LOG_DIR"),
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required (comma-separated)")
	}
	if cfg.PollIntervalMs <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS must be positive, got %d", cfg.PollIntervalMs)
	}
	if err := cfg.loadProperties(cfg.PropertiesPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReloadProperties re-reads the properties file. On error the previous
// values stay in effect.
func (c *Corridord) ReloadProperties() error {
	return c.loadProperties(c.PropertiesPath)
}

func (c *Corridord) loadProperties(path string) error {
	var (
		regions        []string
		eps            = 0.0
		bootstrapAll   = 0.0
		bootstrapByRgn = map[string]float64{}
		pilotReady     = false
		paramsTable    string
		coordsTable    string
		lcaTable       string
		gains          = control.DefaultGains()
		refs           = control.DefaultReferences()
		env            = control.DefaultEnv()
		weights        = map[string]float64{}
	)

	err := forEachProperty(path, func(k, v string) error {
		switch k {
		case "regions":
			regions = splitAndTrim(v, ",")
			return nil
		case "eps":
			return parseInto(k, v, &eps)
		case "bootstrap_v":
			return parseInto(k, v, &bootstrapAll)
		case "pilot_ready":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("property %s: bad bool %q", k, v)
			}
			pilotReady = b
			return nil
		case "params_table":
			paramsTable = v
			return nil
		case "coords_table":
			coordsTable = v
			return nil
		case "lca_table":
			lcaTable = v
			return nil
		case "gain.mass":
			return parseInto(k, v, &gains.Mass)
		case "gain.karma":
			return parseInto(k, v, &gains.Karma)
		case "gain.geo":
			return parseInto(k, v, &gains.Geo)
		case "gain.power":
			return parseInto(k, v, &gains.Power)
		case "ref.mass_kg":
			return parseInto(k, v, &refs.MassRefKg)
		case "ref.karma_bytes":
			return parseInto(k, v, &refs.KarmaRef)
		case "env.temperature_k":
			return parseInto(k, v, &env.TemperatureK)
		case "env.molar_mass_kg_per_mol":
			return parseInto(k, v, &env.MolarMassKgPerMol)
		}
		if rgn, ok := strings.CutPrefix(k, "bootstrap_v."); ok {
			var f float64
			if err := parseInto(k, v, &f); err != nil {
				return err
			}
			bootstrapByRgn[rgn] = f
			return nil
		}
		if param, ok := strings.CutPrefix(k, "weight."); ok {
			var f float64
			if err := parseInto(k, v, &f); err != nil {
				return err
			}
			weights[param] = f
			return nil
		}
		// Unknown keys are ignored so one file can feed several tools.
		return nil
	})
	if err != nil {
		return err
	}

	if len(regions) == 0 {
		return errors.New("properties must define regions=<r1,r2,...>")
	}
	if eps < 0 {
		return fmt.Errorf("eps must be non-negative, got %g", eps)
	}
	if paramsTable == "" || coordsTable == "" {
		return errors.New("properties must define params_table and coords_table")
	}
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("weight overrides must be non-negative, got %g", w)
		}
	}

	bootstrap := make(map[string]float64, len(regions))
	for _, r := range regions {
		if v, ok := bootstrapByRgn[r]; ok {
			bootstrap[r] = v
		} else {
			bootstrap[r] = bootstrapAll
		}
	}

	c.Regions = regions
	c.Eps = eps
	c.BootstrapV = bootstrap
	c.PilotReady = pilotReady
	c.ParamsTable = paramsTable
	c.CoordsTable = coordsTable
	c.LCATable = lcaTable
	c.Gains = gains
	c.Refs = refs
	c.Env = env
	c.WeightOverrides = weights
	return nil
}

// forEachProperty streams key=value pairs out of a properties file. Blank
// lines and lines starting with # or // are skipped; lines without = are
// skipped too.
func forEachProperty(path string, fn func(k, v string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open properties file %s: %w", path, err)
	}
	defer file.Close()

	s := bufio.NewScanner(file)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if err := fn(strings.TrimSpace(k), strings.TrimSpace(v)); err != nil {
			return err
		}
	}
	return s.Err()
}

func parseInto(key, val string, dst *float64) error {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("property %s: bad number %q", key, val)
	}
	*dst = f
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

func splitAndTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
