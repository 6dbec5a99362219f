// v1
// internal/config/fleetsim.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Fleetsim holds the fleet simulator's configuration. The machine roster
// comes from a device shard CSV; the properties file adds the sensor
// baselines and walk widths the simulator perturbs around.
type Fleetsim struct {
	KafkaBrokers   []string
	ReadingsTopic  string
	DutyTopic      string
	PropertiesPath string
	LogDir         string

	Regions      []string           // region codes; index is the readings partition
	ShardPath    string             // device shard CSV with the simulated fleet
	TickMs       int                // publish interval per region
	Seed         int64              // 0 seeds from the clock
	DutyPull     float64            // how strongly duty widens the Cin-Cout spread
	SensorBase   map[string]float64 // baseline per corridor parameter
	SensorJitter map[string]float64 // half-width of the bounded random walk
}

// LoadFleetsim reads the environment and the properties file.
func LoadFleetsim() (*Fleetsim, error) {
	cfg := &Fleetsim{
		KafkaBrokers:   splitAndTrim(os.Getenv("KAFKA_BROKERS"), ","),
		ReadingsTopic:  getEnv("READINGS_TOPIC", "corridor.readings"),
		DutyTopic:      getEnv("DUTY_TOPIC", "duty.commands"),
		PropertiesPath: getEnv("PROPERTIES_PATH", "./configs/fleetsim.properties"),
		LogDir:         os.Getenv("LOG_DIR"),
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required (comma-separated)")
	}
	if err := cfg.loadProperties(cfg.PropertiesPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Fleetsim) loadProperties(path string) error {
	var (
		regions  []string
		shard    string
		tickMs   = 1000
		seed     = int64(0)
		dutyPull = 0.35
		base     = map[string]float64{}
		jitter   = map[string]float64{}
	)

	err := forEachProperty(path, func(k, v string) error {
		switch k {
		case "regions":
			regions = splitAndTrim(v, ",")
			return nil
		case "shard":
			shard = v
			return nil
		case "tick_ms":
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("property %s: bad int %q", k, v)
			}
			tickMs = i
			return nil
		case "seed":
			i, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("property %s: bad int %q", k, v)
			}
			seed = i
			return nil
		case "duty.pull":
			return parseInto(k, v, &dutyPull)
		}
		if param, ok := strings.CutPrefix(k, "sensor.base."); ok {
			var f float64
			if err := parseInto(k, v, &f); err != nil {
				return err
			}
			base[param] = f
			return nil
		}
		if param, ok := strings.CutPrefix(k, "sensor.jitter."); ok {
			var f float64
			if err := parseInto(k, v, &f); err != nil {
				return err
			}
			jitter[param] = f
			return nil
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(regions) == 0 {
		return errors.New("properties must define regions=<r1,r2,...>")
	}
	if shard == "" {
		return errors.New("properties must define shard=<device shard csv>")
	}
	if tickMs <= 0 {
		return fmt.Errorf("tick_ms must be positive, got %d", tickMs)
	}
	for param := range jitter {
		if _, ok := base[param]; !ok {
			return fmt.Errorf("sensor.jitter.%s has no matching sensor.base.%s", param, param)
		}
	}

	c.Regions = regions
	c.ShardPath = shard
	c.TickMs = tickMs
	c.Seed = seed
	c.DutyPull = dutyPull
	c.SensorBase = base
	c.SensorJitter = jitter
	return nil
}
