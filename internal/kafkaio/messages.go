// v1
// internal/kafkaio/messages.go
// Package kafkaio owns the daemon's Kafka surfaces: the telemetry topic it
// drains (one partition per region), and the duty-command, corridor-ledger
// and karma topics it publishes to. All reads and writes go through the
// circuit-breaker wrappers.
package kafkaio

import (
	"github.com/Doctor0Evil/Cybocindric-Research/internal/control"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/ecosafety"
)

// TelemetryBatch is one region tick published by the fleet: the corridor
// sensor readings plus every machine row that reported.
type TelemetryBatch struct {
	Region  string              `json:"region"`
	TSMs    int64               `json:"ts_ms"`
	Sensors map[string]float64  `json:"sensors"`
	Rows    []control.DeviceRow `json:"rows"`
}

// DutyCommand tells one machine its next duty cycle. Keyed by machine id so
// a machine's commands stay ordered within a partition.
type DutyCommand struct {
	MachineID string  `json:"machineid"`
	Region    string  `json:"region"`
	Duty      float64 `json:"duty_cycle"`
	TSMs      int64   `json:"ts_ms"`
}

// LedgerEvent is the per-tick corridor verdict appended to the ledger topic.
type LedgerEvent struct {
	Region       string             `json:"region"`
	TSMs         int64              `json:"ts_ms"`
	VPrev        float64            `json:"v_prev"`
	VNext        float64            `json:"v_next"`
	Decision     ecosafety.Decision `json:"decision"`
	Flags        ecosafety.Flags    `json:"flags"`
	Gates        ecosafety.Gates    `json:"gates"`
	LCAOK        bool               `json:"lca_ok"`
	Nodes        int                `json:"nodes"`
	UnknownUnits int                `json:"unknown_units"`
}

// KarmaEvent credits one machine's tick yield for downstream consumers.
type KarmaEvent struct {
	MachineID  string  `json:"machineid"`
	Region     string  `json:"region"`
	Location   string  `json:"location"`
	Pollutant  string  `json:"pollutant"`
	MassKg     float64 `json:"mass_kg"`
	KarmaBytes float64 `json:"karma_bytes"`
	Duty       float64 `json:"duty_cycle"`
	TSMs       int64   `json:"ts_ms"`
}
