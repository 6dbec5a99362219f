// v1
// internal/httpapi/board.go
package httpapi

import (
	"sync"
	"time"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/control"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/ecosafety"
)

// CoordView is the JSON shape of one normalized corridor coordinate.
type CoordView struct {
	Param   string  `json:"param"`
	Channel int     `json:"channel"`
	R       float64 `json:"r"`
	W       float64 `json:"w"`
}

// RegionStatus is the full evaluation of the most recent tick for one region.
// The tick loop builds a fresh value every round and hands it to the board;
// after Publish the snapshot must not be mutated.
type RegionStatus struct {
	Region       string              `json:"region"`
	TSMs         int64               `json:"ts_ms"`
	VPrev        float64             `json:"v_prev"`
	VNext        float64             `json:"v_next"`
	Coords       []CoordView         `json:"coords"`
	Decision     ecosafety.Decision  `json:"decision"`
	Flags        ecosafety.Flags     `json:"flags"`
	Gates        ecosafety.Gates     `json:"gates"`
	LCAOK        bool                `json:"lca_ok"`
	Nodes        []control.NodeState `json:"nodes"`
	Totals       control.FleetTotals `json:"totals"`
	UnknownUnits int                 `json:"unknown_units"`
}

// Stats is the counter block served by /status.
type Stats struct {
	Service      string `json:"service"`
	StartedAt    string `json:"started_at"`
	Ticks        int64  `json:"ticks"`
	TickFailures int64  `json:"tick_failures"`
	DutiesOut    int64  `json:"duties_out"`
	LedgerWrites int64  `json:"ledger_writes"`
	KarmaEvents  int64  `json:"karma_events"`
	Regions      int    `json:"regions"`
}

// Board is the daemon's published state: the latest evaluation per region
// plus run counters. The tick loop writes, HTTP handlers read. Safe for
// concurrent use.
type Board struct {
	mu        sync.RWMutex
	service   string
	startedAt time.Time
	latest    map[string]RegionStatus
	order     []string

	ticks        int64
	tickFailures int64
	dutiesOut    int64
	ledgerWrites int64
	karmaEvents  int64
}

// NewBoard initializes an empty board for the named service.
func NewBoard(service string) *Board {
	return &Board{
		service:   service,
		startedAt: time.Now().UTC(),
		latest:    make(map[string]RegionStatus),
	}
}

// Publish replaces the latest snapshot for the snapshot's region and counts
// the tick. First-seen region order is preserved for listing endpoints.
func (b *Board) Publish(rs RegionStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.latest[rs.Region]; !exists {
		b.order = append(b.order, rs.Region)
	}
	b.latest[rs.Region] = rs
	b.ticks++
}

// RecordFailure counts a tick that aborted before producing a snapshot.
func (b *Board) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tickFailures++
}

// CountDuties adds published duty commands to the outbound counter.
func (b *Board) CountDuties(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dutiesOut += int64(n)
}

// CountLedgerWrite counts one successful ledger publication.
func (b *Board) CountLedgerWrite() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ledgerWrites++
}

// CountKarmaEvents adds published karma events to the outbound counter.
func (b *Board) CountKarmaEvents(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.karmaEvents += int64(n)
}

// Stats returns the current counters.
func (b *Board) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		Service:      b.service,
		StartedAt:    b.startedAt.Format(time.RFC3339),
		Ticks:        b.ticks,
		TickFailures: b.tickFailures,
		DutiesOut:    b.dutiesOut,
		LedgerWrites: b.ledgerWrites,
		KarmaEvents:  b.karmaEvents,
		Regions:      len(b.latest),
	}
}

// Region returns the latest snapshot for the named region if one exists.
func (b *Board) Region(name string) (RegionStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rs, ok := b.latest[name]
	return rs, ok
}

// Regions returns the latest snapshots in first-seen region order.
func (b *Board) Regions() []RegionStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]RegionStatus, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.latest[name])
	}
	return out
}

// Nodes flattens the latest per-region snapshots into one fleet view,
// regions in first-seen order, rows in telemetry order within each region.
func (b *Board) Nodes() []control.NodeState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]control.NodeState, 0)
	for _, name := range b.order {
		out = append(out, b.latest[name].Nodes...)
	}
	return out
}

// ViewCoords maps residual coordinates into their JSON view shape.
func ViewCoords(coords []ecosafety.RiskCoordinate) []CoordView {
	out := make([]CoordView, len(coords))
	for i, c := range coords {
		out[i] = CoordView{Param: c.Param, Channel: c.Channel, R: c.R, W: c.W}
	}
	return out
}
