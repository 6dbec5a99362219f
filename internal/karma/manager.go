// v1
// internal/karma/manager.go
package karma

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// WindowSpec captures the textual identifier used by the HTTP surface and the
// actual rolling duration enforced during aggregation.
type WindowSpec struct {
	Name     string
	Duration time.Duration
}

const (
	// Window24hName identifies the trailing 24-hour window.
	Window24hName = "24h"
	// Window7dName identifies the trailing seven-day window.
	Window7dName = "7d"
	// FleetScope labels the leaderboard scope exposed via HTTP.
	FleetScope = "fleet"
)

var (
	defaultWindows = []WindowSpec{
		{Name: Window24hName, Duration: 24 * time.Hour},
		{Name: Window7dName, Duration: 7 * 24 * time.Hour},
	}
	windowRegistry = map[string]WindowSpec{
		Window24hName: {Name: Window24hName, Duration: 24 * time.Hour},
		Window7dName:  {Name: Window7dName, Duration: 7 * 24 * time.Hour},
	}
)

// Leaderboard represents the aggregated snapshot returned by the HTTP layer.
type Leaderboard struct {
	GeneratedAt time.Time
	Scope       string
	Window      string
	Entries     []Entry
}

// Entry records a single ranked machine in the leaderboard snapshot. Higher
// KarmaBytes rank first.
type Entry struct {
	Rank       int
	MachineID  string
	Region     string
	KarmaBytes float64
	MassKg     float64
}

// Manager maintains rolling aggregations for all configured windows by
// reading from the in-memory credit buffer. It is safe for concurrent use.
type Manager struct {
	store   *NodeStore
	windows []WindowSpec
	log     *slog.Logger

	mu        sync.RWMutex
	boards    map[string]Leaderboard
	lastStamp time.Time
}

// NewManager wires a karma manager for the supplied store. Unknown or empty
// window lists fall back to the canonical 24h and 7d durations.
func NewManager(store *NodeStore, logger *slog.Logger, windows []WindowSpec) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store must not be nil")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	resolved := make([]WindowSpec, 0, len(windows))
	seen := make(map[string]struct{}, len(windows))
	for _, window := range windows {
		spec, ok := windowRegistry[strings.ToLower(strings.TrimSpace(window.Name))]
		if !ok {
			continue
		}
		if _, exists := seen[spec.Name]; exists {
			continue
		}
		resolved = append(resolved, spec)
		seen[spec.Name] = struct{}{}
	}
	if len(resolved) == 0 {
		resolved = DefaultWindows()
	}

	m := &Manager{
		store:   store,
		windows: resolved,
		log:     logger.With(slog.String("component", "karma_manager")),
		boards:  make(map[string]Leaderboard, len(resolved)),
	}

	m.Refresh(time.Now().UTC())
	return m, nil
}

// DefaultWindows returns a copy of the canonical windows handled by the
// service so callers can seed configurations without mutating shared slices.
func DefaultWindows() []WindowSpec {
	out := make([]WindowSpec, len(defaultWindows))
	copy(out, defaultWindows)
	return out
}

// ResolveWindows maps textual identifiers to the supported rolling windows,
// discarding unknown entries while preserving the caller-provided order.
func ResolveWindows(raw []string) []WindowSpec {
	if len(raw) == 0 {
		return DefaultWindows()
	}
	seen := make(map[string]struct{}, len(raw))
	resolved := make([]WindowSpec, 0, len(raw))
	for _, entry := range raw {
		normalized := strings.ToLower(strings.TrimSpace(entry))
		if normalized == "" {
			continue
		}
		spec, ok := windowRegistry[normalized]
		if !ok {
			continue
		}
		if _, exists := seen[spec.Name]; exists {
			continue
		}
		resolved = append(resolved, spec)
		seen[spec.Name] = struct{}{}
	}
	if len(resolved) == 0 {
		return DefaultWindows()
	}
	return resolved
}

// Windows returns the configured aggregation windows.
func (m *Manager) Windows() []WindowSpec {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]WindowSpec, len(m.windows))
	copy(out, m.windows)
	return out
}

// Refresh recomputes all leaderboards at the supplied instant, pruning
// credits that fall outside each rolling window. Machines sort by descending
// karma so the heaviest cleaners rank first; ties keep first-seen order. The
// snapshots are stored atomically so concurrent readers observe a consistent
// view.
func (m *Manager) Refresh(at time.Time) {
	if m == nil {
		return
	}
	now := at.UTC()

	nodes, order := m.store.SnapshotAll()
	boards := make(map[string]Leaderboard, len(m.windows))

	for _, window := range m.windows {
		cutoff := now.Add(-window.Duration)
		entries := make([]Entry, 0)

		for _, machine := range order {
			credits := nodes[machine]
			var karma, mass float64
			var region string
			var inWindow bool
			for _, credit := range credits {
				if credit.At.Before(cutoff) || credit.At.After(now) {
					continue
				}
				karma += credit.KarmaBytes
				mass += credit.MassKg
				region = credit.Region
				inWindow = true
			}
			if inWindow {
				entries = append(entries, Entry{
					MachineID:  machine,
					Region:     region,
					KarmaBytes: karma,
					MassKg:     mass,
				})
			}
		}

		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].KarmaBytes > entries[j].KarmaBytes
		})
		for idx := range entries {
			entries[idx].Rank = idx + 1
		}

		board := Leaderboard{
			GeneratedAt: now,
			Scope:       FleetScope,
			Window:      window.Name,
			Entries:     append([]Entry(nil), entries...),
		}
		boards[window.Name] = board

		m.log.Info("karma_window_refreshed",
			slog.String("window", window.Name),
			slog.Int("entries", len(entries)),
			slog.Time("generated_at", now),
		)
	}

	m.mu.Lock()
	m.boards = boards
	m.lastStamp = now
	m.mu.Unlock()

	m.log.Info("karma_refresh_complete",
		slog.Int("windows", len(m.windows)),
		slog.Time("generated_at", now),
	)
}

// Snapshot returns a defensive copy of the requested leaderboard if it
// exists.
func (m *Manager) Snapshot(window string) (Leaderboard, bool) {
	if m == nil {
		return Leaderboard{}, false
	}
	normalized := strings.ToLower(strings.TrimSpace(window))
	m.mu.RLock()
	board, ok := m.boards[normalized]
	m.mu.RUnlock()
	if !ok {
		return Leaderboard{}, false
	}
	clone := Leaderboard{
		GeneratedAt: board.GeneratedAt,
		Scope:       board.Scope,
		Window:      board.Window,
		Entries:     make([]Entry, len(board.Entries)),
	}
	copy(clone.Entries, board.Entries)
	return clone, true
}

// Run drives periodic refreshes using the provided ticker interval until the
// context is cancelled. The method triggers an immediate recomputation upon
// startup and only returns unexpected errors.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	if ctx == nil {
		return errors.New("context must not be nil")
	}
	if interval <= 0 {
		interval = time.Minute
	}

	m.log.Info("karma_refresh_loop_started", slog.String("interval", interval.String()))
	m.Refresh(time.Now().UTC())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("karma_refresh_loop_stopped")
			return nil
		case <-ticker.C:
			m.Refresh(time.Now().UTC())
		}
	}
}

// LastGeneratedAt exposes the timestamp of the latest refresh to assist with
// instrumentation and diagnostics.
func (m *Manager) LastGeneratedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastStamp
}
