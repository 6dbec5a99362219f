// v1
// internal/karma/store.go

// Package karma accumulates the NB credit stream minted by the duty
// controller and turns it into rolling fleet leaderboards. The store is fed
// in-process by the corridor daemon after each control tick; the manager
// recomputes window aggregates on a timer for the HTTP surface.
package karma

import (
	"sync"
	"time"
)

// Credit records one tick's worth of accrual for a single machine: the
// pollutant mass it removed and the NB bytes minted for that mass.
type Credit struct {
	MachineID  string
	Region     string
	Location   string
	Pollutant  string
	At         time.Time
	MassKg     float64
	KarmaBytes float64
}

// NodeStore keeps the most recent credits per machine in an append-only
// buffer. It is safe for concurrent use by multiple goroutines.
type NodeStore struct {
	mu      sync.RWMutex
	maxSize int
	nodes   map[string][]Credit
	order   []string
}

// NewNodeStore initializes a bounded store using the provided capacity.
// Values less than or equal to zero are promoted to one thousand credits per
// machine.
func NewNodeStore(max int) *NodeStore {
	if max <= 0 {
		max = 1000
	}
	return &NodeStore{maxSize: max, nodes: make(map[string][]Credit)}
}

// Append registers a new credit for the supplied machine, optionally evicting
// the oldest record if the configured capacity has been reached. The returned
// count represents the number of credits currently buffered for the machine.
// When an eviction occurs, the removed record is returned for logging
// purposes.
func (s *NodeStore) Append(machine string, rec Credit) (count int, evicted *Credit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if machine == "" {
		return 0, nil
	}

	buf, exists := s.nodes[machine]
	if !exists {
		s.order = append(s.order, machine)
	}
	if len(buf) >= s.maxSize {
		removed := buf[0]
		buf = append(buf[1:], rec)
		s.nodes[machine] = buf
		return len(buf), &removed
	}
	buf = append(buf, rec)
	s.nodes[machine] = buf
	return len(buf), nil
}

// Snapshot clones and returns the buffered credits for the provided machine.
// The caller receives a defensive copy that is safe to mutate.
func (s *NodeStore) Snapshot(machine string) []Credit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf := s.nodes[machine]
	if len(buf) == 0 {
		return nil
	}
	out := make([]Credit, len(buf))
	copy(out, buf)
	return out
}

// SnapshotAll returns defensive copies of all buffered credits grouped by
// machine together with the current machine ordering. The order preserves the
// first-seen sequence so aggregations can provide stable rankings when totals
// match.
func (s *NodeStore) SnapshotAll() (map[string][]Credit, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.nodes) == 0 {
		return map[string][]Credit{}, nil
	}

	clones := make(map[string][]Credit, len(s.nodes))
	for machine, credits := range s.nodes {
		if len(credits) == 0 {
			clones[machine] = nil
			continue
		}
		copied := make([]Credit, len(credits))
		copy(copied, credits)
		clones[machine] = copied
	}

	order := make([]string, len(s.order))
	copy(order, s.order)
	return clones, order
}
