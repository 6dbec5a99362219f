// v1
// internal/httpapi/tuning.go
package httpapi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/control"
)

// ErrTuningRange indicates that a submitted tuning value falls outside the
// permitted range.
var ErrTuningRange = errors.New("tuning value outside permitted range")

// Tuning is the runtime-adjustable slice of the evaluation setup: the
// admissibility epsilon and the four integrator gains.
type Tuning struct {
	Eps   float64       `json:"eps"`
	Gains control.Gains `json:"gains"`
}

// TuningStore holds the live tuning protected by a RWMutex to permit
// concurrent reads from the tick loop while HTTP handlers update values. The
// permitted bounds are fixed at construction so that HTTP validation can be
// shared with other callers.
type TuningStore struct {
	mu      sync.RWMutex
	current Tuning
	epsMax  float64
	gainMax float64
}

// NewTuningStore builds the runtime tuning store. The initial values must
// already sit inside the supplied bounds so the tick loop never operates on
// undefined data.
func NewTuningStore(initial Tuning, epsMax, gainMax float64) (*TuningStore, error) {
	if epsMax <= 0 || gainMax <= 0 {
		return nil, fmt.Errorf("tuning: bounds must be positive, got eps<=%.2f gain<=%.2f", epsMax, gainMax)
	}
	s := &TuningStore{epsMax: epsMax, gainMax: gainMax}
	if err := s.check(initial); err != nil {
		return nil, err
	}
	s.current = initial
	return s, nil
}

func (s *TuningStore) check(t Tuning) error {
	if t.Eps < 0 || t.Eps > s.epsMax {
		return fmt.Errorf("%w: eps %.4f outside 0..%.2f", ErrTuningRange, t.Eps, s.epsMax)
	}
	gains := []struct {
		name string
		v    float64
	}{
		{"eta_mass", t.Gains.Mass},
		{"eta_karma", t.Gains.Karma},
		{"eta_geo", t.Gains.Geo},
		{"eta_power", t.Gains.Power},
	}
	for _, g := range gains {
		if g.v < 0 || g.v > s.gainMax {
			return fmt.Errorf("%w: %s %.4f outside 0..%.2f", ErrTuningRange, g.name, g.v, s.gainMax)
		}
	}
	return nil
}

// Get returns the current tuning values.
func (s *TuningStore) Get() Tuning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set replaces the tuning after validating every value against the
// configured bounds. Any validation failure leaves the previous values
// untouched. Errors are wrapped with sentinel values so HTTP handlers can
// translate them into correct status codes.
func (s *TuningStore) Set(t Tuning) (Tuning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(t); err != nil {
		return s.current, err
	}
	s.current = t
	return s.current, nil
}

// Range exposes the permitted bounds so that HTTP validation can present
// user-friendly error messages without duplicating configuration knowledge.
func (s *TuningStore) Range() (epsMax, gainMax float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epsMax, s.gainMax
}
