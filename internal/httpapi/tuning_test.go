// v1
// internal/httpapi/tuning_test.go
package httpapi

import (
	"errors"
	"sync"
	"testing"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/control"
)

func TestTuningStoreRejectsOutOfRangeInitial(t *testing.T) {
	_, err := NewTuningStore(Tuning{Eps: 2.0, Gains: control.DefaultGains()}, 1.0, 1.0)
	if !errors.Is(err, ErrTuningRange) {
		t.Fatalf("expected ErrTuningRange, got %v", err)
	}

	_, err = NewTuningStore(Tuning{Eps: 0.001, Gains: control.Gains{Mass: -0.1}}, 1.0, 1.0)
	if !errors.Is(err, ErrTuningRange) {
		t.Fatalf("expected ErrTuningRange for negative gain, got %v", err)
	}
}

func TestTuningStoreSetLeavesValuesOnFailure(t *testing.T) {
	store, err := NewTuningStore(Tuning{Eps: 0.001, Gains: control.DefaultGains()}, 1.0, 1.0)
	if err != nil {
		t.Fatalf("new tuning store: %v", err)
	}

	_, err = store.Set(Tuning{Eps: 0.001, Gains: control.Gains{Mass: 3.0}})
	if !errors.Is(err, ErrTuningRange) {
		t.Fatalf("expected ErrTuningRange, got %v", err)
	}
	if got := store.Get(); got.Gains.Mass != 0.1 {
		t.Fatalf("expected store untouched, got %+v", got.Gains)
	}
}

func TestTuningStoreConcurrentAccess(t *testing.T) {
	store, err := NewTuningStore(Tuning{Eps: 0.001, Gains: control.DefaultGains()}, 1.0, 1.0)
	if err != nil {
		t.Fatalf("new tuning store: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(eps float64) {
			defer wg.Done()
			if _, err := store.Set(Tuning{Eps: eps, Gains: control.DefaultGains()}); err != nil {
				t.Errorf("set error: %v", err)
			}
		}(0.001 + float64(i%3)*0.001)
		go func() {
			defer wg.Done()
			got := store.Get()
			if got.Eps < 0 || got.Eps > 1.0 {
				t.Errorf("eps out of range during concurrent access: %v", got.Eps)
			}
		}()
	}
	wg.Wait()

	epsMax, gainMax := store.Range()
	if epsMax != 1.0 || gainMax != 1.0 {
		t.Fatalf("unexpected bounds: %v %v", epsMax, gainMax)
	}
	if got := store.Get(); got.Eps < 0.001 || got.Eps > 0.003 {
		t.Fatalf("eps outside written set after concurrent access: %v", got.Eps)
	}
}
