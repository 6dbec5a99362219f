// v1
// internal/circuitbreaker/circuitbreaker_test.go
package circuitbreaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBreakerOpensAndFastFails(t *testing.T) {
	b := New("test", Config{MaxFailures: 2, ResetTimeout: time.Minute, SuccessesToClose: 1}, discardLogger(), nil)
	opCalls := 0
	failing := func(ctx context.Context) error {
		opCalls++
		return errors.New("synthetic failure")
	}

	if err := b.Execute(context.Background(), failing); err == nil || errors.Is(err, ErrOpen) {
		t.Fatalf("first failure should surface the op error, got %v", err)
	}
	if b.State() != Closed {
		t.Fatalf("expected Closed after one failure, got %v", b.State())
	}

	if err := b.Execute(context.Background(), failing); !errors.Is(err, ErrOpen) {
		t.Fatalf("tripping failure should return ErrOpen, got %v", err)
	}
	if b.State() != Open {
		t.Fatalf("expected Open after two failures, got %v", b.State())
	}

	if err := b.Execute(context.Background(), failing); !errors.Is(err, ErrOpen) {
		t.Fatalf("open breaker must fast-fail, got %v", err)
	}
	if opCalls != 2 {
		t.Fatalf("fast-fail must not invoke the op: %d calls", opCalls)
	}
}

func TestBreakerProbeGatesRecovery(t *testing.T) {
	probeErr := errors.New("broker still down")
	probeCalls := 0
	probe := func(ctx context.Context) error {
		probeCalls++
		if probeCalls == 1 {
			return probeErr
		}
		return nil
	}
	b := New("test", Config{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond, SuccessesToClose: 1}, discardLogger(), probe)

	opCalls := 0
	if err := b.Execute(context.Background(), func(ctx context.Context) error {
		opCalls++
		return errors.New("synthetic failure")
	}); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected trip to return ErrOpen, got %v", err)
	}

	time.Sleep(25 * time.Millisecond)
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		opCalls++
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("failed probe must keep the breaker open, got %v", err)
	}
	if opCalls != 1 {
		t.Fatalf("op must not run behind a failed probe: %d calls", opCalls)
	}

	time.Sleep(25 * time.Millisecond)
	err = b.Execute(context.Background(), func(ctx context.Context) error {
		opCalls++
		return nil
	})
	if err != nil {
		t.Fatalf("recovery execute failed: %v", err)
	}
	if b.State() != Closed {
		t.Fatalf("expected Closed after probe and success, got %v", b.State())
	}
	if probeCalls != 2 || opCalls != 2 {
		t.Fatalf("expected 2 probes and 2 op calls, got %d and %d", probeCalls, opCalls)
	}
}

func TestBreakerStateChangeHook(t *testing.T) {
	b := New("test", Config{MaxFailures: 1, ResetTimeout: 5 * time.Millisecond, SuccessesToClose: 1}, discardLogger(), nil)
	var seen []State
	b.OnStateChange(func(s State) { seen = append(seen, s) })

	_ = b.Execute(context.Background(), func(ctx context.Context) error { return errors.New("synthetic failure") })
	time.Sleep(15 * time.Millisecond)
	if err := b.Execute(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("recovery execute failed: %v", err)
	}

	want := []State{Open, HalfOpen, Closed}
	if len(seen) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transition %d mismatch: got %v want %v", i, seen[i], want[i])
		}
	}
	if Open.GaugeValue() != 2 || HalfOpen.GaugeValue() != 1 || Closed.GaugeValue() != 0 {
		t.Fatal("gauge mapping must be 0 closed, 1 half-open, 2 open")
	}
}
