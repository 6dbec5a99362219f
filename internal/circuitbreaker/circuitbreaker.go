// v1
// internal/circuitbreaker/circuitbreaker.go
// Package circuitbreaker guards Kafka publishes and fetches against a broker
// outage: after MaxFailures consecutive failures the breaker opens and
// fast-fails callers, after ResetTimeout it probes, and SuccessesToClose
// half-open successes close it again.
package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// GaugeValue maps a state onto the cb_state metric scale
// (0 closed, 1 half-open, 2 open).
func (s State) GaugeValue() float64 {
	switch s {
	case HalfOpen:
		return 1
	case Open:
		return 2
	default:
		return 0
	}
}

var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config holds the breaker tunables.
type Config struct {
	MaxFailures      int           // consecutive failures before opening
	ResetTimeout     time.Duration // how long to wait before probing again
	SuccessesToClose int           // half-open successes required to close
}

type Breaker struct {
	name    string
	cfg     Config
	logger  *slog.Logger
	onState func(State)

	mu          sync.Mutex
	state       State
	recentFails int
	halfOpenOKs int
	openedAt    time.Time

	probe func(ctx context.Context) error
}

// New builds a breaker. A nil logger falls back to slog.Default; a nil
// probe makes the half-open transition rely on the operation itself.
func New(name string, cfg Config, logger *slog.Logger, probe func(ctx context.Context) error) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SuccessesToClose < 1 {
		cfg.SuccessesToClose = 1
	}
	b := &Breaker{
		name:   name,
		cfg:    cfg,
		logger: logger,
		state:  Closed,
		probe:  probe,
	}
	b.logger.Info("breaker_created", "name", name, "maxFailures", cfg.MaxFailures, "resetTimeout", cfg.ResetTimeout.String())
	return b
}

// OnStateChange registers a hook invoked on every state transition, for
// exporting the state as a gauge. Must be set before the breaker is shared.
func (b *Breaker) OnStateChange(fn func(State)) {
	b.onState = fn
}

func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	state := b.state
	openedAt := b.openedAt
	b.mu.Unlock()

	switch state {
	case Open:
		if time.Since(openedAt) < b.cfg.ResetTimeout {
			b.logger.Warn("breaker_fast_fail", "name", b.name, "since_open", time.Since(openedAt).String())
			return ErrOpen
		}
		return b.probeThenOp(ctx, op)
	case HalfOpen:
		return b.halfOpenOp(ctx, op)
	default:
		err := op(ctx)
		if err == nil {
			b.onSuccess()
			return nil
		}
		if b.onFailure(err) {
			return ErrOpen
		}
		return err
	}
}

func (b *Breaker) probeThenOp(ctx context.Context, op func(ctx context.Context) error) error {
	b.setState(HalfOpen)
	b.mu.Lock()
	b.halfOpenOKs = 0
	b.mu.Unlock()
	b.logger.Info("breaker_probe_start", "name", b.name)

	if b.probe != nil {
		if err := b.probe(ctx); err != nil {
			b.logger.Warn("breaker_probe_failed", "name", b.name, "error", err.Error())
			b.reopen()
			return ErrOpen
		}
		b.logger.Info("breaker_probe_ok", "name", b.name)
	}
	return b.halfOpenOp(ctx, op)
}

func (b *Breaker) halfOpenOp(ctx context.Context, op func(ctx context.Context) error) error {
	if err := op(ctx); err != nil {
		b.logger.Warn("breaker_halfopen_op_failed", "name", b.name, "error", err.Error())
		b.reopen()
		return err
	}

	b.mu.Lock()
	b.halfOpenOKs++
	closeNow := b.halfOpenOKs >= b.cfg.SuccessesToClose
	b.mu.Unlock()
	if closeNow {
		b.setState(Closed)
		b.mu.Lock()
		b.recentFails = 0
		b.mu.Unlock()
		b.logger.Info("breaker_closed_after_probe", "name", b.name)
	}
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	b.recentFails = 0
	b.mu.Unlock()
}

// onFailure counts a closed-state failure and reports whether it tripped
// the breaker open.
func (b *Breaker) onFailure(err error) bool {
	b.mu.Lock()
	b.recentFails++
	fails := b.recentFails
	b.mu.Unlock()
	b.logger.Warn("operation_failure", "name", b.name, "failures", fails, "error", err.Error())
	if fails >= b.cfg.MaxFailures {
		b.mu.Lock()
		b.state = Open
		b.openedAt = time.Now()
		b.mu.Unlock()
		b.notify(Open)
		b.logger.Error("breaker_opened", "name", b.name, "maxFailures", b.cfg.MaxFailures)
		return true
	}
	return false
}

func (b *Breaker) reopen() {
	b.mu.Lock()
	b.state = Open
	b.openedAt = time.Now()
	b.recentFails++
	b.mu.Unlock()
	b.notify(Open)
}

func (b *Breaker) setState(s State) {
	b.mu.Lock()
	changed := b.state != s
	b.state = s
	b.mu.Unlock()
	if changed {
		b.notify(s)
	}
}

func (b *Breaker) notify(s State) {
	if b.onState != nil {
		b.onState(s)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
