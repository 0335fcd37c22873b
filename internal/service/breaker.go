package service

import (
	"context"
	"sync"
	"time"

	"payments/internal/config"
)

// BreakerState represents the circuit breaker state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// CircuitBreaker guards the settlement path. While closed, call outcomes are
// recorded in a rolling count window; once the window holds at least MinCalls
// outcomes and the failure rate reaches the threshold, the breaker opens and
// short-circuits calls with ErrCircuitOpen. After the cool-down a single probe
// call is let through: success closes the breaker, failure reopens it.
//
// Calls run concurrently, so every admission is stamped with the generation
// current at admission time; the generation advances on every state
// transition and outcomes from an earlier generation are discarded. Only the
// admitted probe can resolve the half-open state.
type CircuitBreaker struct {
	mu sync.Mutex

	state    BreakerState
	gen      uint64
	window   []bool // true = failure
	openedAt time.Time
	probing  bool

	failureRateThreshold float64
	minCalls             int
	windowSize           int
	coolDown             time.Duration
}

// NewCircuitBreaker creates a new CircuitBreaker.
func NewCircuitBreaker(cfg config.BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		state:                BreakerClosed,
		failureRateThreshold: cfg.FailureRateThreshold,
		minCalls:             cfg.MinCalls,
		windowSize:           cfg.WindowSize,
		coolDown:             cfg.CoolDown,
	}
}

// Execute runs fn under the breaker. When the breaker is open (or a half-open
// probe is already in flight) fn is not invoked and ErrCircuitOpen is
// returned; otherwise fn's error is returned and counted.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	gen, ok := b.allow()
	if !ok {
		return ErrCircuitOpen
	}

	err := fn(ctx)
	b.record(gen, err == nil)
	return err
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// transition moves the breaker to a new state and invalidates outcomes of
// calls admitted under the previous one.
func (b *CircuitBreaker) transition(state BreakerState) {
	b.state = state
	b.gen++
}

// allow reports whether a call may proceed, returning the generation it was
// admitted under.
func (b *CircuitBreaker) allow() (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return b.gen, true
	case BreakerOpen:
		if time.Since(b.openedAt) >= b.coolDown {
			b.transition(BreakerHalfOpen)
			b.probing = true
			return b.gen, true
		}
		return 0, false
	case BreakerHalfOpen:
		// Only one probe at a time.
		if b.probing {
			return 0, false
		}
		b.probing = true
		return b.gen, true
	}
	return 0, false
}

func (b *CircuitBreaker) record(gen uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A call that finished after the breaker changed state says nothing
	// about the current state; drop it.
	if gen != b.gen {
		return
	}

	if b.state == BreakerHalfOpen {
		b.probing = false
		if success {
			b.transition(BreakerClosed)
			b.window = nil
		} else {
			b.transition(BreakerOpen)
			b.openedAt = time.Now()
		}
		return
	}

	if b.state != BreakerClosed {
		return
	}

	b.window = append(b.window, !success)
	if len(b.window) > b.windowSize {
		b.window = b.window[len(b.window)-b.windowSize:]
	}

	if len(b.window) < b.minCalls {
		return
	}

	failures := 0
	for _, failed := range b.window {
		if failed {
			failures++
		}
	}

	if float64(failures)/float64(len(b.window)) >= b.failureRateThreshold {
		b.transition(BreakerOpen)
		b.openedAt = time.Now()
		b.window = nil
	}
}
