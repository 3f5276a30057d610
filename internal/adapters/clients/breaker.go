package clients

import (
	"sync"
	"time"

	"github.com/jsamuelsen/contextify/internal/platform/config"
)

// State is the position of a Breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota

	// StateOpen rejects calls until the cool-down elapses.
	StateOpen

	// StateHalfOpen lets a limited number of trial calls through.
	StateHalfOpen
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker is a circuit breaker guarding one delivery destination.
//
//	closed    -> open       after MaxFailures consecutive failures
//	open      -> half-open  once Timeout has passed since the last failure
//	half-open -> closed     after HalfOpenLimit consecutive successes
//	half-open -> open       on any failure
type Breaker struct {
	cfg config.CircuitBreakerConfig

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	trials      int // calls in flight while half-open
	lastFailure time.Time
	listener    func(from, to State)

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg config.CircuitBreakerConfig) *Breaker {
	return &Breaker{cfg: cfg, now: time.Now}
}

// OnStateChange registers fn to be called, on its own goroutine, after each transition.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listener = fn
}

// Allow reports whether a call may proceed. A true result must be followed
// by RecordSuccess or RecordFailure.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.cfg.Timeout {
			return false
		}
		b.moveTo(StateHalfOpen)
		b.trials = 1
		return true
	case StateHalfOpen:
		if b.trials >= b.cfg.HalfOpenLimit {
			return false
		}
		b.trials++
		return true
	default:
		return false
	}
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.trials--
		b.successes++
		if b.successes >= b.cfg.HalfOpenLimit {
			b.moveTo(StateClosed)
		}
	}
}

// RecordFailure records a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.MaxFailures {
			b.moveTo(StateOpen)
		}
	case StateHalfOpen:
		b.trials--
		b.moveTo(StateOpen)
	}
}

// Do runs fn if the breaker allows it and records the outcome.
// It returns ErrCircuitOpen without calling fn when the breaker is open.
func (b *Breaker) Do(fn func() error) error {
	if !b.Allow() {
		return ErrCircuitOpen
	}

	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}

	b.RecordSuccess()

	return nil
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// moveTo must be called with b.mu held.
func (b *Breaker) moveTo(next State) {
	if b.state == next {
		return
	}

	prev := b.state
	b.state = next
	b.failures = 0
	b.successes = 0

	if b.listener != nil {
		go b.listener(prev, next)
	}
}
