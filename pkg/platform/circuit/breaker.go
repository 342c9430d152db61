// Package circuit tracks consecutive failures of a downstream dependency.
//
// The breaker never blocks calls. It reports health so readiness probes and
// operators can see when a dependency is failing, and it notifies a callback
// on every transition. An open circuit turns half-open once the cooldown has
// passed without failures, so readiness recovers even when no traffic arrives.
package circuit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOpen is returned by Health while the circuit is open.
var ErrOpen = errors.New("circuit open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Breaker opens after FailureThreshold consecutive failures and closes
// again after SuccessThreshold consecutive successes while open or half-open.
// A failure while half-open reopens it.
type Breaker struct {
	mu               sync.Mutex
	name             string
	state            State
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	lastFailure      time.Time
	now              func() time.Time
	onChange         func(name string, from, to State)
}

type Option func(*Breaker)

// WithFailureThreshold defaults to 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold defaults to 3.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithCooldown sets how long the circuit stays open after its last failure
// before turning half-open. Defaults to 30s.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithClock replaces time.Now for cooldown checks.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithOnStateChange registers fn to run after each transition.
// fn is called without the breaker lock held.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) {
		b.onChange = fn
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		successThreshold: 3,
		cooldown:         30 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State {
	b.mu.Lock()
	var changes []transition
	b.expire(&changes)
	state := b.state
	b.mu.Unlock()

	b.notify(changes)
	return state
}

// Health returns ErrOpen, wrapped with the breaker name, while open.
// A half-open circuit reports healthy.
func (b *Breaker) Health() error {
	if b.State() == StateOpen {
		return fmt.Errorf("%s: %w", b.name, ErrOpen)
	}
	return nil
}

// RecordFailure reports a failed call and returns the resulting state.
func (b *Breaker) RecordFailure() State {
	b.mu.Lock()
	var changes []transition
	b.expire(&changes)
	b.failures++
	b.successes = 0
	b.lastFailure = b.now()
	switch {
	case b.state == StateHalfOpen:
		b.move(StateOpen, &changes)
	case b.state == StateClosed && b.failures >= b.failureThreshold:
		b.move(StateOpen, &changes)
	}
	state := b.state
	b.mu.Unlock()

	b.notify(changes)
	return state
}

// RecordSuccess reports a successful call and returns the resulting state.
func (b *Breaker) RecordSuccess() State {
	b.mu.Lock()
	var changes []transition
	b.expire(&changes)
	if b.state == StateClosed {
		b.failures = 0
	} else {
		b.successes++
		if b.successes >= b.successThreshold {
			b.move(StateClosed, &changes)
			b.failures = 0
			b.successes = 0
		}
	}
	state := b.state
	b.mu.Unlock()

	b.notify(changes)
	return state
}

func (b *Breaker) Reset() {
	b.mu.Lock()
	var changes []transition
	b.move(StateClosed, &changes)
	b.failures = 0
	b.successes = 0
	b.mu.Unlock()

	b.notify(changes)
}

type transition struct {
	from, to State
}

// expire turns an open circuit half-open once the cooldown has passed.
// Callers hold b.mu.
func (b *Breaker) expire(changes *[]transition) {
	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.cooldown {
		b.move(StateHalfOpen, changes)
	}
}

func (b *Breaker) move(to State, changes *[]transition) {
	if b.state != to {
		*changes = append(*changes, transition{from: b.state, to: to})
		b.state = to
	}
}

func (b *Breaker) notify(changes []transition) {
	if b.onChange == nil {
		return
	}
	for _, c := range changes {
		b.onChange(b.name, c.from, c.to)
	}
}
