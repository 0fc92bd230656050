package tracker

import (
	"sync"
	"time"
)

type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

const (
	DefaultFailureThreshold = 5
	DefaultOpenTimeout      = 60 * time.Minute
)

type breakerEntry struct {
	failures int
	state    BreakerState
	openedAt time.Time
}

// CircuitBreaker guards the manual check path against hammering a failing
// channel. State is kept per channel: after failureThreshold consecutive
// failures a channel's circuit opens, and once openTimeout has elapsed a
// single probe is allowed through; its outcome decides whether the circuit
// closes or reopens. One channel's failures never gate another channel.
//
// State is in-memory only: a restart resets all circuits.
type CircuitBreaker struct {
	mu               sync.Mutex
	failureThreshold int
	openTimeout      time.Duration
	entries          map[string]*breakerEntry

	now func() time.Time
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = DefaultFailureThreshold
	}
	if openTimeout <= 0 {
		openTimeout = DefaultOpenTimeout
	}

	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		entries:          make(map[string]*breakerEntry),
		now:              time.Now,
	}
}

func (b *CircuitBreaker) entry(channelID string) *breakerEntry {
	e, ok := b.entries[channelID]
	if !ok {
		e = &breakerEntry{state: BreakerClosed}
		b.entries[channelID] = e
	}
	return e
}

// Allow reports whether a call for the channel may proceed. When the circuit
// is open and the timeout has elapsed, it transitions to half-open and allows
// the probe.
func (b *CircuitBreaker) Allow(channelID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.entry(channelID)
	switch e.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if b.now().Sub(e.openedAt) >= b.openTimeout {
			e.state = BreakerHalfOpen
			return true
		}
		return false
	}

	return false
}

func (b *CircuitBreaker) RecordSuccess(channelID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.entry(channelID)
	e.failures = 0
	e.state = BreakerClosed
}

func (b *CircuitBreaker) RecordFailure(channelID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.entry(channelID)
	if e.state == BreakerHalfOpen {
		e.state = BreakerOpen
		e.openedAt = b.now()
		return
	}

	e.failures++
	if e.failures >= b.failureThreshold {
		e.state = BreakerOpen
		e.openedAt = b.now()
	}
}

func (b *CircuitBreaker) State(channelID string) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.entry(channelID)
	if e.state == BreakerOpen && b.now().Sub(e.openedAt) >= b.openTimeout {
		return BreakerHalfOpen
	}

	return e.state
}

func (b *CircuitBreaker) Failures(channelID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.entry(channelID).failures
}

// OpenCount reports how many channels currently have an open circuit.
func (b *CircuitBreaker) OpenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	open := 0
	for _, e := range b.entries {
		if e.state == BreakerOpen && b.now().Sub(e.openedAt) < b.openTimeout {
			open++
		}
	}
	return open
}
