package circuit

import (
	"sync"
	"time"

	"aurum/internal/logger"
)

// Breaker guards the market fetch path: repeated bridge failures open it and
// the poll loop backs off instead of hammering a dead endpoint.

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	threshold   int
	timeout     time.Duration
	lastFailure time.Time
	name        string
	onOpen      func(name string)
}

func NewBreaker(name string, threshold int, timeout time.Duration) *Breaker {
	return &Breaker{name: name, threshold: threshold, timeout: timeout, state: StateClosed}
}

// SetOpenHandler installs a callback fired when the breaker trips open.
func (b *Breaker) SetOpenHandler(fn func(name string)) {
	b.mu.Lock()
	b.onOpen = fn
	b.mu.Unlock()
}

func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.lastFailure) > b.timeout {
			b.transition(StateHalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateHalfOpen:
		b.transition(StateClosed)
		b.failures = 0
	case StateClosed:
		b.failures = 0
	}
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = time.Now()
	switch b.state {
	case StateClosed:
		if b.failures >= b.threshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	logger.Warnf("breaker %s: %s -> %s (failures=%d/%d)", b.name, from, to, b.failures, b.threshold)
	if to == StateOpen && b.onOpen != nil {
		go b.onOpen(b.name)
	}
}
