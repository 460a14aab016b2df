package circuitbreaker

import (
	"sync"
	"time"
)

// State is the breaker position
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker trips open after consecutive failures so callers fail
// fast instead of queueing on a dead dependency. After the cooldown one
// probe request is let through; enough probe successes close the circuit
// again, a probe failure re-opens it.
type CircuitBreaker struct {
	mu sync.Mutex

	state       State
	failures    int
	successes   int
	openedAt    time.Time
	maxFailures int
	reqSuccess  int
	cooldown    time.Duration

	onStateChange func(from, to State)
}

// NewCircuitBreaker creates a breaker that opens after maxFailures
// consecutive failures and closes again after reqSuccess half-open
// successes. cooldown is how long the circuit stays open before probing.
func NewCircuitBreaker(maxFailures, reqSuccess int, cooldown time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if reqSuccess <= 0 {
		reqSuccess = 1
	}
	return &CircuitBreaker{
		maxFailures: maxFailures,
		reqSuccess:  reqSuccess,
		cooldown:    cooldown,
	}
}

// OnStateChange registers a transition callback, invoked outside the lock
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	cb.onStateChange = fn
	cb.mu.Unlock()
}

// AllowRequest reports whether a request may proceed, moving an expired
// open circuit to half-open.
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	switch cb.state {
	case StateClosed, StateHalfOpen:
		cb.mu.Unlock()
		return true
	default:
		if time.Since(cb.openedAt) > cb.cooldown {
			notify := cb.transition(StateHalfOpen)
			cb.mu.Unlock()
			notify()
			return true
		}
		cb.mu.Unlock()
		return false
	}
}

// RecordSuccess counts a success; in half-open it may close the circuit
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	notify := func() {}
	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.reqSuccess {
			notify = cb.transition(StateClosed)
		}
	}
	cb.mu.Unlock()
	notify()
}

// RecordFailure counts a failure; enough of them trip the circuit, and any
// half-open failure re-opens it immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	notify := func() {}
	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.maxFailures {
			notify = cb.transition(StateOpen)
		}
	case StateHalfOpen:
		notify = cb.transition(StateOpen)
	}
	cb.mu.Unlock()
	notify()
}

// GetState returns the current breaker position
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// transition must be called with the lock held; the returned func fires
// the callback and is invoked after unlocking.
func (cb *CircuitBreaker) transition(to State) func() {
	from := cb.state
	if from == to {
		return func() {}
	}
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	if to == StateOpen {
		cb.openedAt = time.Now()
	}
	fn := cb.onStateChange
	if fn == nil {
		return func() {}
	}
	return func() { fn(from, to) }
}
