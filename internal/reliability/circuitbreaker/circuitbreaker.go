package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// ErrOpen is returned by Execute while the circuit rejects calls
var ErrOpen = errors.New("circuit breaker is open")

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Config tunes when a breaker trips and recovers
type Config struct {
	// Name identifies the guarded dependency in state change callbacks
	Name string
	// FailureThreshold consecutive failures open the circuit
	FailureThreshold int
	// SuccessThreshold consecutive half-open successes close it again
	SuccessThreshold int
	// OpenTimeout is how long the circuit stays open before probing
	OpenTimeout time.Duration
}

// CircuitBreaker fails fast while a dependency keeps failing
type CircuitBreaker struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	onChange  func(name string, from, to State)
}

// New creates a closed breaker. Zero thresholds default to 1.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// OnStateChange registers a callback for state transitions. It runs outside the lock.
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onChange = fn
}

// State returns the current state, moving open to half-open once the timeout elapsed
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	from, to := cb.refresh()
	state := cb.state
	fn := cb.onChange
	cb.mu.Unlock()
	cb.notify(fn, from, to)
	return state
}

// Execute runs fn if the circuit allows it and records the outcome
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	from, to := cb.refresh()
	allowed := cb.state != StateOpen
	onChange := cb.onChange
	cb.mu.Unlock()
	cb.notify(onChange, from, to)
	if !allowed {
		return ErrOpen
	}

	err := fn()

	cb.mu.Lock()
	if err != nil {
		from, to = cb.recordFailure()
	} else {
		from, to = cb.recordSuccess()
	}
	onChange = cb.onChange
	cb.mu.Unlock()
	cb.notify(onChange, from, to)
	return err
}

// refresh must be called with mu held
func (cb *CircuitBreaker) refresh() (State, State) {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.OpenTimeout {
		return cb.transition(StateHalfOpen)
	}
	return cb.state, cb.state
}

func (cb *CircuitBreaker) recordFailure() (State, State) {
	switch cb.state {
	case StateHalfOpen:
		return cb.transition(StateOpen)
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			return cb.transition(StateOpen)
		}
	}
	return cb.state, cb.state
}

func (cb *CircuitBreaker) recordSuccess() (State, State) {
	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			return cb.transition(StateClosed)
		}
	case StateClosed:
		cb.failures = 0
	}
	return cb.state, cb.state
}

func (cb *CircuitBreaker) transition(to State) (State, State) {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	return from, to
}

func (cb *CircuitBreaker) notify(fn func(string, State, State), from, to State) {
	if fn != nil && from != to {
		fn(cb.cfg.Name, from, to)
	}
}
