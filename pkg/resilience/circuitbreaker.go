package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
)

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = errors.Unavailable("circuit breaker is open", nil)

// CircuitBreaker implements the three-state circuit breaker pattern
// (closed/open/half-open) around an Executor.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int64
	successes     int64
	lastFailure   time.Time
	halfOpenCount int64
}

// NewCircuitBreaker creates a circuit breaker with the given configuration,
// filling in defaults for any zero-valued fields.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// Execute runs fn with circuit breaker protection, fast-failing with
// ErrCircuitOpen when the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn Executor) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.after(err == nil)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.lastFailure) > cb.cfg.Timeout {
			cb.setState(StateHalfOpen)
			cb.halfOpenCount = 1
			return nil
		}
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.cfg.SuccessThreshold {
			return ErrCircuitOpen
		}
		cb.halfOpenCount++
		return nil
	}
	return nil
}

func (cb *CircuitBreaker) after(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		if success {
			cb.failures = 0
		} else {
			cb.failures++
			cb.lastFailure = time.Now()
			if cb.failures >= cb.cfg.FailureThreshold {
				cb.setState(StateOpen)
			}
		}
	case StateHalfOpen:
		if success {
			cb.successes++
			if cb.successes >= cb.cfg.SuccessThreshold {
				cb.setState(StateClosed)
			}
		} else {
			cb.setState(StateOpen)
		}
	}
}

func (cb *CircuitBreaker) setState(s State) {
	if cb.state == s {
		return
	}
	from := cb.state
	cb.state = s
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenCount = 0
	if s == StateOpen {
		cb.lastFailure = time.Now()
	}
	if cb.cfg.OnStateChange != nil {
		go cb.cfg.OnStateChange(cb.cfg.Name, from, s)
	}
}

// CurrentState returns the circuit breaker's current state.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// State is an alias for CurrentState, matching the accessor name callers in
// pkg/client/rest expect.
func (cb *CircuitBreaker) State() State {
	return cb.CurrentState()
}
