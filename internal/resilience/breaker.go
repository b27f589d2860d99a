package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// BreakerState is the circuit state.
type BreakerState int

const (
	// StateClosed lets requests through.
	StateClosed BreakerState = iota
	// StateOpen rejects requests immediately.
	StateOpen
	// StateHalfOpen lets a probe request test recovery.
	StateHalfOpen
)

func (s BreakerState) String() string {
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

// ErrBreakerOpen is returned when a call is rejected while the circuit is open.
var ErrBreakerOpen = eris.New("circuit breaker is open")

// BreakerConfig controls a Breaker.
type BreakerConfig struct {
	// FailureThreshold opens the circuit after this many consecutive
	// failures. Default: 5.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30s.
	ResetTimeout time.Duration

	// OnStateChange runs on each transition.
	OnStateChange func(from, to BreakerState)
}

// Breaker guards a single downstream service. A dedicated instance wraps the
// OCR service client so a dead enhancer degrades searches instead of
// stalling them.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewBreaker creates a Breaker with defaults applied.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Breaker{cfg: cfg, state: StateClosed, now: time.Now}
}

// Execute runs fn through the breaker, returning ErrBreakerOpen while the
// circuit is open.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// ExecuteVal is Execute for functions returning a value.
func ExecuteVal[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

// State returns the current state, accounting for reset-timeout expiry.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the circuit closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
	b.failures = 0
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			return ErrBreakerOpen
		}
		b.transition(StateHalfOpen)
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state == StateHalfOpen {
			b.transition(StateClosed)
		}
		b.failures = 0
		return
	}

	b.failures++
	b.openedAt = b.now()
	if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.transition(StateOpen)
	}
}

func (b *Breaker) transition(to BreakerState) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
