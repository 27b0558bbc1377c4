package breaker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

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
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when the breaker rejects a call without attempting it.
var ErrOpen = errors.New("circuit breaker is open")

// Breaker is a failure-count circuit breaker. It opens after MaxFailures
// consecutive failures, rejects calls while open, and allows a single
// probe call after Cooldown has elapsed.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	logger      *zap.Logger

	mu           sync.Mutex
	state        State
	failures     int
	lastFailTime time.Time
}

func New(name string, maxFailures int, cooldown time.Duration, logger *zap.Logger) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		logger:      logger,
		state:       StateClosed,
	}
}

// Execute runs fn if the breaker allows it, recording the outcome.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if b.state == StateOpen {
		if time.Since(b.lastFailTime) > b.cooldown {
			b.setState(StateHalfOpen)
		} else {
			b.mu.Unlock()
			return ErrOpen
		}
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailTime = time.Now()
		if b.state == StateHalfOpen || b.failures >= b.maxFailures {
			b.setState(StateOpen)
		}
		return err
	}

	b.failures = 0
	if b.state == StateHalfOpen {
		b.setState(StateClosed)
	}
	return nil
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) setState(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.logger.Info("circuit breaker state changed",
		zap.String("breaker", b.name),
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
	)
}
