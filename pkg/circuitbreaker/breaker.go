package circuitbreaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"k8s.io/klog/v2"
)

const (
	// DefaultTimeout is how long the breaker stays open. It outlasts any
	// mapping run, so once open it stays open for the rest of the run.
	DefaultTimeout = 24 * time.Hour
)

// ErrOpen is returned by Execute once the breaker has tripped
var ErrOpen = errors.New("circuit breaker is open")

// FatalBreaker stops a retry loop after a run of consecutive fatal failures.
// Failures the transient func accepts count as successes and reset the run.
//
// A nil *FatalBreaker is valid and never trips.
type FatalBreaker struct {
	cb        *gobreaker.CircuitBreaker
	threshold int
}

// NewFatalBreaker creates a breaker that opens after threshold consecutive
// non-transient failures. A threshold of 0 or less returns nil.
func NewFatalBreaker(name string, threshold int, transient func(error) bool) *FatalBreaker {
	if threshold <= 0 {
		return nil
	}

	limit := uint32(threshold)
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1, // Only 1 request allowed in half-open state
		Timeout:     DefaultTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= limit
		},
		IsSuccessful: func(err error) bool {
			return err == nil || (transient != nil && transient(err))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			klog.Infof("Fatal-failure breaker for %s: %s -> %s", name, from, to)
		},
	}

	klog.V(4).Infof("Created fatal-failure breaker for %s (threshold %d)", name, threshold)
	return &FatalBreaker{
		cb:        gobreaker.NewCircuitBreaker(settings),
		threshold: threshold,
	}
}

// Execute runs fn with breaker protection. fn's own error is returned as is;
// once the breaker is open fn is not called and ErrOpen is returned.
func (b *FatalBreaker) Execute(fn func() error) error {
	if b == nil {
		return fn()
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s failed fatally %d times in a row", ErrOpen, b.cb.Name(), b.threshold)
	}
	return err
}

// Open reports whether the breaker has tripped.
func (b *FatalBreaker) Open() bool {
	if b == nil {
		return false
	}
	return b.cb.State() == gobreaker.StateOpen
}

// State returns the breaker state name.
// Returns "closed" for a nil breaker (default safe state).
func (b *FatalBreaker) State() string {
	if b == nil {
		return "closed"
	}
	return b.cb.State().String()
}
