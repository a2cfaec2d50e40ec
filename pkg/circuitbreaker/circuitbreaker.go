package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"
)

// Settings configures a breaker guarding one external dependency.
type Settings struct {
	Name string
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// Interval clears the failure counts while closed. Zero keeps them until a success.
	Interval time.Duration
	// Timeout is how long the breaker stays open before letting a trial request through.
	Timeout time.Duration
	// OnStateChange is optional.
	OnStateChange func(name string, from, to gobreaker.State)
}

// CircuitBreaker is a thin wrapper so callers don't depend on gobreaker's generic signature.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewCircuitBreaker(settings Settings) *CircuitBreaker {
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	return &CircuitBreaker{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     settings.Name,
			Interval: settings.Interval,
			Timeout:  settings.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: settings.OnStateChange,
		}),
	}
}

// Execute runs fn unless the breaker is open, in which case gobreaker.ErrOpenState is returned.
func (c *CircuitBreaker) Execute(fn func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// State reports the current breaker state.
func (c *CircuitBreaker) State() gobreaker.State {
	return c.cb.State()
}
