// Package breaker builds circuit breakers for upstream clients with
// logging and metrics wired in.
package breaker

import (
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/cinemood/cinemood-server/internal/metrics"
)

// ErrOpen is returned, wrapped, when a call is rejected by an open breaker.
var ErrOpen = errors.New("circuit breaker open")

// Config tunes a breaker. Zero values take the defaults below.
type Config struct {
	Name             string
	FailureThreshold uint32        // Consecutive failures before opening. Default 5.
	OpenTimeout      time.Duration // Time spent open before a trial call. Default 30s.
	Interval         time.Duration // Closed-state count reset period. Default 60s.
	HalfOpenRequests uint32        // Trial calls allowed while half-open. Default 1.

	// IsSuccessful classifies errors that should not count as failures,
	// such as a 404 from a healthy upstream.
	IsSuccessful func(err error) bool
}

// Breaker is a typed circuit breaker.
type Breaker[T any] struct {
	cb     *gobreaker.CircuitBreaker[T]
	name   string
	logger *slog.Logger
}

// New creates a breaker.
func New[T any](cfg Config, logger *slog.Logger) *Breaker[T] {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: cfg.IsSuccessful,
	}

	return &Breaker[T]{
		cb:     gobreaker.NewCircuitBreaker[T](settings),
		name:   cfg.Name,
		logger: logger,
	}
}

// Execute runs fn through the breaker. Rejections wrap ErrOpen.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	result, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRejections.WithLabelValues(b.name).Inc()
		var zero T
		return zero, errors.Join(ErrOpen, err)
	}
	return result, err
}

// State returns the current state name: "closed", "half-open" or "open".
func (b *Breaker[T]) State() string {
	return b.cb.State().String()
}

// Name returns the breaker name.
func (b *Breaker[T]) Name() string {
	return b.name
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
