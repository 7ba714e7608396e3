package sensors

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/rain-station/internal/weather"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff mirrors the retrying read the humidity sensor needs: it
// answers roughly every other attempt and wants a couple of seconds between.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      5,
	InitialInterval: 2 * time.Second,
	MaxInterval:     8 * time.Second,
}

var (
	errCircuitOpen   = errors.New("circuit breaker open")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// readWithResilience runs read with retries and exponential backoff behind a
// circuit breaker. An open breaker fails immediately.
func readWithResilience[T any](
	ctx context.Context,
	cfg BackoffConfig,
	cb *gobreaker.CircuitBreaker,
	read func(context.Context) (T, error),
) (T, error) {
	var zero T
	if cfg.MaxRetries < 0 || cfg.InitialInterval <= 0 {
		return zero, errInvalidConfig
	}

	var attempt int
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := cb.Execute(func() (interface{}, error) {
			v, readErr := read(ctx)
			return v, readErr
		})
		if err == nil {
			v, ok := result.(T)
			if !ok {
				return zero, fmt.Errorf("unexpected result type %T from circuit breaker", result)
			}
			return v, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %s: %v", errCircuitOpen, cb.Name(), err)
		}

		if attempt >= cfg.MaxRetries {
			return zero, err
		}

		delay := cfg.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.MaxInterval && cfg.MaxInterval > 0 {
			delay = cfg.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

func unavailable(sensor string, err error) error {
	return fmt.Errorf("%w: %s: %v", weather.ErrReadingUnavailable, sensor, err)
}
