package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/rain-station/internal/weather"
)

const (
	minutesPerDay = 24 * 60

	// DefaultPoll is the longest the boundary wait sleeps between clock checks.
	DefaultPoll = time.Second
)

// ValidateInterval checks a sampling interval in minutes.
func ValidateInterval(interval int) error {
	if interval <= 0 || interval > minutesPerDay {
		return fmt.Errorf("%w: interval must be between 1 and %d minutes, got %d",
			weather.ErrConfig, minutesPerDay, interval)
	}
	return nil
}

// NextBoundary returns the first instant after now's minute that lies a
// whole multiple of interval minutes past local midnight. Past the last such
// minute of the day the boundary is the next midnight. Minutes are counted as
// elapsed time, so a day with a repeated or skipped hour still yields strictly
// increasing boundaries. For intervals dividing 60 on ordinary days this is
// the familiar "minute % interval == 0" rule.
func NextBoundary(now time.Time, interval int) (time.Time, error) {
	if err := ValidateInterval(interval); err != nil {
		return time.Time{}, err
	}

	loc := now.Location()
	y, mo, d := now.Date()
	midnight := time.Date(y, mo, d, 0, 0, 0, 0, loc)
	nextMidnight := time.Date(y, mo, d+1, 0, 0, 0, 0, loc)
	dayMinutes := int(nextMidnight.Sub(midnight) / time.Minute)

	m := int(now.Sub(midnight) / time.Minute)
	next := (m/interval + 1) * interval
	if next >= dayMinutes {
		return nextMidnight, nil
	}
	return midnight.Add(time.Duration(next) * time.Minute), nil
}

// Boundary waits for interval-aligned wall-clock minutes.
type Boundary struct {
	clock clockwork.Clock
	poll  time.Duration
}

// NewBoundary creates a Boundary. Poll values outside (0, 1s] use DefaultPoll.
func NewBoundary(clock clockwork.Clock, poll time.Duration) *Boundary {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if poll <= 0 || poll > DefaultPoll {
		poll = DefaultPoll
	}
	return &Boundary{clock: clock, poll: poll}
}

// Wait blocks until the next boundary after the current minute and returns it.
// Sitting on a boundary minute does not count: the wait always moves on to the
// following one, so back-to-back calls never return the same boundary.
func (b *Boundary) Wait(ctx context.Context, interval int) (time.Time, error) {
	start := b.clock.Now()
	target, err := NextBoundary(start, interval)
	if err != nil {
		return time.Time{}, err
	}
	// A target at or before the start would fire at once and repeat.
	if !target.After(start) {
		target = start.Truncate(time.Minute).Add(time.Minute)
	}

	for {
		remaining := target.Sub(b.clock.Now())
		if remaining <= 0 {
			return target, nil
		}
		if remaining > b.poll {
			remaining = b.poll
		}

		select {
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		case <-b.clock.After(remaining):
		}
	}
}
