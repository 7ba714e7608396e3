// Package rain turns the tipping-bucket gauge's raw edges into tip events.
package rain

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/i474232898/rain-station/internal/weather"
)

const (
	// DefaultWindow is the minimum spacing between two distinct tips.
	DefaultWindow = 200 * time.Millisecond

	// DefaultBucketVolume is inches of rain per tip
	// (calibrated: 32 oz poured over 20 minutes gave 254 tips).
	DefaultBucketVolume = 0.0136
)

// TipCounter counts accepted tips since start-up. It is shared between the
// capture path and status reporting and is never persisted.
type TipCounter struct {
	n atomic.Int64
}

// Inc records one accepted tip and returns the new count.
func (c *TipCounter) Inc() int64 { return c.n.Inc() }

// Rollback undoes one Inc whose tip could not be committed.
func (c *TipCounter) Rollback() { c.n.Dec() }

// Load returns the current count.
func (c *TipCounter) Load() int64 { return c.n.Load() }

// Debouncer filters raw edges into tips. OnEdge never blocks beyond a short
// uncontended mutex and does not allocate.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	volume   float64
	counter  *TipCounter
	last     time.Time
	accepted bool
}

// NewDebouncer creates a Debouncer. A nil counter gets a private one.
func NewDebouncer(window time.Duration, volume float64, counter *TipCounter) *Debouncer {
	if counter == nil {
		counter = &TipCounter{}
	}
	return &Debouncer{
		window:  window,
		volume:  volume,
		counter: counter,
	}
}

// OnEdge reports whether an edge seen at now is a new tip. An edge closer than
// the window to the last accepted one, or earlier than it, is bounce.
func (d *Debouncer) OnEdge(now time.Time) (weather.TipEvent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.accepted && now.Sub(d.last) < d.window {
		return weather.TipEvent{}, false
	}
	d.last = now
	d.accepted = true
	d.counter.Inc()
	return weather.TipEvent{Timestamp: now, Volume: d.volume}, true
}

// Counter returns the counter the debouncer increments.
func (d *Debouncer) Counter() *TipCounter { return d.counter }
