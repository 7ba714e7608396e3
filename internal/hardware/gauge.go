// Package hardware claims the rain gauge's interrupt pin.
package hardware

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/i474232898/rain-station/internal/weather"
)

// EdgeDetector delivers the gauge's falling edges.
type EdgeDetector interface {
	// WaitForEdge blocks until an edge or the timeout; it reports whether an
	// edge occurred. After Close it returns false promptly.
	WaitForEdge(timeout time.Duration) bool
	Close() error
}

// ParsePull maps a config value to a periph pull setting.
func ParsePull(s string) (gpio.Pull, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "float":
		return gpio.Float, nil
	case "up":
		return gpio.PullUp, nil
	case "down":
		return gpio.PullDown, nil
	}
	return gpio.PullNoChange, fmt.Errorf("%w: unknown pull %q", weather.ErrConfig, s)
}

// GPIOGauge is a reed-switch gauge on a GPIO pin, edge-triggered on the
// falling edge.
type GPIOGauge struct {
	pin      gpio.PinIO
	once     sync.Once
	closeErr error
}

// OpenGPIO initialises the host drivers and claims the named pin.
// Any failure is reported as weather.ErrHardwareUnavailable.
func OpenGPIO(name, pull string) (*GPIOGauge, error) {
	p, err := ParsePull(pull)
	if err != nil {
		return nil, err
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: gpio host init: %v", weather.ErrHardwareUnavailable, err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: no gpio pin named %q", weather.ErrHardwareUnavailable, name)
	}
	return newGauge(pin, p)
}

func newGauge(pin gpio.PinIO, pull gpio.Pull) (*GPIOGauge, error) {
	if err := pin.In(pull, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("%w: configure %s: %v", weather.ErrHardwareUnavailable, pin.Name(), err)
	}
	return &GPIOGauge{pin: pin}, nil
}

// WaitForEdge implements EdgeDetector.
func (g *GPIOGauge) WaitForEdge(timeout time.Duration) bool {
	return g.pin.WaitForEdge(timeout)
}

// Close stops edge detection and releases the pin. Only the first call
// touches the hardware.
func (g *GPIOGauge) Close() error {
	g.once.Do(func() {
		g.closeErr = g.pin.Halt()
	})
	return g.closeErr
}

// Name returns the pin name.
func (g *GPIOGauge) Name() string { return g.pin.Name() }
