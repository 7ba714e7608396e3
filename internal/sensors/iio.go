package sensors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/i474232898/rain-station/internal/weather"
)

// DefaultHygrometerDir is the IIO device the dht11 kernel driver registers.
const DefaultHygrometerDir = "/sys/bus/iio/devices/iio:device0"

// Climate is one temperature/humidity pair from the hygrometer.
type Climate struct {
	Celsius  float64
	Humidity float64
}

// IIOHygrometer reads a DHT-family humidity sensor through the kernel's IIO
// interface. The driver does the single-wire timing; a read that misses the
// sensor's response surfaces as an I/O error and is simply retried.
type IIOHygrometer struct {
	dir      string
	readFile func(string) ([]byte, error)
}

// OpenIIOHygrometer checks that dir exposes the expected channels.
func OpenIIOHygrometer(dir string) (*IIOHygrometer, error) {
	if dir == "" {
		dir = DefaultHygrometerDir
	}
	for _, ch := range []string{"in_temp_input", "in_humidityrelative_input"} {
		if _, err := os.Stat(filepath.Join(dir, ch)); err != nil {
			return nil, fmt.Errorf("%w: hygrometer channel %s: %v", weather.ErrHardwareUnavailable, ch, err)
		}
	}
	return &IIOHygrometer{dir: dir, readFile: os.ReadFile}, nil
}

// Climate performs one read of both channels.
func (h *IIOHygrometer) Climate(context.Context) (Climate, error) {
	temp, err := h.readMilli("in_temp_input")
	if err != nil {
		return Climate{}, err
	}
	hum, err := h.readMilli("in_humidityrelative_input")
	if err != nil {
		return Climate{}, err
	}
	return Climate{Celsius: temp, Humidity: hum}, nil
}

func (h *IIOHygrometer) readMilli(channel string) (float64, error) {
	data, err := h.readFile(filepath.Join(h.dir, channel))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", channel, err)
	}
	return float64(v) / 1000.0, nil
}
