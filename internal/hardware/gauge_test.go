package hardware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/i474232898/rain-station/internal/weather"
)

func TestParsePull(t *testing.T) {
	for in, want := range map[string]gpio.Pull{"": gpio.Float, "float": gpio.Float, "UP": gpio.PullUp, " down ": gpio.PullDown} {
		got, err := ParsePull(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePull("sideways")
	assert.ErrorIs(t, err, weather.ErrConfig)
}

func TestGPIOGauge_Edges(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO18", Num: 18, EdgesChan: make(chan gpio.Level, 1)}
	g, err := newGauge(pin, gpio.Float)
	require.NoError(t, err)
	assert.Equal(t, "GPIO18", g.Name())

	assert.False(t, g.WaitForEdge(10*time.Millisecond))

	pin.EdgesChan <- gpio.Low
	assert.True(t, g.WaitForEdge(time.Second))

	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
}

func TestOpenGPIO_BadPull(t *testing.T) {
	_, err := OpenGPIO("GPIO18", "sideways")
	assert.ErrorIs(t, err, weather.ErrConfig)
}
