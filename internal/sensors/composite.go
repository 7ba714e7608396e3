package sensors

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/i474232898/rain-station/internal/common"
	"github.com/i474232898/rain-station/internal/weather"
)

// Thermometer yields one temperature in Celsius per call.
type Thermometer interface {
	Celsius(ctx context.Context) (float64, error)
}

// Hygrometer yields one temperature/humidity pair per call.
type Hygrometer interface {
	Climate(ctx context.Context) (Climate, error)
}

// Composite is the station's ReadingSource: the hygrometer supplies the
// primary temperature and humidity, the one-wire sensor the secondary temperature.
type Composite struct {
	hygro    Hygrometer
	thermo   Thermometer
	unit     common.Unit
	backoff  BackoffConfig
	hygroCB  *gobreaker.CircuitBreaker
	thermoCB *gobreaker.CircuitBreaker
}

// NewComposite builds a ReadingSource over the two sensors. A zero backoff
// uses DefaultBackoff.
func NewComposite(h Hygrometer, t Thermometer, unit common.Unit, backoff BackoffConfig) *Composite {
	if unit == "" {
		unit = common.Fahrenheit
	}
	if backoff == (BackoffConfig{}) {
		backoff = DefaultBackoff
	}
	return &Composite{
		hygro:    h,
		thermo:   t,
		unit:     unit,
		backoff:  backoff,
		hygroCB:  newBreaker("hygrometer"),
		thermoCB: newBreaker("thermometer"),
	}
}

// ReadAll returns a complete reading or an error wrapping
// weather.ErrReadingUnavailable. Partial readings are never returned.
func (c *Composite) ReadAll(ctx context.Context) (weather.Reading, error) {
	secondary, err := readWithResilience(ctx, c.backoff, c.thermoCB, c.thermo.Celsius)
	if err != nil {
		return weather.Reading{}, unavailable("thermometer", err)
	}
	climate, err := readWithResilience(ctx, c.backoff, c.hygroCB, c.hygro.Climate)
	if err != nil {
		return weather.Reading{}, unavailable("hygrometer", err)
	}

	return weather.Reading{
		PrimaryTemp:   common.FromCelsius(climate.Celsius, c.unit),
		Humidity:      common.Round(climate.Humidity, 2),
		SecondaryTemp: common.FromCelsius(secondary, c.unit),
	}, nil
}
