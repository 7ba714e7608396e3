// Package config loads the station's settings from an optional .env file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/i474232898/rain-station/internal/common"
	"github.com/i474232898/rain-station/internal/weather"
)

type AppConfig struct {
	// StorePath is the SQLite database file.
	StorePath string `mapstructure:"STORE_PATH" validate:"required"`

	// SampleIntervalMinutes aligns sampling to wall-clock minutes that are
	// multiples of it.
	SampleIntervalMinutes int `mapstructure:"SAMPLE_INTERVAL_MINUTES" validate:"min=1,max=1440"`

	DebounceWindow time.Duration `mapstructure:"DEBOUNCE_WINDOW" validate:"gt=0"`
	BucketVolume   float64       `mapstructure:"BUCKET_VOLUME" validate:"gt=0"`

	// LogFile is rotated by size; empty logs to stdout only.
	LogFile  string `mapstructure:"LOG_FILE"`
	LogLevel string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`

	RainGaugePin  string `mapstructure:"RAIN_GAUGE_PIN" validate:"required"`
	RainGaugePull string `mapstructure:"RAIN_GAUGE_PULL" validate:"oneof=up down float"`

	W1DevicesDir    string `mapstructure:"W1_DEVICES_DIR" validate:"required"`
	HygrometerDir   string `mapstructure:"HYGROMETER_DIR" validate:"required"`
	TemperatureUnit string `mapstructure:"TEMPERATURE_UNIT" validate:"oneof=F C f c"`

	SensorMaxRetries    int           `mapstructure:"SENSOR_MAX_RETRIES" validate:"min=0,max=20"`
	SensorRetryInterval time.Duration `mapstructure:"SENSOR_RETRY_INTERVAL" validate:"gt=0"`

	AppendTimeout time.Duration `mapstructure:"APPEND_TIMEOUT" validate:"gt=0"`

	// StatusInterval is the heartbeat period; zero turns the status jobs off.
	StatusInterval time.Duration `mapstructure:"STATUS_INTERVAL" validate:"min=0"`
}

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("STORE_PATH", "~/rain/weather/weather.db")
	v.SetDefault("SAMPLE_INTERVAL_MINUTES", 10)
	v.SetDefault("DEBOUNCE_WINDOW", "200ms")
	v.SetDefault("BUCKET_VOLUME", 0.0136)
	v.SetDefault("LOG_FILE", "~/rain/weather/rain.log")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RAIN_GAUGE_PIN", "GPIO18")
	v.SetDefault("RAIN_GAUGE_PULL", "float")
	v.SetDefault("W1_DEVICES_DIR", "/sys/bus/w1/devices")
	v.SetDefault("HYGROMETER_DIR", "/sys/bus/iio/devices/iio:device0")
	v.SetDefault("TEMPERATURE_UNIT", "F")
	v.SetDefault("SENSOR_MAX_RETRIES", 5)
	v.SetDefault("SENSOR_RETRY_INTERVAL", "2s")
	v.SetDefault("APPEND_TIMEOUT", "5s")
	v.SetDefault("STATUS_INTERVAL", "60m")
}

// Load reads configuration from the environment with sensible defaults.
// envFiles are loaded first (".env" when none are given); a missing file is
// not an error and variables already set in the environment win.
func Load(envFiles ...string) (*AppConfig, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", weather.ErrConfig, err)
	}

	var err error
	if cfg.StorePath, err = expandHome(cfg.StorePath); err != nil {
		return nil, err
	}
	if cfg.LogFile, err = expandHome(cfg.LogFile); err != nil {
		return nil, err
	}
	cfg.RainGaugePull = strings.ToLower(cfg.RainGaugePull)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s", weather.ErrConfig, describe(err))
	}
	return cfg, nil
}

// Unit returns the configured temperature unit.
func (c *AppConfig) Unit() common.Unit {
	u, err := common.ParseUnit(c.TemperatureUnit)
	if err != nil {
		return common.Fahrenheit
	}
	return u
}

// SlogLevel maps LogLevel to a slog level.
func (c *AppConfig) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: expand %q: %v", weather.ErrConfig, p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// describe names the offending keys rather than the struct fields.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	keys := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		keys = append(keys, fmt.Sprintf("%s fails %q (got %v)", envKey(fe.StructField()), fe.Tag(), fe.Value()))
	}
	return strings.Join(keys, "; ")
}

var envKeys = map[string]string{
	"StorePath":             "STORE_PATH",
	"SampleIntervalMinutes": "SAMPLE_INTERVAL_MINUTES",
	"DebounceWindow":        "DEBOUNCE_WINDOW",
	"BucketVolume":          "BUCKET_VOLUME",
	"LogFile":               "LOG_FILE",
	"LogLevel":              "LOG_LEVEL",
	"RainGaugePin":          "RAIN_GAUGE_PIN",
	"RainGaugePull":         "RAIN_GAUGE_PULL",
	"W1DevicesDir":          "W1_DEVICES_DIR",
	"HygrometerDir":         "HYGROMETER_DIR",
	"TemperatureUnit":       "TEMPERATURE_UNIT",
	"SensorMaxRetries":      "SENSOR_MAX_RETRIES",
	"SensorRetryInterval":   "SENSOR_RETRY_INTERVAL",
	"AppendTimeout":         "APPEND_TIMEOUT",
	"StatusInterval":        "STATUS_INTERVAL",
}

func envKey(field string) string {
	if k, ok := envKeys[field]; ok {
		return k
	}
	return field
}
