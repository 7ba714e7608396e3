package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/rain-station/internal/weather"
)

// createTestStore opens a fresh SQLite store in a temp dir.
func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weather.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)

func tipAt(offset time.Duration) weather.TipEvent {
	return weather.TipEvent{Timestamp: base.Add(offset), Volume: 0.0136}
}

func sampleAt(offset time.Duration, primary, hum, secondary float64) weather.SampleRecord {
	return weather.NewSampleRecord(base.Add(offset), weather.Reading{
		PrimaryTemp:   primary,
		Humidity:      hum,
		SecondaryTemp: secondary,
	})
}
