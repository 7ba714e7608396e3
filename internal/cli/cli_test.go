package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/rain-station/internal/store"
	"github.com/i474232898/rain-station/internal/weather"
)

func ptr(v float64) *float64 { return &v }

func local(y int, mo time.Month, d, h, m, s int) time.Time {
	return time.Date(y, mo, d, h, m, s, 0, time.Local)
}

// seedDB writes a morning of rows around the 10:10 sample boundary.
func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weather.db")
	db, err := store.Open(path)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	rows := []weather.Row{
		{Timestamp: local(2026, 2, 28, 23, 59, 59), BucketVolume: ptr(0.0136)},
		{Timestamp: local(2026, 3, 1, 10, 3, 20), BucketVolume: ptr(0.0136)},
		{Timestamp: local(2026, 3, 1, 10, 10, 0), PrimaryTemp: ptr(71.6), Humidity: ptr(40), SecondaryTemp: ptr(70.25)},
		{Timestamp: local(2026, 3, 1, 10, 12, 5), BucketVolume: ptr(0.0136)},
		{Timestamp: local(2026, 3, 2, 0, 0, 0), PrimaryTemp: ptr(60), Humidity: ptr(55), SecondaryTemp: ptr(59.5)},
	}
	for _, r := range rows {
		require.NoError(t, db.Append(ctx, r))
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "rain-station", cmd.Use)

	for _, name := range []string{"run", "records", "status"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
	require.NotNil(t, cmd.PersistentFlags().Lookup("env-file"))
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "records", "--format", "yaml", "--db", seedDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitConfig, GetExitCode(err))
}

func TestRecords_Text(t *testing.T) {
	out, err := execute(t, "records", "--db", seedDB(t), "--from", "2026-03-01", "--to", "2026-03-02")
	require.NoError(t, err)
	golden(t).Assert(t, "records_text", []byte(out))
}

func TestRecords_JSON(t *testing.T) {
	out, err := execute(t, "records", "--db", seedDB(t), "--from", "2026-03-01", "--format", "json")
	require.NoError(t, err)
	golden(t).Assert(t, "records_json", []byte(out))
}

func TestRecords_TimeOfDayBounds(t *testing.T) {
	out, err := execute(t, "records", "--db", seedDB(t), "--format", "json",
		"--from", "2026-03-01 10:10:00", "--to", "2026-03-01 10:12:05")
	require.NoError(t, err)

	var views []recordView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "sample", views[0].Kind)
	assert.Equal(t, "2026-03-01 10:10:00", views[0].Timestamp)
}

func TestRecords_MissingDatabase(t *testing.T) {
	_, err := execute(t, "records", "--db", filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.Equal(t, ExitConfig, GetExitCode(err))
}

func TestRecords_BadRange(t *testing.T) {
	db := seedDB(t)
	for _, args := range [][]string{
		{"--from", "yesterday"},
		{"--from", "2026-03-02", "--to", "2026-03-01"},
	} {
		_, err := execute(t, append([]string{"records", "--db", db}, args...)...)
		require.Error(t, err, args)
		assert.Equal(t, ExitConfig, GetExitCode(err), args)
	}
}

func TestParseRange_Defaults(t *testing.T) {
	now := local(2026, 3, 1, 15, 42, 7)

	from, to, err := parseRange("", "", now)
	require.NoError(t, err)
	assert.True(t, from.Equal(local(2026, 3, 1, 0, 0, 0)))
	assert.True(t, to.Equal(local(2026, 3, 2, 0, 0, 0)))

	from, to, err = parseRange("2026-02-27 06:00:00", "", now)
	require.NoError(t, err)
	assert.True(t, from.Equal(local(2026, 2, 27, 6, 0, 0)))
	assert.True(t, to.Equal(local(2026, 2, 28, 6, 0, 0)))
}

func TestStatus_JSON(t *testing.T) {
	cmd := NewStatusCommand(&RootOptions{Format: "json"})
	var out bytes.Buffer
	cmd.SetOut(&out)

	opts := &StatusOptions{RootOptions: &RootOptions{Format: "json"}, Database: seedDB(t)}
	require.NoError(t, runStatus(opts, cmd, local(2026, 3, 1, 18, 0, 0)))

	var view statusView
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	assert.EqualValues(t, 5, view.Records)
	require.NotNil(t, view.LastTip)
	assert.Equal(t, "2026-03-01 10:12:05", view.LastTip.Timestamp)
	require.NotNil(t, view.LastSample)
	assert.Equal(t, "2026-03-02 00:00:00", view.LastSample.Timestamp)
	assert.Equal(t, 2, view.Today.Tips)
	assert.Equal(t, 0.0272, view.Today.RainTotal)
	assert.Equal(t, 1, view.Today.Samples)
}

func TestStatus_TextEmptyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather.db")
	db, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := execute(t, "status", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "records:      0")
	assert.Contains(t, out, "last tip:     none")
	assert.Contains(t, out, "last sample:  none")
}

// The reporting commands must not migrate or reconfigure a database that a
// station, possibly an older build, still owns.
func TestReadCommands_DoNotWriteDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather.db")
	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE weather_events (
		timestamp TEXT NOT NULL, bucket_volume REAL, primary_temp REAL, humidity REAL, secondary_temp REAL)`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO weather_events (timestamp, bucket_volume) VALUES ('2026-03-01 10:03:20', 0.0136)`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	out, err := execute(t, "records", "--db", path, "--from", "2026-03-01", "--to", "2026-03-02")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-03-01 10:03:20")

	_, err = execute(t, "status", "--db", path)
	require.NoError(t, err)

	raw, err = sql.Open("sqlite", path)
	require.NoError(t, err)
	defer raw.Close()

	var version, indexes int
	var mode string
	require.NoError(t, raw.QueryRow("PRAGMA user_version").Scan(&version))
	require.NoError(t, raw.QueryRow("PRAGMA journal_mode").Scan(&mode))
	require.NoError(t, raw.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index'`).Scan(&indexes))
	assert.Zero(t, version)
	assert.Equal(t, "delete", mode)
	assert.Zero(t, indexes)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitFailure},
		{WrapExitError("load", fmt.Errorf("%w: bad interval", weather.ErrConfig)), ExitConfig},
		{WrapExitError("open", fmt.Errorf("%w: GPIO18", weather.ErrHardwareUnavailable)), ExitHardware},
		{WrapExitError("run", fmt.Errorf("%w: disk full", weather.ErrWrite)), ExitFailure},
		{fmt.Errorf("outer: %w", NewExitError(ExitHardware, "gauge")), ExitHardware},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetExitCode(tt.err), "%v", tt.err)
	}
}

func TestExitError_Message(t *testing.T) {
	err := WrapExitError("failed to load config", weather.ErrConfig)
	assert.Equal(t, "failed to load config: invalid configuration", err.Error())
	assert.ErrorIs(t, err, weather.ErrConfig)
	assert.Equal(t, "plain", NewExitError(ExitFailure, "plain").Error())
}

func TestRun_StartupFailuresMapToExitCodes(t *testing.T) {
	missingEnv := filepath.Join(t.TempDir(), "missing.env")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOG_FILE", "")
	t.Setenv("STORE_PATH", filepath.Join(t.TempDir(), "weather.db"))

	t.Run("config", func(t *testing.T) {
		t.Setenv("SAMPLE_INTERVAL_MINUTES", "0")
		_, err := execute(t, "run", "--dry-run", "--env-file", missingEnv)
		require.Error(t, err)
		assert.Equal(t, ExitConfig, GetExitCode(err))
	})

	t.Run("hardware", func(t *testing.T) {
		t.Setenv("SAMPLE_INTERVAL_MINUTES", "10")
		t.Setenv("RAIN_GAUGE_PIN", "NO_SUCH_PIN")
		_, err := execute(t, "run", "--dry-run", "--env-file", missingEnv)
		require.Error(t, err)
		assert.Equal(t, ExitHardware, GetExitCode(err))
	})
}
