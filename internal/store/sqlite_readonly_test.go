package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/rain-station/internal/weather"
)

// seedLegacyDB writes a v0 database: the table only, no index, default
// journal mode, one tip row.
func seedLegacyDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weather.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	_, err = db.Exec(insertRow, base.Format(weather.TimestampLayout), 0.0136, nil, nil, nil)
	require.NoError(t, err)
	return path
}

func inspect(t *testing.T, path string) (version int, mode string, indexes int) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = 'weather_events'`,
	).Scan(&indexes))
	return version, mode, indexes
}

func TestOpenReadOnly_LeavesDatabaseUntouched(t *testing.T) {
	path := seedLegacyDB(t)
	ctx := context.Background()

	s, err := OpenReadOnly(path)
	require.NoError(t, err)

	rows, err := s.Range(ctx, base, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, weather.KindTip, rows[0].Kind())

	err = s.AppendTip(ctx, tipAt(time.Second))
	assert.ErrorIs(t, err, weather.ErrWrite)
	require.NoError(t, s.Close())

	version, mode, indexes := inspect(t, path)
	assert.Zero(t, version, "no migration")
	assert.Equal(t, "delete", mode, "journal mode unchanged")
	assert.Zero(t, indexes, "no index created")
}

func TestOpenReadOnly_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")

	_, err := OpenReadOnly(path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "the file is not created")
}

func TestOpenReadOnly_EmptyPath(t *testing.T) {
	_, err := OpenReadOnly("")
	assert.ErrorIs(t, err, weather.ErrConfig)
}

// Across the fall-back hour the wall-clock text repeats, so 01:10 EST sorts
// before 01:50 EDT lexically although it happened later.
func TestReads_FollowAppendOrderAcrossFallBack(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	s := createTestStore(t)
	s.loc = ny
	ctx := context.Background()

	first := time.Date(2026, 11, 1, 5, 50, 0, 0, time.UTC)  // 01:50 EDT
	second := time.Date(2026, 11, 1, 6, 10, 0, 0, time.UTC) // 01:10 EST
	require.NoError(t, s.AppendTip(ctx, weather.TipEvent{Timestamp: first, Volume: 1}))
	require.NoError(t, s.AppendTip(ctx, weather.TipEvent{Timestamp: second, Volume: 2}))

	from := time.Date(2026, 11, 1, 0, 0, 0, 0, ny)
	rows, err := s.Range(ctx, from, from.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1.0, *rows[0].BucketVolume)
	assert.Equal(t, 2.0, *rows[1].BucketVolume)

	latest, err := s.Latest(ctx, weather.KindTip)
	require.NoError(t, err)
	assert.Equal(t, 2.0, *latest.BucketVolume)
}
