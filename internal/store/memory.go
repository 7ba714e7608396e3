package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/rain-station/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	rows   []weather.Row
	nextID int64

	// retention configuration
	maxHistory int           // max number of rows kept (0 = unlimited)
	maxAge     time.Duration // rows older than the newest row by more than this are dropped
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Append validates the row, assigns it an ID and enforces retention.
func (s *MemoryStore) Append(ctx context.Context, row weather.Row) error {
	if err := row.Validate(); err != nil {
		return fmt.Errorf("%w: %v", weather.ErrWrite, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", weather.ErrWrite, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	row.ID = s.nextID
	row.Timestamp = row.Timestamp.Truncate(time.Second)
	s.rows = append(s.rows, row)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.rows) > s.maxHistory {
		over := len(s.rows) - s.maxHistory
		s.rows = s.rows[over:]
	}

	// Enforce retention by age, relative to the row just written.
	if s.maxAge > 0 {
		cutoff := row.Timestamp.Add(-s.maxAge)
		i := 0
		for ; i < len(s.rows); i++ {
			if !s.rows[i].Timestamp.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.rows = s.rows[i:]
		}
	}
	return nil
}

// Range returns rows with from <= timestamp < to, ordered by timestamp then ID.
func (s *MemoryStore) Range(_ context.Context, from, to time.Time) ([]weather.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.Row
	for _, r := range s.rows {
		if !r.Timestamp.Before(from) && r.Timestamp.Before(to) {
			result = append(result, r)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// Latest returns the most recent row of the given kind.
func (s *MemoryStore) Latest(_ context.Context, kind weather.Kind) (weather.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest weather.Row
		found  bool
	)
	for _, r := range s.rows {
		if r.Kind() != kind {
			continue
		}
		if !found || !r.Timestamp.Before(latest.Timestamp) {
			latest, found = r, true
		}
	}
	if !found {
		return weather.Row{}, weather.ErrNotFound
	}
	return latest, nil
}

// Count returns the number of retained rows.
func (s *MemoryStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.rows)), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
