package weather

import (
	"context"
	"time"
)

// ReadingSource abstracts the station's calibrated sensors. A call either
// yields a complete Reading or an error wrapping ErrReadingUnavailable, within
// bounded time.
type ReadingSource interface {
	ReadAll(ctx context.Context) (Reading, error)
}

// Store is the contract the SQLite store (and the in-memory store) must satisfy.
type Store interface {
	Append(ctx context.Context, row Row) error
	Range(ctx context.Context, from, to time.Time) ([]Row, error)
	Latest(ctx context.Context, kind Kind) (Row, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
