package weather

import "errors"

var (
	// ErrConfig marks fatal configuration problems detected before start-up.
	ErrConfig = errors.New("invalid configuration")

	// ErrHardwareUnavailable marks a sensor or interrupt resource that cannot be claimed.
	ErrHardwareUnavailable = errors.New("hardware unavailable")

	// ErrReadingUnavailable means the reading source produced nothing this tick.
	ErrReadingUnavailable = errors.New("reading unavailable")

	// ErrWrite marks a failed append; nothing was committed.
	ErrWrite = errors.New("store write failed")

	// ErrNotFound is returned when the store holds no matching record.
	ErrNotFound = errors.New("no matching weather record")
)
