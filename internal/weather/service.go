package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Service ties the reading source to the store for the sampling path and
// answers the read-side questions the status jobs ask.
type Service struct {
	store  Store
	source ReadingSource
	clock  clockwork.Clock
	log    *slog.Logger
}

// NewService creates a new Service.
func NewService(store Store, source ReadingSource, clock clockwork.Clock, log *slog.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		source: source,
		clock:  clock,
		log:    log,
	}
}

// SampleAndStore reads all sensors and appends one SampleRecord.
// A reading that is unavailable skips the tick: it is logged and reported as
// (false, nil). Only a failed append is returned as an error.
func (s *Service) SampleAndStore(ctx context.Context) (bool, error) {
	reading, err := s.source.ReadAll(ctx)
	if err != nil {
		if !errors.Is(err, ErrReadingUnavailable) {
			err = fmt.Errorf("%w: %v", ErrReadingUnavailable, err)
		}
		s.log.Warn("sample skipped", "error", err)
		return false, nil
	}

	if err := s.append(ctx, NewSampleRecord(s.clock.Now(), reading)); err != nil {
		return false, err
	}

	s.log.Debug("sample recorded",
		"primary_temp", reading.PrimaryTemp,
		"humidity", reading.Humidity,
		"secondary_temp", reading.SecondaryTemp,
	)
	return true, nil
}

// RecordTip appends a tip event.
func (s *Service) RecordTip(ctx context.Context, ev TipEvent) error {
	return s.append(ctx, ev)
}

func (s *Service) append(ctx context.Context, rec Record) error {
	return s.store.Append(ctx, rec.Row())
}

// DaySummary aggregates the calendar day containing day, in day's location.
func (s *Service) DaySummary(ctx context.Context, day time.Time) (DaySummary, error) {
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	rows, err := s.store.Range(ctx, from, to)
	if err != nil {
		return DaySummary{}, fmt.Errorf("day summary %s: %w", from.Format("2006-01-02"), err)
	}
	return AggregateRows(from, rows), nil
}

// Latest delegates to the underlying store.
func (s *Service) Latest(ctx context.Context, kind Kind) (Row, error) {
	return s.store.Latest(ctx, kind)
}
