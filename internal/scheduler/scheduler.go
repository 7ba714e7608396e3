package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"

	"github.com/i474232898/rain-station/internal/rain"
	"github.com/i474232898/rain-station/internal/weather"
)

// Summarizer is the read side the status jobs need.
type Summarizer interface {
	DaySummary(ctx context.Context, day time.Time) (weather.DaySummary, error)
	Latest(ctx context.Context, kind weather.Kind) (weather.Row, error)
}

// Scheduler runs the station's periodic status jobs: a heartbeat with the
// tip count and a daily summary just after midnight.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Summarizer
	counter   *rain.TipCounter
	interval  time.Duration
	log       *slog.Logger
	started   time.Time
	clock     clockwork.Clock
}

// New creates a new Scheduler. An interval of zero disables all jobs. Uptime
// and the summarised day are read from clock; nil means the real clock.
func New(interval time.Duration, service Summarizer, counter *rain.TipCounter, log *slog.Logger, clock clockwork.Clock) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.Local),
		service:   service,
		counter:   counter,
		interval:  interval,
		log:       log,
		clock:     clock,
	}
}

// Start schedules the jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info("scheduler: status jobs disabled")
		return nil
	}
	s.started = s.clock.Now()
	s.scheduler.SingletonModeAll()

	if _, err := s.scheduler.Every(s.interval).Do(s.heartbeat); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(1).Day().At("00:00:05").Do(s.dailySummary); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) heartbeat() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	attrs := []any{
		"tips", s.counter.Load(),
		"uptime", s.clock.Now().Sub(s.started).Round(time.Second).String(),
	}
	row, err := s.service.Latest(ctx, weather.KindSample)
	switch {
	case err == nil:
		attrs = append(attrs, "last_sample", row.Timestamp.Format(weather.TimestampLayout))
	case errors.Is(err, weather.ErrNotFound):
		attrs = append(attrs, "last_sample", "none")
	default:
		s.log.Warn("scheduler: latest sample lookup failed", "error", err)
	}
	s.log.Info("station status", attrs...)
}

func (s *Scheduler) dailySummary() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	yesterday := s.clock.Now().AddDate(0, 0, -1)
	sum, err := s.service.DaySummary(ctx, yesterday)
	if err != nil {
		s.log.Error("scheduler: daily summary failed", "error", err)
		return
	}
	s.log.Info("daily summary",
		"day", sum.Day.Format("2006-01-02"),
		"tips", sum.Tips,
		"rain_total", sum.RainTotal,
		"samples", sum.Samples,
		"secondary_temp_min", sum.SecondaryTemp.Min,
		"secondary_temp_max", sum.SecondaryTemp.Max,
		"secondary_temp_avg", sum.SecondaryTemp.Avg,
		"humidity_min", sum.Humidity.Min,
		"humidity_max", sum.Humidity.Max,
		"humidity_avg", sum.Humidity.Avg,
		"primary_temp_avg", sum.PrimaryTemp.Avg,
	)
}
