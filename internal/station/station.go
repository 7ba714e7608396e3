// Package station supervises the two acquisition paths: tip capture and
// interval sampling. Both write to the same store and run until the context
// passed to Run is cancelled.
package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/atomic"

	"github.com/i474232898/rain-station/internal/hardware"
	"github.com/i474232898/rain-station/internal/rain"
	"github.com/i474232898/rain-station/internal/scheduler"
	"github.com/i474232898/rain-station/internal/weather"
)

// State is the supervisor's lifecycle stage.
type State int32

const (
	StateInitializing State = iota
	StateRunning
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

const (
	defaultAppendTimeout = 5 * time.Second
	defaultEdgePoll      = time.Second
)

// Options tune the supervisor. Zero values take the defaults, except
// IntervalMinutes, which must be set.
type Options struct {
	IntervalMinutes int
	DebounceWindow  time.Duration
	BucketVolume    float64
	AppendTimeout   time.Duration
	// EdgePoll bounds each wait on the gauge so shutdown is noticed.
	EdgePoll time.Duration
	// BoundaryPoll is the sampling loop's clock re-check period (max 1s).
	BoundaryPoll time.Duration
	// StatusInterval is the heartbeat period; zero disables the status jobs.
	StatusInterval time.Duration
}

// Deps are the resources the supervisor drives. It takes ownership of Store
// and Gauge and releases them in Close.
type Deps struct {
	Log    *slog.Logger
	Clock  clockwork.Clock
	Store  weather.Store
	Gauge  hardware.EdgeDetector
	Source weather.ReadingSource
}

// Station is the acquisition supervisor.
type Station struct {
	opts      Options
	log       *slog.Logger
	clock     clockwork.Clock
	store     weather.Store
	gauge     hardware.EdgeDetector
	service   *weather.Service
	debouncer *rain.Debouncer
	boundary  *scheduler.Boundary
	status    *scheduler.Scheduler
	runID     string

	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error
}

// New validates the options and wires the supervisor. Nothing is started.
func New(opts Options, deps Deps) (*Station, error) {
	if err := scheduler.ValidateInterval(opts.IntervalMinutes); err != nil {
		return nil, err
	}
	if deps.Store == nil || deps.Gauge == nil || deps.Source == nil {
		return nil, fmt.Errorf("%w: station needs a store, a rain gauge and a reading source", weather.ErrConfig)
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = rain.DefaultWindow
	}
	if opts.BucketVolume <= 0 {
		opts.BucketVolume = rain.DefaultBucketVolume
	}
	if opts.AppendTimeout <= 0 {
		opts.AppendTimeout = defaultAppendTimeout
	}
	if opts.EdgePoll <= 0 {
		opts.EdgePoll = defaultEdgePoll
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	runID := uuid.NewString()
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("run_id", runID)

	counter := &rain.TipCounter{}
	service := weather.NewService(deps.Store, deps.Source, deps.Clock, log)

	return &Station{
		opts:      opts,
		log:       log,
		clock:     deps.Clock,
		store:     deps.Store,
		gauge:     deps.Gauge,
		service:   service,
		debouncer: rain.NewDebouncer(opts.DebounceWindow, opts.BucketVolume, counter),
		boundary:  scheduler.NewBoundary(deps.Clock, opts.BoundaryPoll),
		status:    scheduler.New(opts.StatusInterval, service, counter, log, deps.Clock),
		runID:     runID,
	}, nil
}

// Run starts tip capture in the background and samples on the calling
// goroutine until ctx is cancelled. Resources are released before it returns;
// a failure to release them is logged and returned. Cancellation is otherwise
// a clean exit and yields nil.
func (s *Station) Run(ctx context.Context) (err error) {
	if !s.state.CAS(int32(StateInitializing), int32(StateRunning)) {
		return fmt.Errorf("station: cannot run from state %s", s.State())
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			s.log.Error("failed to release resources", "error", cerr)
			err = errors.Join(err, cerr)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.log.Info("station started",
		"interval_minutes", s.opts.IntervalMinutes,
		"debounce_window", s.opts.DebounceWindow.String(),
		"bucket_volume", s.opts.BucketVolume,
	)

	if err := s.status.Start(); err != nil {
		return fmt.Errorf("start status jobs: %w", err)
	}

	go s.capture(runCtx)

	err = s.sample(runCtx)
	s.state.Store(int32(StateShuttingDown))
	s.log.Info("exiting gracefully", "tips", s.debouncer.Counter().Load())

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// sample is the interval loop. Write failures are logged and the loop goes
// on to the next boundary.
func (s *Station) sample(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		at, err := s.boundary.Wait(ctx, s.opts.IntervalMinutes)
		if err != nil {
			return err
		}
		if _, err := s.service.SampleAndStore(ctx); err != nil {
			s.log.Error("sample not stored", "boundary", at.Format(weather.TimestampLayout), "error", err)
		}
	}
}

// capture turns gauge edges into stored tips until ctx is done.
func (s *Station) capture(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if !s.gauge.WaitForEdge(s.opts.EdgePoll) {
			continue
		}
		s.handleEdge(ctx, s.clock.Now())
	}
}

func (s *Station) handleEdge(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("tip capture panicked", "panic", r)
		}
	}()

	ev, ok := s.debouncer.OnEdge(now)
	if !ok {
		return
	}

	// An accepted tip is committed even if shutdown starts meanwhile.
	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.AppendTimeout)
	defer cancel()

	counter := s.debouncer.Counter()
	if err := s.service.RecordTip(appendCtx, ev); err != nil {
		counter.Rollback()
		s.log.Error("tip not stored", "timestamp", ev.Timestamp.Format(weather.TimestampLayout), "error", err)
		return
	}
	s.log.Info("bucket tipped", "count", counter.Load())
}

// Close stops the status jobs and releases the gauge and the store. Only the
// first call has any effect; later calls return the first result.
func (s *Station) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateShuttingDown))
		s.status.Stop()

		var errs []error
		if err := s.gauge.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rain gauge: %w", err))
		}
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		s.closeErr = errors.Join(errs...)
		s.state.Store(int32(StateStopped))
	})
	return s.closeErr
}

// State reports the current lifecycle stage.
func (s *Station) State() State { return State(s.state.Load()) }

// Counter is the live tip count since start-up.
func (s *Station) Counter() *rain.TipCounter { return s.debouncer.Counter() }

// RunID identifies this run in the logs.
func (s *Station) RunID() string { return s.runID }
