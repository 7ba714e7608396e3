package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/rain-station/internal/config"
	"github.com/i474232898/rain-station/internal/hardware"
	"github.com/i474232898/rain-station/internal/logging"
	"github.com/i474232898/rain-station/internal/sensors"
	"github.com/i474232898/rain-station/internal/station"
	"github.com/i474232898/rain-station/internal/store"
	"github.com/i474232898/rain-station/internal/weather"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	DryRun bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start acquisition",
		Long: `Claim the rain gauge and sensors, then record tips and samples until
interrupted (SIGINT or SIGTERM).

Settings come from the environment and an optional dotenv file.

Examples:
  rain-station run
  rain-station run --dry-run
  SAMPLE_INTERVAL_MINUTES=5 rain-station run --env-file /etc/rain-station.env`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStation(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "keep the last 24h of rows in memory instead of the database")

	return cmd
}

func runStation(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.envFiles()...)
	if err != nil {
		return WrapExitError("failed to load config", err)
	}

	log, closer := logging.New(cfg.LogFile, cfg.SlogLevel(), cmd.OutOrStdout())
	defer closer.Close()

	st, err := openStation(cfg, opts.DryRun, log)
	if err != nil {
		log.Error("station failed to start", "error", err)
		return WrapExitError("failed to start station", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := st.Run(ctx); err != nil {
		log.Error("station stopped", "error", err)
		return WrapExitError("station stopped", err)
	}
	return nil
}

// openStation claims every resource the supervisor needs. Whatever was
// claimed is released again if a later step fails.
func openStation(cfg *config.AppConfig, dryRun bool, log *slog.Logger) (st *station.Station, err error) {
	var cleanup []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(cleanup) - 1; i >= 0; i-- {
			if cerr := cleanup[i](); cerr != nil {
				log.Warn("release after failed start", "error", cerr)
			}
		}
	}()

	var db weather.Store
	if dryRun {
		log.Warn("dry run: rows are kept in memory only")
		db = store.NewMemoryStore(0, 24*time.Hour)
	} else if db, err = store.Open(cfg.StorePath); err != nil {
		return nil, err
	}
	cleanup = append(cleanup, db.Close)

	gauge, err := hardware.OpenGPIO(cfg.RainGaugePin, cfg.RainGaugePull)
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, gauge.Close)

	thermo, err := sensors.DiscoverW1(cfg.W1DevicesDir)
	if err != nil {
		return nil, err
	}
	hygro, err := sensors.OpenIIOHygrometer(cfg.HygrometerDir)
	if err != nil {
		return nil, err
	}
	log.Info("sensors found", "thermometer", thermo.Path(), "hygrometer", cfg.HygrometerDir, "gauge", gauge.Name())

	source := sensors.NewComposite(hygro, thermo, cfg.Unit(), sensors.BackoffConfig{
		MaxRetries:      cfg.SensorMaxRetries,
		InitialInterval: cfg.SensorRetryInterval,
		MaxInterval:     4 * cfg.SensorRetryInterval,
	})

	return station.New(station.Options{
		IntervalMinutes: cfg.SampleIntervalMinutes,
		DebounceWindow:  cfg.DebounceWindow,
		BucketVolume:    cfg.BucketVolume,
		AppendTimeout:   cfg.AppendTimeout,
		StatusInterval:  cfg.StatusInterval,
	}, station.Deps{
		Log:    log,
		Store:  db,
		Gauge:  gauge,
		Source: source,
	})
}
