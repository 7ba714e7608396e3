package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/rain-station/internal/weather"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Database string
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarise the database",
		Long: `Print the number of stored rows, the latest tip and sample, and
today's totals.

Examples:
  rain-station status
  rain-station status --db ./weather.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd, time.Now())
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default STORE_PATH)")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command, now time.Time) error {
	ctx := context.Background()

	db, err := openReader(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	var view statusView
	if view.Records, err = db.Count(ctx); err != nil {
		return WrapExitError("failed to count records", err)
	}
	if view.LastTip, err = latestView(ctx, db, weather.KindTip); err != nil {
		return WrapExitError("failed to read latest tip", err)
	}
	if view.LastSample, err = latestView(ctx, db, weather.KindSample); err != nil {
		return WrapExitError("failed to read latest sample", err)
	}

	svc := weather.NewService(db, nil, nil, nil)
	if view.Today, err = svc.DaySummary(ctx, now); err != nil {
		return WrapExitError("failed to summarise today", err)
	}

	if opts.Format == "json" {
		return writeStatusJSON(cmd.OutOrStdout(), view)
	}
	return writeStatusText(cmd.OutOrStdout(), view)
}

func latestView(ctx context.Context, db weather.Store, kind weather.Kind) (*recordView, error) {
	row, err := db.Latest(ctx, kind)
	if errors.Is(err, weather.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v := viewOf(row)
	return &v, nil
}
