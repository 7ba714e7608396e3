package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/rain-station/internal/config"
	"github.com/i474232898/rain-station/internal/store"
	"github.com/i474232898/rain-station/internal/weather"
)

// RecordsOptions holds flags for the records command.
type RecordsOptions struct {
	*RootOptions
	Database string
	From     string
	To       string
}

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Print stored tips and samples",
		Long: `Print the rows committed in [from, to), oldest first.

Dates are local time, either 2006-01-02 or 2006-01-02 15:04:05.
Without flags the current day is printed.

Examples:
  rain-station records
  rain-station records --from 2026-03-01 --to 2026-03-08
  rain-station records --db ./weather.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default STORE_PATH)")
	cmd.Flags().StringVar(&opts.From, "from", "", "start of range, inclusive (default today 00:00)")
	cmd.Flags().StringVar(&opts.To, "to", "", "end of range, exclusive (default one day after --from)")

	return cmd
}

func runRecords(opts *RecordsOptions, cmd *cobra.Command) error {
	from, to, err := parseRange(opts.From, opts.To, time.Now())
	if err != nil {
		return WrapExitError("invalid range", err)
	}

	db, err := openReader(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.Range(context.Background(), from, to)
	if err != nil {
		return WrapExitError("failed to read records", err)
	}

	if opts.Format == "json" {
		return writeRecordsJSON(cmd.OutOrStdout(), rows)
	}
	return writeRecordsText(cmd.OutOrStdout(), rows)
}

var rangeLayouts = []string{weather.TimestampLayout, time.DateOnly}

func parseLocal(s string) (time.Time, error) {
	for _, layout := range rangeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse %q as a date", weather.ErrConfig, s)
}

// parseRange resolves the --from/--to flags. An empty from means the start of
// now's day; an empty to means one day after from.
func parseRange(fromFlag, toFlag string, now time.Time) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error

	if fromFlag == "" {
		y, m, d := now.Date()
		from = time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	} else if from, err = parseLocal(fromFlag); err != nil {
		return from, to, err
	}

	if toFlag == "" {
		to = from.AddDate(0, 0, 1)
	} else if to, err = parseLocal(toFlag); err != nil {
		return from, to, err
	}

	if !to.After(from) {
		return from, to, fmt.Errorf("%w: --to %s is not after --from %s", weather.ErrConfig,
			to.Format(weather.TimestampLayout), from.Format(weather.TimestampLayout))
	}
	return from, to, nil
}

// openReader opens an existing database for the read-only commands. The path
// comes from --db, or STORE_PATH when the flag is empty. The file is never
// created, migrated or written.
func openReader(opts *RootOptions, path string) (*store.SQLiteStore, error) {
	if path == "" {
		cfg, err := config.Load(opts.envFiles()...)
		if err != nil {
			return nil, WrapExitError("failed to load config", err)
		}
		path = cfg.StorePath
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewExitError(ExitConfig, fmt.Sprintf("database not found: %s", path))
		}
		return nil, WrapExitError("failed to open database", err)
	}

	db, err := store.OpenReadOnly(path)
	if err != nil {
		return nil, WrapExitError("failed to open database", err)
	}
	return db, nil
}
