package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/i474232898/rain-station/internal/weather"
)

// Exit codes for CLI commands.
const (
	ExitSuccess  = 0 // Successful execution
	ExitFailure  = 1 // Runtime failure
	ExitConfig   = 2 // Invalid configuration or arguments
	ExitHardware = 3 // Sensor or gauge could not be claimed
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err, choosing the exit code from its kind.
func WrapExitError(message string, err error) *ExitError {
	code := ExitFailure
	switch {
	case errors.Is(err, weather.ErrConfig):
		code = ExitConfig
	case errors.Is(err, weather.ErrHardwareUnavailable):
		code = ExitHardware
	}
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// recordView is the printed form of a stored row.
type recordView struct {
	Timestamp     string   `json:"timestamp"`
	Kind          string   `json:"kind"`
	BucketVolume  *float64 `json:"bucket_volume,omitempty"`
	PrimaryTemp   *float64 `json:"primary_temp,omitempty"`
	Humidity      *float64 `json:"humidity,omitempty"`
	SecondaryTemp *float64 `json:"secondary_temp,omitempty"`
}

func viewOf(r weather.Row) recordView {
	return recordView{
		Timestamp:     r.Timestamp.Format(weather.TimestampLayout),
		Kind:          string(r.Kind()),
		BucketVolume:  r.BucketVolume,
		PrimaryTemp:   r.PrimaryTemp,
		Humidity:      r.Humidity,
		SecondaryTemp: r.SecondaryTemp,
	}
}

func writeRecordsJSON(w io.Writer, rows []weather.Row) error {
	views := make([]recordView, 0, len(rows))
	for _, r := range rows {
		views = append(views, viewOf(r))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}

func writeRecordsText(w io.Writer, rows []weather.Row) error {
	if _, err := fmt.Fprintf(w, "%-19s  %-6s  %8s  %8s  %8s  %8s\n",
		"TIMESTAMP", "KIND", "BUCKET", "PRIMARY", "HUMIDITY", "SECONDARY"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%-19s  %-6s  %8s  %8s  %8s  %8s\n",
			r.Timestamp.Format(weather.TimestampLayout), r.Kind(),
			num(r.BucketVolume, 4), num(r.PrimaryTemp, 2), num(r.Humidity, 2), num(r.SecondaryTemp, 2),
		); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d record(s)\n", len(rows))
	return err
}

func num(p *float64, places int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", places, *p)
}

// statusView is what the status command reports.
type statusView struct {
	Records    int64              `json:"records"`
	LastTip    *recordView        `json:"last_tip,omitempty"`
	LastSample *recordView        `json:"last_sample,omitempty"`
	Today      weather.DaySummary `json:"today"`
}

func writeStatusJSON(w io.Writer, s statusView) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func writeStatusText(w io.Writer, s statusView) error {
	last := func(v *recordView) string {
		if v == nil {
			return "none"
		}
		return v.Timestamp
	}
	_, err := fmt.Fprintf(w,
		"records:      %d\nlast tip:     %s\nlast sample:  %s\ntoday (%s): %d tip(s), %.4f in rain, %d sample(s)\n",
		s.Records, last(s.LastTip), last(s.LastSample),
		s.Today.Day.Format(time.DateOnly), s.Today.Tips, s.Today.RainTotal, s.Today.Samples,
	)
	if err != nil || s.Today.Samples == 0 {
		return err
	}
	_, err = fmt.Fprintf(w, "  secondary temp min/avg/max: %.2f / %.2f / %.2f\n  humidity min/avg/max:       %.2f / %.2f / %.2f\n",
		s.Today.SecondaryTemp.Min, s.Today.SecondaryTemp.Avg, s.Today.SecondaryTemp.Max,
		s.Today.Humidity.Min, s.Today.Humidity.Avg, s.Today.Humidity.Max,
	)
	return err
}
