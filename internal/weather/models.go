package weather

import (
	"errors"
	"time"
)

// TimestampLayout is the persisted local wall-clock format. Lexical order
// matches chronological order except inside the repeated fall-back hour.
const TimestampLayout = "2006-01-02 15:04:05"

// Kind identifies which record a persisted row carries.
type Kind string

const (
	KindTip    Kind = "tip"
	KindSample Kind = "sample"
)

// Record is anything that can be appended to the shared store.
type Record interface {
	Row() Row
}

// TipEvent is one debounced rain-bucket tip.
type TipEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Volume    float64   `json:"volume"`
}

// Row converts the tip into its union row.
func (e TipEvent) Row() Row {
	v := e.Volume
	return Row{Timestamp: e.Timestamp, BucketVolume: &v}
}

// Reading is the complete triple a ReadingSource yields.
// PrimaryTemp comes from the humidity sensor, SecondaryTemp from the
// standalone temperature sensor.
type Reading struct {
	PrimaryTemp   float64 `json:"primaryTemp"`
	Humidity      float64 `json:"humidity"`
	SecondaryTemp float64 `json:"secondaryTemp"`
}

// SampleRecord is one temperature/humidity sample taken on a boundary tick.
type SampleRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	PrimaryTemp   *float64  `json:"primaryTemp"`
	Humidity      *float64  `json:"humidity"`
	SecondaryTemp *float64  `json:"secondaryTemp"`
}

// NewSampleRecord builds a sample from a complete reading.
func NewSampleRecord(at time.Time, r Reading) SampleRecord {
	primary, hum, secondary := r.PrimaryTemp, r.Humidity, r.SecondaryTemp
	return SampleRecord{
		Timestamp:     at,
		PrimaryTemp:   &primary,
		Humidity:      &hum,
		SecondaryTemp: &secondary,
	}
}

// Row converts the sample into its union row.
func (s SampleRecord) Row() Row {
	return Row{
		Timestamp:     s.Timestamp,
		PrimaryTemp:   s.PrimaryTemp,
		Humidity:      s.Humidity,
		SecondaryTemp: s.SecondaryTemp,
	}
}

// Row is one entry of the persisted union schema. Fields that do not belong
// to the row's kind are nil.
type Row struct {
	ID            int64     `json:"id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	BucketVolume  *float64  `json:"bucketVolume,omitempty"`
	PrimaryTemp   *float64  `json:"primaryTemp,omitempty"`
	Humidity      *float64  `json:"humidity,omitempty"`
	SecondaryTemp *float64  `json:"secondaryTemp,omitempty"`
}

// Kind reports whether the row is a tip or a sample.
func (r Row) Kind() Kind {
	if r.BucketVolume != nil {
		return KindTip
	}
	return KindSample
}

var (
	errMixedRow      = errors.New("row carries both tip and sample fields")
	errPartialSample = errors.New("sample row is missing readings")
	errNoTimestamp   = errors.New("row has no timestamp")
)

// Validate rejects rows that are not exactly one complete record.
func (r Row) Validate() error {
	if r.Timestamp.IsZero() {
		return errNoTimestamp
	}
	hasSample := r.PrimaryTemp != nil || r.Humidity != nil || r.SecondaryTemp != nil
	if r.BucketVolume != nil {
		if hasSample {
			return errMixedRow
		}
		return nil
	}
	if r.PrimaryTemp == nil || r.Humidity == nil || r.SecondaryTemp == nil {
		return errPartialSample
	}
	return nil
}

// Stats summarises one measured quantity over a day.
type Stats struct {
	Count  int     `json:"count"`
	Latest float64 `json:"latest"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
}

// DaySummary is the per-day view logged by the status jobs.
type DaySummary struct {
	Day           time.Time `json:"day"`
	Tips          int       `json:"tips"`
	RainTotal     float64   `json:"rainTotal"`
	Samples       int       `json:"samples"`
	PrimaryTemp   Stats     `json:"primaryTemp"`
	Humidity      Stats     `json:"humidity"`
	SecondaryTemp Stats     `json:"secondaryTemp"`
}
