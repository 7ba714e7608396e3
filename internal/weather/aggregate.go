package weather

import (
	"time"

	"github.com/i474232898/rain-station/internal/common"
)

type statsAcc struct {
	n        int
	sum      float64
	min, max float64
	latest   float64
}

func (a *statsAcc) add(v float64) {
	if a.n == 0 || v < a.min {
		a.min = v
	}
	if a.n == 0 || v > a.max {
		a.max = v
	}
	a.n++
	a.sum += v
	a.latest = v
}

func (a *statsAcc) stats() Stats {
	if a.n == 0 {
		return Stats{}
	}
	return Stats{
		Count:  a.n,
		Latest: a.latest,
		Min:    a.min,
		Max:    a.max,
		Avg:    common.Round(a.sum/float64(a.n), 2),
	}
}

// AggregateRows folds one day of rows into a DaySummary.
// Rows are expected in store order (timestamp ascending); the last sample seen
// is reported as latest. Rain totals are rounded to 5 places, averages to 2.
func AggregateRows(day time.Time, rows []Row) DaySummary {
	y, m, d := day.Date()
	summary := DaySummary{Day: time.Date(y, m, d, 0, 0, 0, 0, day.Location())}

	var primary, humidity, secondary statsAcc
	var rain float64

	for _, r := range rows {
		switch r.Kind() {
		case KindTip:
			summary.Tips++
			rain += *r.BucketVolume
		case KindSample:
			if r.Validate() != nil {
				continue
			}
			summary.Samples++
			primary.add(*r.PrimaryTemp)
			humidity.add(*r.Humidity)
			secondary.add(*r.SecondaryTemp)
		}
	}

	summary.RainTotal = common.Round(rain, 5)
	summary.PrimaryTemp = primary.stats()
	summary.Humidity = humidity.stats()
	summary.SecondaryTemp = secondary.stats()
	return summary
}
