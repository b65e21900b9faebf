package domain

import (
	"math"
	"slices"
	"strconv"
	"time"
)

// CancellationSummary is the order count and cancellation rate for one event.
type CancellationSummary struct {
	EventName       string
	TotalOrders     int
	CancelledOrders int
	RatePercent     float64
}

// NewCancellationSummary computes the rate, rounded to one decimal place.
// Both counts must be non-zero, otherwise ErrNoData is returned.
func NewCancellationSummary(eventName string, total, cancelled int) (CancellationSummary, error) {
	if total == 0 || cancelled == 0 {
		return CancellationSummary{}, ErrNoData
	}
	rate := 100 * float64(cancelled) / float64(total)
	return CancellationSummary{
		EventName:       eventName,
		TotalOrders:     total,
		CancelledOrders: cancelled,
		RatePercent:     math.Round(rate*10) / 10,
	}, nil
}

// Rate renders the rate as e.g. "33.3%".
func (s CancellationSummary) Rate() string {
	return strconv.FormatFloat(s.RatePercent, 'f', 1, 64) + "%"
}

// DailyCancellations is the sum of cancelled quantities for one calendar day.
type DailyCancellations struct {
	Date     time.Time
	Quantity int
}

// PeakCancellationDay is the day with the most cancelled tickets.
type PeakCancellationDay struct {
	Date              time.Time
	CancelledQuantity int
}

// DateString formats the day as YYYY-MM-DD.
func (p PeakCancellationDay) DateString() string {
	return p.Date.Format(time.DateOnly)
}

// FindPeakCancellationDay scans days in ascending date order and returns the
// first day whose total reaches the maximum. Input order is not assumed.
func FindPeakCancellationDay(days []DailyCancellations) (PeakCancellationDay, error) {
	if len(days) == 0 {
		return PeakCancellationDay{}, ErrNoData
	}

	sorted := make([]DailyCancellations, len(days))
	copy(sorted, days)
	slices.SortStableFunc(sorted, func(a, b DailyCancellations) int {
		return a.Date.Compare(b.Date)
	})

	var (
		peak    PeakCancellationDay
		found   bool
		current DailyCancellations
	)
	flush := func() {
		if !found || current.Quantity > peak.CancelledQuantity {
			peak = PeakCancellationDay{Date: current.Date, CancelledQuantity: current.Quantity}
			found = true
		}
	}
	for i, d := range sorted {
		day := truncateDay(d.Date)
		if i > 0 && day.Equal(current.Date) {
			current.Quantity += d.Quantity
			continue
		}
		if i > 0 {
			flush()
		}
		current = DailyCancellations{Date: day, Quantity: d.Quantity}
	}
	flush()
	return peak, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
