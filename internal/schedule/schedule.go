// Package schedule provides the payment period calendar for a deal:
// a vector of periods provisioned once at setup, plus day-count math.
package schedule

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// Period is one payment period. Ordinals are 1-based to match deal
// documentation; the schedule translates to slice indexes internally.
type Period struct {
	Ordinal int       `json:"ordinal"`
	Begin   time.Time `json:"begin"`
	End     time.Time `json:"end"`
}

// Schedule holds the provisioned periods of a deal. Periods are created
// once and never skipped or revisited.
type Schedule struct {
	convention Convention
	periods    []Period
}

// New provisions a schedule of count periods starting at begin, each
// frequencyMonths long, using EDATE-style month stepping so month-end
// anchors stay on month-end.
func New(begin time.Time, frequencyMonths, count int, convention Convention) (*Schedule, error) {
	if count <= 0 {
		return nil, eris.Errorf("schedule: period count must be positive, got %d", count)
	}
	if frequencyMonths <= 0 {
		return nil, eris.Errorf("schedule: frequency must be positive months, got %d", frequencyMonths)
	}

	s := &Schedule{convention: convention}
	s.reserve(count)

	cursor := begin
	for i := 1; i <= count; i++ {
		end := addMonths(cursor, frequencyMonths)
		s.periods = append(s.periods, Period{Ordinal: i, Begin: cursor, End: end})
		cursor = end
	}
	return s, nil
}

// reserve sizes the period vector up front. The horizon is fixed at setup;
// appending past it is a bug in the caller.
func (s *Schedule) reserve(capacity int) {
	s.periods = make([]Period, 0, capacity)
}

// Count returns the number of provisioned periods.
func (s *Schedule) Count() int { return len(s.periods) }

// Convention returns the deal's day-count convention.
func (s *Schedule) Convention() Convention { return s.convention }

// Period returns the period with the given 1-based ordinal. Ordinals
// outside the provisioned horizon are a programmer error.
func (s *Schedule) Period(ordinal int) Period {
	if ordinal < 1 || ordinal > len(s.periods) {
		panic(fmt.Sprintf("schedule: period %d outside provisioned horizon 1..%d", ordinal, len(s.periods)))
	}
	return s.periods[ordinal-1]
}

// Fraction returns the day-count fraction for the given period.
func (s *Schedule) Fraction(ordinal int) decimal.Decimal {
	p := s.Period(ordinal)
	return s.convention.Fraction(p.Begin, p.End)
}

// addMonths behaves like Excel's EDATE, avoiding Go's month normalization
// surprises (Jan 31 + 1 month is Feb 28/29, not Mar 2/3).
func addMonths(t time.Time, months int) time.Time {
	d := t.AddDate(0, months, 0)
	firstOfTarget := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	if d.Month() == firstOfTarget.Month() {
		return d
	}
	origMonth := d.Month()
	for d.Month() == origMonth {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
