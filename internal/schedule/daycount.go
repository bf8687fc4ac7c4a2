package schedule

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// Convention is a day-count convention for converting a date range into
// the fraction of a year it represents.
type Convention string

const (
	Act360    Convention = "ACT/360"
	Act365    Convention = "ACT/365"
	Thirty360 Convention = "30/360"
)

// ParseConvention validates a convention string from deal configuration.
func ParseConvention(s string) (Convention, error) {
	switch Convention(s) {
	case Act360, Act365, Thirty360:
		return Convention(s), nil
	default:
		return "", eris.Errorf("schedule: unknown day-count convention %q", s)
	}
}

var (
	days360 = decimal.NewFromInt(360)
	days365 = decimal.NewFromInt(365)
)

// Fraction returns the day-count fraction for [begin, end) under the
// convention. Returns zero when end is not after begin.
func (c Convention) Fraction(begin, end time.Time) decimal.Decimal {
	if !end.After(begin) {
		return decimal.Zero
	}
	switch c {
	case Act360:
		return decimal.NewFromInt(actualDays(begin, end)).Div(days360)
	case Act365:
		return decimal.NewFromInt(actualDays(begin, end)).Div(days365)
	case Thirty360:
		return decimal.NewFromInt(days30360(begin, end)).Div(days360)
	default:
		panic("schedule: unknown day-count convention " + string(c))
	}
}

func actualDays(begin, end time.Time) int64 {
	return int64(end.Sub(begin).Hours() / 24)
}

// days30360 implements US (Bond Basis) 30/360 day counting.
func days30360(begin, end time.Time) int64 {
	d1, d2 := begin.Day(), end.Day()
	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 == 30 {
		d2 = 30
	}
	y1, m1 := begin.Year(), int(begin.Month())
	y2, m2 := end.Year(), int(end.Month())
	return int64(360*(y2-y1) + 30*(m2-m1) + (d2 - d1))
}
