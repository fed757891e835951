// Package calendar computes monthly derivative expiry dates.
package calendar

import "time"

// Expiry is the monthly option expiry pair for one month.
type Expiry struct {
	Year  int       `json:"year"`
	Month int       `json:"month"`
	KR    time.Time `json:"kr"` // 2nd Thursday
	US    time.Time `json:"us"` // 3rd Friday
}

// NthWeekday returns the nth (1-based) weekday of the month.
func NthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(n-1))
}

// OptionExpiry returns the KR and US monthly expiries for year/month.
func OptionExpiry(year int, month time.Month) Expiry {
	return Expiry{
		Year:  year,
		Month: int(month),
		KR:    NthWeekday(year, month, time.Thursday, 2),
		US:    NthWeekday(year, month, time.Friday, 3),
	}
}

// NextExpiries returns the expiries of the month containing now, rolling to
// the following month once both have passed.
func NextExpiries(now time.Time) Expiry {
	e := OptionExpiry(now.Year(), now.Month())
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if day.After(e.KR) && day.After(e.US) {
		next := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		return OptionExpiry(next.Year(), next.Month())
	}
	return e
}
