package projection

import (
	"math"
	"strings"
	"time"

	"github.com/stockwatch/stockwatch/internal/columns"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"2006. 1. 2.",
	"2006. 1. 2",
	"20060102",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// excelEpoch is day zero of the 1900 date system as Excel counts it (leap-year bug included).
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate reads an expiry cell. Numbers are Excel serial days; strings try the common layouts.
// The result is a UTC calendar date.
func ParseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		if t < 1 || t > 2958465 || math.IsNaN(t) {
			return time.Time{}, false
		}
		return excelEpoch.AddDate(0, 0, int(t)), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if d, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return dateOnly(d), true
			}
		}
		if n := columns.ParseNumber(s); n != nil {
			return ParseDate(*n)
		}
	}
	return time.Time{}, false
}

// DaysUntil counts whole calendar days from now's date to d's date, both in UTC.
func DaysUntil(now, d time.Time) int {
	from := dateOnly(now.UTC())
	to := dateOnly(d.UTC())
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
