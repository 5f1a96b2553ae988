package util

import (
	"time"
)

const layout = "2006-01-02"

func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// DateOnly drops the clock and location so dates compare as calendar days
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func DateKey(t time.Time) string {
	return t.Format(layout)
}

// ParseDate accepts ISO dates and the dd/mm/yyyy headers used by weight files
func ParseDate(s string) (time.Time, error) {
	var (
		t   time.Time
		err error
	)
	for _, l := range []string{layout, "02/01/2006", "2006/01/02", time.RFC3339} {
		t, err = time.Parse(l, s)
		if err == nil {
			return DateOnly(t), nil
		}
	}
	return time.Time{}, err
}
