// Package calendar converts between calendar dates and day-of-year ordinals.
// All functions work on the date in the time's own location; clock time is
// ignored.
package calendar

import (
	"fmt"
	"time"
)

// ISODate is the layout used for dates in URLs and storage.
const ISODate = "2006-01-02"

// DayOfYear returns the 1-based ordinal of t within its year.
func DayOfYear(t time.Time) int {
	return t.YearDay()
}

// DateFromDayOfYear returns midnight of the given ordinal day of year in loc.
// Out-of-range days roll over into the adjacent years.
func DateFromDayOfYear(day, year int, loc *time.Location) time.Time {
	return time.Date(year, time.January, day, 0, 0, 0, 0, loc)
}

func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// DaysRemaining returns the number of days left in t's year after t.
func DaysRemaining(t time.Time) int {
	return DaysInYear(t.Year()) - DayOfYear(t)
}

// YearProgress returns how far through its year t is, as a percentage.
func YearProgress(t time.Time) float64 {
	return float64(DayOfYear(t)) / float64(DaysInYear(t.Year())) * 100
}

// FormatISODate formats t as YYYY-MM-DD.
func FormatISODate(t time.Time) string {
	return t.Format(ISODate)
}

// ParseISODate parses a YYYY-MM-DD date as midnight in loc.
func ParseISODate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(ISODate, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDateShort formats t like "Mar 4, 2026".
func FormatDateShort(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// FormatDayHeading formats t like "Wednesday, Mar 4".
func FormatDayHeading(t time.Time) string {
	return t.Format("Monday, Jan 2")
}

// FormatDuration renders minutes as "1h 30m", "1h" or "45m". Zero is "0m".
func FormatDuration(minutes int) string {
	if minutes == 0 {
		return "0m"
	}
	hours, mins := minutes/60, minutes%60
	switch {
	case hours > 0 && mins > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", mins)
}

// YearBounds returns the first and last ISO dates of year.
func YearBounds(year int) (string, string) {
	return fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year)
}
