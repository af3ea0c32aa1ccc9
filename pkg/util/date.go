package util

import (
	"strconv"
	"time"
)

// DayFormat is the wire format for calendar dates.
const DayFormat = "2006-01-02"

// ParseDay parses a calendar date in YYYY-MM-DD form. Returns (t, true) at
// UTC midnight if it worked.
func ParseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// ParseDayDefault parses a calendar date or returns default if empty/invalid.
func ParseDayDefault(s string, def time.Time) time.Time {
	if t, ok := ParseDay(s); ok {
		return t
	}
	return def
}

// ParseTime tries YYYY-MM-DD, RFC3339, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := ParseDay(s); ok {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses a timestamp or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// Day truncates a timestamp to UTC midnight.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MondayOf returns the Monday starting the ISO week containing t.
func MondayOf(t time.Time) time.Time {
	d := Day(t)
	wd := int(d.Weekday())
	if wd == 0 { // Sunday closes the week started six days earlier
		wd = 7
	}
	return d.AddDate(0, 0, 1-wd)
}

// WeekEnd returns the Sunday closing the ISO week that starts at monday.
func WeekEnd(monday time.Time) time.Time {
	return monday.AddDate(0, 0, 6)
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// FormatDay renders t in YYYY-MM-DD form.
func FormatDay(t time.Time) string {
	return t.UTC().Format(DayFormat)
}
