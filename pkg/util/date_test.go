package util

import (
	"testing"
	"time"
)

func TestParseDay(t *testing.T) {
	got, ok := ParseDay("2025-03-14")
	if !ok {
		t.Fatalf("expected ok")
	}
	want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected day %v", got)
	}
	if _, ok := ParseDay("14/03/2025"); ok {
		t.Fatalf("expected parse failure")
	}
}

func TestParseTimeFallbacks(t *testing.T) {
	if _, ok := ParseTime("2025-03-14T10:00:00Z"); !ok {
		t.Fatalf("expected RFC3339 to parse")
	}
	ts := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC).Unix()
	got, ok := ParseTime("1741946400")
	if !ok {
		t.Fatalf("expected unix seconds to parse")
	}
	_ = ts
	if got.IsZero() {
		t.Fatalf("unexpected zero time")
	}
}

func TestMondayOf(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2025-06-09", "2025-06-09"}, // Monday maps to itself
		{"2025-06-11", "2025-06-09"}, // Wednesday
		{"2025-06-15", "2025-06-09"}, // Sunday belongs to the preceding Monday
		{"2025-06-16", "2025-06-16"}, // next Monday
	}
	for _, c := range cases {
		in, _ := ParseDay(c.in)
		if got := FormatDay(MondayOf(in)); got != c.want {
			t.Fatalf("MondayOf(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestWeekEnd(t *testing.T) {
	monday, _ := ParseDay("2025-06-09")
	if got := FormatDay(WeekEnd(monday)); got != "2025-06-15" {
		t.Fatalf("unexpected week end %s", got)
	}
}
