package schedule

import (
	"testing"
	"time"
)

func mustLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestWindowBeforeBoundaryBelongsToPreviousDay(t *testing.T) {
	loc := mustLoc(t)
	now := time.Date(2025, 6, 12, 2, 59, 0, 0, loc) // Thursday 02:59

	win := Window(now, loc)

	if win.Key() != "2025-06-11" {
		t.Errorf("expected day key 2025-06-11, got %s", win.Key())
	}
	if win.Day != "wednesday" {
		t.Errorf("expected wednesday, got %s", win.Day)
	}
	if !win.Contains(now) {
		t.Error("expected 02:59 to fall inside the previous day's window")
	}
}

func TestWindowAtBoundaryStartsNewDay(t *testing.T) {
	loc := mustLoc(t)
	now := time.Date(2025, 6, 12, 3, 0, 0, 0, loc) // Thursday 03:00

	win := Window(now, loc)

	if win.Key() != "2025-06-12" {
		t.Errorf("expected day key 2025-06-12, got %s", win.Key())
	}
	if win.Day != "thursday" {
		t.Errorf("expected thursday, got %s", win.Day)
	}
	want := time.Date(2025, 6, 12, 3, 0, 0, 0, loc)
	if !win.Start.Equal(want) {
		t.Errorf("expected window start %v, got %v", want, win.Start)
	}
}

func TestWindowSpansExactlyOneDay(t *testing.T) {
	loc := mustLoc(t)
	win := Window(time.Date(2025, 6, 12, 14, 0, 0, 0, loc), loc)

	if !win.End.Equal(win.Start.AddDate(0, 0, 1)) {
		t.Errorf("expected end one day after start, got %v .. %v", win.Start, win.End)
	}
	if win.Contains(win.End) {
		t.Error("window end must be exclusive")
	}
	if !win.Contains(win.Start) {
		t.Error("window start must be inclusive")
	}
}

func TestInGenerationWindow(t *testing.T) {
	cases := []struct {
		hour int
		want bool
	}{
		{6, false},
		{7, true},
		{12, true},
		{20, true},
		{21, false},
		{23, false},
		{2, false},
	}
	for _, c := range cases {
		if got := InGenerationWindow(c.hour); got != c.want {
			t.Errorf("InGenerationWindow(%d) = %v, want %v", c.hour, got, c.want)
		}
	}
}

func TestTodayTaskWindowEvening(t *testing.T) {
	loc := mustLoc(t)
	now := time.Date(2025, 6, 12, 23, 30, 0, 0, loc)

	start, end := TodayTaskWindow(now, loc)

	wantStart := time.Date(2025, 6, 12, 21, 0, 0, 0, loc)
	wantEnd := time.Date(2025, 6, 13, 3, 0, 0, 0, loc)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Errorf("evening window = %v .. %v, want %v .. %v", start, end, wantStart, wantEnd)
	}
}

func TestTodayTaskWindowAfterMidnight(t *testing.T) {
	loc := mustLoc(t)
	now := time.Date(2025, 6, 13, 1, 15, 0, 0, loc)

	start, end := TodayTaskWindow(now, loc)

	wantStart := time.Date(2025, 6, 12, 21, 0, 0, 0, loc)
	wantEnd := time.Date(2025, 6, 13, 3, 0, 0, 0, loc)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Errorf("post-midnight window = %v .. %v, want %v .. %v", start, end, wantStart, wantEnd)
	}
}

func TestTodayTaskWindowDaytime(t *testing.T) {
	loc := mustLoc(t)
	now := time.Date(2025, 6, 12, 10, 0, 0, 0, loc)

	start, end := TodayTaskWindow(now, loc)

	wantStart := time.Date(2025, 6, 12, 0, 0, 0, 0, loc)
	wantEnd := time.Date(2025, 6, 13, 3, 0, 0, 0, loc)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Errorf("daytime window = %v .. %v, want %v .. %v", start, end, wantStart, wantEnd)
	}
}

func TestNormalizeWeekday(t *testing.T) {
	cases := map[string]string{
		"Monday":    "monday",
		" TUESDAY ": "tuesday",
		"wed":       "wednesday",
		"Thurs":     "thursday",
		"friday":    "friday",
		"sat":       "saturday",
		"Sun":       "sunday",
	}
	for in, want := range cases {
		if got := NormalizeWeekday(in); got != want {
			t.Errorf("NormalizeWeekday(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWeekdaySetContains(t *testing.T) {
	set := []string{"Mon", "Wednesday", " fri "}
	if !WeekdaySetContains(set, "wednesday") {
		t.Error("expected wednesday in set")
	}
	if !WeekdaySetContains(set, "friday") {
		t.Error("expected friday in set")
	}
	if WeekdaySetContains(set, "sunday") {
		t.Error("did not expect sunday in set")
	}
}

func TestAnchorAt(t *testing.T) {
	loc := mustLoc(t)
	win := Window(time.Date(2025, 6, 12, 1, 0, 0, 0, loc), loc) // previous day's window

	anchor := win.AnchorAt(9)
	want := time.Date(2025, 6, 11, 9, 0, 0, 0, loc)
	if !anchor.Equal(want) {
		t.Errorf("anchor = %v, want %v", anchor, want)
	}
}
