package schedule

import (
	"strings"
	"time"
)

// Day boundary and generation window hours, in the reference time zone.
// The generation day rolls over at 3 AM, not midnight: a task started at
// 02:59 belongs to the previous day's window. Non-forced generation checks
// only run between 7 AM and 9 PM.
const (
	DayBoundaryHour  = 3
	WindowOpenHour   = 7
	WindowCloseHour  = 21
	EveningStartHour = 21
)

// DayWindow is the [Start, End) instant range representing "today" for
// generation purposes. Start and End are absolute instants carrying the
// reference zone, so range comparisons against stored timestamps are
// correct regardless of the evaluation zone.
type DayWindow struct {
	Start time.Time
	End   time.Time
	Day   string // normalized weekday name governing generation
	Hour  int    // reference-zone hour at evaluation time
}

// Window derives the current generation day from now in the given zone.
func Window(now time.Time, loc *time.Location) DayWindow {
	local := now.In(loc)
	anchor := local
	if local.Hour() < DayBoundaryHour {
		anchor = local.AddDate(0, 0, -1)
	}
	start := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), DayBoundaryHour, 0, 0, 0, loc)
	return DayWindow{
		Start: start,
		End:   start.AddDate(0, 0, 1),
		Day:   NormalizeWeekday(start.Weekday().String()),
		Hour:  local.Hour(),
	}
}

// Key returns the window's date string (YYYY-MM-DD in the reference zone),
// used as the generation-log and cache day key.
func (w DayWindow) Key() string {
	return w.Start.Format("2006-01-02")
}

// Contains reports whether t falls inside the window.
func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// AnchorAt returns the instant at the given reference-zone hour on the
// window's generation day. Used to anchor materialized task start times.
func (w DayWindow) AnchorAt(hour int) time.Time {
	return time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day(), hour, 0, 0, 0, w.Start.Location())
}

// InGenerationWindow reports whether the reference-zone hour permits
// non-forced generation.
func InGenerationWindow(hour int) bool {
	return hour >= WindowOpenHour && hour < WindowCloseHour
}

// TodayTaskWindow returns the active session range for "today's tasks".
// In evening mode (hour in [21,24) or [0,3)) the session spans from the
// most recent 9 PM to the upcoming 3 AM; otherwise it is
// [today 00:00, tomorrow 03:00). Boundaries are absolute instants.
func TodayTaskWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	h := local.Hour()

	switch {
	case h >= EveningStartHour:
		start := time.Date(local.Year(), local.Month(), local.Day(), EveningStartHour, 0, 0, 0, loc)
		return start, start.Add((24 - EveningStartHour + DayBoundaryHour) * time.Hour)
	case h < DayBoundaryHour:
		prev := local.AddDate(0, 0, -1)
		start := time.Date(prev.Year(), prev.Month(), prev.Day(), EveningStartHour, 0, 0, 0, loc)
		return start, start.Add((24 - EveningStartHour + DayBoundaryHour) * time.Hour)
	default:
		start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		return start, start.Add((24 + DayBoundaryHour) * time.Hour)
	}
}

var weekdayAliases = map[string]string{
	"mon": "monday", "tue": "tuesday", "tues": "tuesday", "wed": "wednesday",
	"thu": "thursday", "thur": "thursday", "thurs": "thursday",
	"fri": "friday", "sat": "saturday", "sun": "sunday",
}

// NormalizeWeekday trims and case-folds a weekday label into its canonical
// lowercase English form. This is the single normalizer shared by the list
// and project generation paths; stored day sets and incoming day-of-week
// parameters must both pass through it before comparison.
func NormalizeWeekday(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if full, ok := weekdayAliases[s]; ok {
		return full
	}
	return s
}

// WeekdaySetContains reports whether day (already normalized) is a member
// of the configured set after normalizing each entry.
func WeekdaySetContains(set []string, day string) bool {
	for _, d := range set {
		if NormalizeWeekday(d) == day {
			return true
		}
	}
	return false
}
