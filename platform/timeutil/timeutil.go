// Package timeutil provides the quiet-hours and sliding-window helpers used
// by outbound delivery (spec.md §4.9) and rate limiting.
package timeutil

import (
	"fmt"
	"time"
)

// QuietHours describes a daily do-not-disturb window in a recipient's own
// time zone, e.g. 21:00-08:00.
type QuietHours struct {
	StartHour int
	StartMin  int
	EndHour   int
	EndMin    int
	Location  *time.Location
}

// Contains reports whether instant t (in any zone) falls inside the quiet
// window once converted to q.Location. Handles windows that cross midnight
// (start > end).
func (q QuietHours) Contains(t time.Time) bool {
	local := t.In(q.Location)
	minutes := local.Hour()*60 + local.Minute()
	start := q.StartHour*60 + q.StartMin
	end := q.EndHour*60 + q.EndMin
	if start == end {
		return false
	}
	if start < end {
		return minutes >= start && minutes < end
	}
	// crosses midnight
	return minutes >= start || minutes < end
}

// NextPermittedInstant returns t unchanged if it falls outside quiet hours,
// or the first instant at or after the end of the quiet window otherwise.
// Transactional messages bypass this check entirely at the call site
// (spec.md §4.9); this function only ever applies to non-transactional
// categories.
func (q QuietHours) NextPermittedInstant(t time.Time) time.Time {
	if !q.Contains(t) {
		return t
	}
	local := t.In(q.Location)
	end := time.Date(local.Year(), local.Month(), local.Day(), q.EndHour, q.EndMin, 0, 0, q.Location)
	if !end.After(local) {
		end = end.Add(24 * time.Hour)
	}
	// If the window crosses midnight and `local` is in the pre-midnight
	// portion (e.g. 22:00 with quiet hours 21:00-08:00), the end instant
	// computed above already lands on the correct day; nothing further
	// to adjust.
	return end
}

// SlidingWindowKey buckets `at` into a window of the given size, producing a
// stable cache key suffix so repeated calls within the same window share a
// counter. Used for the daily outbound limit and other rate counters.
func SlidingWindowKey(at time.Time, window time.Duration) string {
	bucket := at.UTC().Unix() / int64(window.Seconds())
	return fmt.Sprintf("%d", bucket)
}

// WindowRemaining returns the duration until the current sliding window
// (as bucketed by SlidingWindowKey) rolls over, for Retry-After rendering.
func WindowRemaining(at time.Time, window time.Duration) time.Duration {
	secs := int64(window.Seconds())
	elapsed := at.UTC().Unix() % secs
	return time.Duration(secs-elapsed) * time.Second
}
