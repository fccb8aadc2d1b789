// Package timeslot fragments half-open time windows into fixed-duration
// bookable slots. It is pure: no clocks, no stores, no side effects.
package timeslot

import "time"

// Slot is one half-open [Start, End) interval of exactly the requested
// duration.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Generate splits [from, to) into consecutive slots of length duration.
// A trailing remainder shorter than duration is dropped: slots are always
// full-length. Identical inputs always yield the identical ordered list.
func Generate(from, to time.Time, duration time.Duration) ([]Slot, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if !from.Before(to) {
		return nil, ErrInvalidWindow
	}

	var slots []Slot
	for cursor := from; !cursor.Add(duration).After(to); cursor = cursor.Add(duration) {
		slots = append(slots, Slot{Start: cursor, End: cursor.Add(duration)})
	}
	return slots, nil
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
