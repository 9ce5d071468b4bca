package domain

import "time"

// Reservation records units held by a task on a pool over a half-open
// date interval [Start, End).
type Reservation struct {
	TaskID string
	Units  int
	Start  time.Time
	End    time.Time
}

// Overlaps reports whether the reservation's interval intersects
// [start, end). Half-open intervals touch without overlapping.
func (r Reservation) Overlaps(start, end time.Time) bool {
	return IntervalsOverlap(r.Start, r.End, start, end)
}

// IntervalsOverlap reports whether two half-open intervals [aStart, aEnd)
// and [bStart, bEnd) share at least one instant.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aEnd.After(bStart) && aStart.Before(bEnd)
}
