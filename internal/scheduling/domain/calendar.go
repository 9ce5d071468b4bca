package domain

import (
	"fmt"
	"time"
)

// Calendar answers workday questions for a project: which weekdays are
// worked and which dates are holidays. All arithmetic happens at day
// resolution; times of day are discarded by normalising to UTC midnight.
type Calendar struct {
	workweek [7]bool
	holidays map[time.Time]struct{}
}

// DefaultWorkweek returns the Monday through Friday workweek.
func DefaultWorkweek() []time.Weekday {
	return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
}

// NewCalendar creates a calendar from a workweek and a holiday list.
// The workweek must contain at least one weekday, otherwise workday
// arithmetic could never terminate.
func NewCalendar(workweek []time.Weekday, holidays []time.Time) (*Calendar, error) {
	if len(workweek) == 0 {
		return nil, fmt.Errorf("%w: workweek must contain at least one weekday", ErrInvalidInput)
	}

	c := &Calendar{holidays: make(map[time.Time]struct{}, len(holidays))}
	for _, wd := range workweek {
		if wd < time.Sunday || wd > time.Saturday {
			return nil, fmt.Errorf("%w: invalid weekday %d", ErrInvalidInput, wd)
		}
		c.workweek[wd] = true
	}
	for _, h := range holidays {
		c.holidays[NormalizeDate(h)] = struct{}{}
	}
	return c, nil
}

// NormalizeDate truncates a timestamp to its UTC calendar day.
func NormalizeDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// IsWorkday reports whether the given date falls on a worked weekday
// and is not a holiday.
func (c *Calendar) IsWorkday(t time.Time) bool {
	d := NormalizeDate(t)
	if !c.workweek[d.Weekday()] {
		return false
	}
	_, holiday := c.holidays[d]
	return !holiday
}

// NextWorkday returns the first workday on or after the given date.
func (c *Calendar) NextWorkday(t time.Time) time.Time {
	d := NormalizeDate(t)
	for !c.IsWorkday(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// AddWorkdays streams forward from start, counting workdays, and returns
// the day after the n-th counted workday. The result is an exclusive end
// date: a task starting Monday with n=3 over a Mon-Fri week occupies
// Mon, Tue, Wed and ends Thursday. n <= 0 returns start unchanged.
func (c *Calendar) AddWorkdays(start time.Time, n int) time.Time {
	d := NormalizeDate(start)
	for remaining := n; remaining > 0; {
		if c.IsWorkday(d) {
			remaining--
		}
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// AddCalendarDays adds plain calendar days regardless of the workweek.
// Inter-task delays are measured this way.
func (c *Calendar) AddCalendarDays(start time.Time, n int) time.Time {
	return NormalizeDate(start).AddDate(0, 0, n)
}

// WorkdaysBetween counts the workdays in [start, end). With exclusive
// end dates this is the duration a placement occupies.
func (c *Calendar) WorkdaysBetween(start, end time.Time) int {
	days := 0
	for d := NormalizeDate(start); d.Before(NormalizeDate(end)); d = d.AddDate(0, 0, 1) {
		if c.IsWorkday(d) {
			days++
		}
	}
	return days
}
