package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustCalendar(t *testing.T, workweek []time.Weekday, holidays []time.Time) *Calendar {
	t.Helper()
	cal, err := NewCalendar(workweek, holidays)
	require.NoError(t, err)
	return cal
}

func TestNewCalendar_EmptyWorkweek(t *testing.T) {
	_, err := NewCalendar(nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCalendar_IsWorkday(t *testing.T) {
	holiday := date(2024, time.January, 3)
	cal := mustCalendar(t, DefaultWorkweek(), []time.Time{holiday})

	tests := []struct {
		name string
		day  time.Time
		want bool
	}{
		{"monday is a workday", date(2024, time.January, 1), true},
		{"saturday is not", date(2024, time.January, 6), false},
		{"sunday is not", date(2024, time.January, 7), false},
		{"holiday wednesday is not", holiday, false},
		{"time of day is ignored", time.Date(2024, time.January, 1, 17, 30, 0, 0, time.UTC), true},
		{"holiday matches regardless of clock", time.Date(2024, time.January, 3, 9, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.IsWorkday(tt.day))
		})
	}
}

func TestCalendar_NextWorkday(t *testing.T) {
	cal := mustCalendar(t, DefaultWorkweek(), []time.Time{date(2024, time.January, 8)})

	t.Run("workday returns itself", func(t *testing.T) {
		assert.Equal(t, date(2024, time.January, 1), cal.NextWorkday(date(2024, time.January, 1)))
	})

	t.Run("saturday advances to monday", func(t *testing.T) {
		assert.Equal(t, date(2024, time.January, 15), cal.NextWorkday(date(2024, time.January, 13)))
	})

	t.Run("holiday monday advances to tuesday", func(t *testing.T) {
		assert.Equal(t, date(2024, time.January, 9), cal.NextWorkday(date(2024, time.January, 8)))
	})
}

func TestCalendar_AddWorkdays(t *testing.T) {
	cal := mustCalendar(t, DefaultWorkweek(), nil)

	t.Run("zero returns start unchanged", func(t *testing.T) {
		start := date(2024, time.January, 1)
		assert.Equal(t, start, cal.AddWorkdays(start, 0))
	})

	t.Run("negative returns start unchanged", func(t *testing.T) {
		start := date(2024, time.January, 1)
		assert.Equal(t, start, cal.AddWorkdays(start, -2))
	})

	t.Run("exclusive end after three workdays", func(t *testing.T) {
		// Mon 2024-01-01 + 3 workdays occupies Mon, Tue, Wed; end is Thu.
		got := cal.AddWorkdays(date(2024, time.January, 1), 3)
		assert.Equal(t, date(2024, time.January, 4), got)
	})

	t.Run("spans a weekend", func(t *testing.T) {
		// Thu 2024-01-04 + 3 workdays occupies Thu, Fri, Mon; end is Tue.
		got := cal.AddWorkdays(date(2024, time.January, 4), 3)
		assert.Equal(t, date(2024, time.January, 9), got)
	})

	t.Run("weekend start counts from the next workday", func(t *testing.T) {
		// Sat 2024-01-06 + 1 workday consumes Mon; end is Tue.
		got := cal.AddWorkdays(date(2024, time.January, 6), 1)
		assert.Equal(t, date(2024, time.January, 9), got)
	})

	t.Run("holidays are skipped", func(t *testing.T) {
		withHoliday := mustCalendar(t, DefaultWorkweek(), []time.Time{date(2024, time.January, 2)})
		// Mon + 2 workdays with Tue as holiday occupies Mon, Wed; end is Thu.
		got := withHoliday.AddWorkdays(date(2024, time.January, 1), 2)
		assert.Equal(t, date(2024, time.January, 4), got)
	})

	t.Run("monotonic in n", func(t *testing.T) {
		start := date(2024, time.January, 1)
		prev := cal.AddWorkdays(start, 0)
		for n := 1; n <= 30; n++ {
			next := cal.AddWorkdays(start, n)
			assert.True(t, next.After(prev), "n=%d", n)
			prev = next
		}
	})
}

func TestCalendar_AddCalendarDays(t *testing.T) {
	cal := mustCalendar(t, DefaultWorkweek(), nil)

	t.Run("counts weekends", func(t *testing.T) {
		// Fri 2024-01-05 + 3 calendar days lands on Mon regardless of the workweek.
		got := cal.AddCalendarDays(date(2024, time.January, 5), 3)
		assert.Equal(t, date(2024, time.January, 8), got)
	})

	t.Run("zero is identity", func(t *testing.T) {
		start := date(2024, time.January, 5)
		assert.Equal(t, start, cal.AddCalendarDays(start, 0))
	})
}

func TestNormalizeDate(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 02:30 on Jan 2 in UTC+5 is still Jan 1 in UTC.
	local := time.Date(2024, time.January, 2, 2, 30, 0, 0, loc)
	assert.Equal(t, date(2024, time.January, 1), NormalizeDate(local))
}
