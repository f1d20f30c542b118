package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRangeWeekOneStartsFirstMonday(t *testing.T) {
	tests := []struct {
		name      string
		year      int
		wantStart time.Time
	}{
		{name: "jan 1 is a monday", year: 2024, wantStart: date(2024, time.January, 1)},
		{name: "jan 1 is a wednesday", year: 2025, wantStart: date(2025, time.January, 6)},
		{name: "jan 1 is a thursday", year: 2026, wantStart: date(2026, time.January, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Range(tt.year, 1)
			assert.Equal(t, tt.wantStart, w.Start)
			assert.Equal(t, tt.wantStart.AddDate(0, 0, 7).Add(-time.Nanosecond), w.End)
			assert.Equal(t, 1, w.WeekNumber)
			assert.Equal(t, tt.year, w.Year)
		})
	}
}

func TestWeekOfAcrossYearBoundary(t *testing.T) {
	// 2027 starts on a Friday, so Jan 1-3 2027 belong to the last
	// week of 2026.
	w := WeekOf(date(2027, time.January, 1))
	assert.Equal(t, 2026, w.Year)
	assert.Equal(t, date(2026, time.December, 28), w.Start)
	assert.True(t, w.Contains(date(2027, time.January, 3)))
	assert.False(t, w.Contains(date(2027, time.January, 4)))

	next := Next(w)
	assert.Equal(t, 2027, next.Year)
	assert.Equal(t, 1, next.WeekNumber)
	assert.Equal(t, date(2027, time.January, 4), next.Start)
}

func TestWeekOfMidWeek(t *testing.T) {
	w := WeekOf(time.Date(2025, time.March, 12, 15, 30, 0, 0, time.UTC))
	assert.Equal(t, date(2025, time.March, 10), w.Start)
	assert.Equal(t, 10, w.WeekNumber)
}

func TestWeeksInYear(t *testing.T) {
	// 2024 starts on a Monday and is a leap year, so Dec 30 starts a
	// 53rd week.
	assert.Equal(t, 53, WeeksInYear(2024))
	assert.Equal(t, 52, WeeksInYear(2025))
	// 2029-12-31 is a Monday, giving the year a 53rd week start.
	assert.Equal(t, 53, WeeksInYear(2029))
}

func TestWeeksInMonth(t *testing.T) {
	weeks := WeeksInMonth(2025, time.March)
	require.Len(t, weeks, 6)

	// Saturday March 1 falls in the trailing week of February.
	assert.Equal(t, date(2025, time.February, 24), weeks[0].Start)
	assert.Equal(t, date(2025, time.March, 31), weeks[5].Start)

	for i := 1; i < len(weeks); i++ {
		assert.True(t, weeks[i].Start.After(weeks[i-1].Start), "weeks must be ordered ascending")
	}
}

func TestWeeksInMonthLeapFebruary(t *testing.T) {
	weeks := WeeksInMonth(2024, time.February)
	require.NotEmpty(t, weeks)
	assert.True(t, weeks[0].Contains(date(2024, time.February, 1)))
	assert.True(t, weeks[len(weeks)-1].Contains(date(2024, time.February, 29)))
}

func TestPreviousAndCurrent(t *testing.T) {
	now := time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)
	cur := Current(now)
	assert.True(t, cur.Contains(now))

	prev := Previous(cur)
	assert.Equal(t, cur.Start.AddDate(0, 0, -7), prev.Start)
	assert.Equal(t, cur.WeekNumber-1, prev.WeekNumber)
}

func TestIsCompleted(t *testing.T) {
	w := Range(2025, 10)
	assert.False(t, w.IsCompleted(w.End))
	assert.True(t, w.IsCompleted(w.End.Add(time.Nanosecond)))
}
