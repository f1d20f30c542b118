// Package calendar implements the Monday-to-Sunday week arithmetic that
// anchors loan delinquency windows and periodic reports. Week 1 of a year
// starts at the first Monday on or after January 1.
package calendar

import "time"

// WeekRange is a closed reporting window. Start is Monday 00:00:00 and End
// is Sunday 23:59:59.999999999 in UTC.
type WeekRange struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	WeekNumber int       `json:"week_number"`
	Year       int       `json:"year"`
}

// Contains reports whether t falls inside the week window.
func (w WeekRange) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// IsCompleted reports whether wall-clock time has passed the week's end.
func (w WeekRange) IsCompleted(now time.Time) bool {
	return now.After(w.End)
}

// firstMonday returns the first Monday on or after January 1 of year.
func firstMonday(year int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(jan1.Weekday()) + 7) % 7
	return jan1.AddDate(0, 0, offset)
}

func weekAt(year, weekNumber int, start time.Time) WeekRange {
	return WeekRange{
		Start:      start,
		End:        start.AddDate(0, 0, 7).Add(-time.Nanosecond),
		WeekNumber: weekNumber,
		Year:       year,
	}
}

// Range returns the window for the given week number of a year. Week numbers
// outside the year roll over arithmetically, so Range(2025, 53) is the same
// window as Range(2026, 1) when 2025 has 52 weeks.
func Range(year, weekNumber int) WeekRange {
	start := firstMonday(year).AddDate(0, 0, (weekNumber-1)*7)
	return weekAt(year, weekNumber, start)
}

// WeekOf returns the week containing t. Days before the year's first Monday
// belong to the last week of the previous year.
func WeekOf(t time.Time) WeekRange {
	t = t.UTC()
	year := t.Year()
	anchor := firstMonday(year)
	if t.Before(anchor) {
		year--
		anchor = firstMonday(year)
	}
	days := int(t.Sub(anchor).Hours() / 24)
	weekNumber := days/7 + 1
	return Range(year, weekNumber)
}

// WeeksInYear returns how many whole weeks start within the year, counted
// from the year's first Monday up to the next year's first Monday.
func WeeksInYear(year int) int {
	span := firstMonday(year + 1).Sub(firstMonday(year))
	return int(span.Hours() / 24 / 7)
}

// WeeksInMonth returns the distinct weeks whose window intersects any day of
// the month, ordered ascending.
func WeeksInMonth(year int, month time.Month) []WeekRange {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)

	weeks := make([]WeekRange, 0, 6)
	w := WeekOf(monthStart)
	for !w.Start.After(monthEnd) {
		if !w.End.Before(monthStart) {
			weeks = append(weeks, w)
		}
		w = Next(w)
	}
	return weeks
}

// Previous returns the week immediately before w.
func Previous(w WeekRange) WeekRange {
	return WeekOf(w.Start.AddDate(0, 0, -7))
}

// Next returns the week immediately after w.
func Next(w WeekRange) WeekRange {
	return WeekOf(w.Start.AddDate(0, 0, 7))
}

// Current returns the week containing now.
func Current(now time.Time) WeekRange {
	return WeekOf(now)
}
