// Package habit holds the pure calculations behind the habit views:
// weekly tick windows, last-week completion, priority, card colour,
// list filtering and the checkbox tap cycle.
package habit

import (
	"time"

	"habitweb/internal/model"
)

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday of the week containing day.
func WeekStart(day time.Time) time.Time {
	day = Date(day)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// Days returns the n days ending at today, oldest first.
func Days(today time.Time, n int) []time.Time {
	today = Date(today)
	days := make([]time.Time, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, today.AddDate(0, 0, -i))
	}
	return days
}

func inRange(day, start, end time.Time) bool {
	day = Date(day)
	return !day.Before(start) && !day.After(end)
}

func countDone(records []model.CheckedRecord, start, end time.Time) int {
	n := 0
	for _, r := range records {
		if r.Done == model.Checked && inRange(r.Day, start, end) {
			n++
		}
	}
	return n
}

// WeekTicks counts checked records in the Monday-Sunday week of today,
// and over all time.
func WeekTicks(records []model.CheckedRecord, today time.Time) (week, total int) {
	start := WeekStart(today)
	week = countDone(records, start, start.AddDate(0, 0, 6))
	for _, r := range records {
		if r.Done == model.Checked {
			total++
		}
	}
	return week, total
}

// LastWeekStart returns the Monday one week before today's week.
func LastWeekStart(today time.Time) time.Time {
	return WeekStart(today).AddDate(0, 0, -7)
}

// ShouldCheckLastWeek is false for habits created after last week began.
func ShouldCheckLastWeek(createdAt, today time.Time) bool {
	return !Date(createdAt).After(LastWeekStart(today))
}

// LastWeekCompletion reports whether last week's ticks reached the weekly goal.
// Habits too new to have a full last week count as complete.
func LastWeekCompletion(h model.Habit, records []model.CheckedRecord, today time.Time) bool {
	if !ShouldCheckLastWeek(h.CreatedAt, today) {
		return true
	}
	start := LastWeekStart(today)
	return countDone(records, start, start.AddDate(0, 0, 6)) >= h.WeeklyGoal
}

// Priority is 1 when the ticks inside days reach the weekly goal, else 0.
func Priority(h model.Habit, records []model.CheckedRecord, days []time.Time) int {
	shown := make(map[time.Time]struct{}, len(days))
	for _, d := range days {
		shown[Date(d)] = struct{}{}
	}
	ticks := 0
	for _, r := range records {
		if _, ok := shown[Date(r.Day)]; ok && r.Done == model.Checked {
			ticks++
		}
	}
	if ticks >= h.WeeklyGoal {
		return 1
	}
	return 0
}

// RecordBy returns the record for day, or nil.
func RecordBy(records []model.CheckedRecord, day time.Time) *model.CheckedRecord {
	day = Date(day)
	for i := range records {
		if Date(records[i].Day).Equal(day) {
			return &records[i]
		}
	}
	return nil
}

// StateOn returns the state stored for day; a missing record is Unchecked.
func StateOn(records []model.CheckedRecord, day time.Time) model.TickState {
	if r := RecordBy(records, day); r != nil {
		return r.Done
	}
	return model.Unchecked
}
