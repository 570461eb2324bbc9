package ui

import (
	"strconv"
	"time"

	"habitweb/config"
	"habitweb/internal/habit"
	"habitweb/internal/model"
	"habitweb/internal/service/tracker"
)

// HabitCard is one habit row on the index page.
type HabitCard struct {
	ID               int
	Name             string
	Order            int
	Starred          bool
	Priority         int
	WeeklyGoal       int
	WeekTicks        int
	LastWeekComplete bool
	Color            string
	Link             string
	GoalLabel        string
	ShowPriority     bool
	ShowCount        bool
	TotalTicks       int
	Archived         bool
	Checkboxes       []Checkbox
}

// StarredAttr is data-starred: 1 or 0.
func (c HabitCard) StarredAttr() int {
	if c.Starred {
		return 1
	}
	return 0
}

func NewHabitCard(stats tracker.CardStats, days []time.Time, today time.Time, cfg config.UIConfig) HabitCard {
	h := stats.Habit
	card := HabitCard{
		ID:               h.ID,
		Name:             h.Name,
		Order:            h.Order,
		Starred:          h.Star,
		Priority:         stats.Priority,
		WeeklyGoal:       h.WeeklyGoal,
		WeekTicks:        stats.WeekTicks,
		LastWeekComplete: stats.LastWeekComplete,
		Color:            stats.Color,
		Link:             Join(cfg.MountPath, "habits", strconv.Itoa(h.ID)),
		ShowPriority:     cfg.IndexShowPriority,
		ShowCount:        cfg.IndexShowHabitCount,
		TotalTicks:       stats.TotalTicks,
		Archived:         h.Status == model.HabitArchived,
		Checkboxes:       make([]Checkbox, 0, len(days)),
	}
	if h.WeeklyGoal > 0 {
		card.GoalLabel = strconv.Itoa(h.WeeklyGoal) + "x"
	}
	for _, d := range days {
		card.Checkboxes = append(card.Checkboxes, NewCheckbox(h.ID, d, today, stats.State(d), cfg.ColorDayNumber))
	}
	return card
}

// CalendarWeek is one Monday-Sunday row of the habit page calendar.
type CalendarWeek struct {
	Start time.Time
	Days  []Checkbox
}

// Calendar lays out weeks Monday-aligned weeks ending with the week of today.
// Days after today are disabled.
func Calendar(stats tracker.CardStats, today time.Time, weeks int, cfg config.UIConfig) []CalendarWeek {
	if weeks <= 0 {
		weeks = 1
	}
	start := habit.WeekStart(today).AddDate(0, 0, -7*(weeks-1))
	out := make([]CalendarWeek, 0, weeks)
	for w := 0; w < weeks; w++ {
		ws := start.AddDate(0, 0, 7*w)
		week := CalendarWeek{Start: ws, Days: make([]Checkbox, 0, 7)}
		for d := 0; d < 7; d++ {
			day := ws.AddDate(0, 0, d)
			week.Days = append(week.Days, NewCheckbox(stats.Habit.ID, day, today, stats.State(day), cfg.ColorDayNumber))
		}
		out = append(out, week)
	}
	return out
}
