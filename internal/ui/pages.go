package ui

import (
	"strings"
	"time"

	"habitweb/config"
	"habitweb/internal/model"
	"habitweb/internal/service/tracker"
)

// Layout is the frame shared by the signed-in pages.
type Layout struct {
	Head        Head
	Title       string
	Root        string
	Path        string
	Menu        []MenuItem
	Selector    *ListSelector
	AlignCenter bool
	Flash       string
	FlashColor  string
	LiveURL     string
}

// NewLayout builds the frame of the page at path. The list selector is
// omitted on the lists page.
func NewLayout(cfg config.UIConfig, title, path, role string, selector *ListSelector) Layout {
	if title == "" {
		title = cfg.PageTitle
	}
	l := Layout{
		Head:        NewHead(cfg, title),
		Title:       title,
		Root:        Join(cfg.MountPath),
		Path:        path,
		Menu:        Menu(cfg.MountPath, path, role),
		AlignCenter: cfg.EnableDesktopAlignCenter,
		LiveURL:     Join(cfg.MountPath, "ws"),
	}
	if selector != nil && !isListsPath(path) {
		l.Selector = selector
	}
	return l
}

func isListsPath(path string) bool {
	return strings.HasSuffix(path, "/lists")
}

// DayHeader labels one checkbox column.
type DayHeader struct {
	Weekday string
	Day     int
	Today   bool
}

func DayHeaders(days []time.Time, today time.Time) []DayHeader {
	out := make([]DayHeader, 0, len(days))
	for _, d := range days {
		out = append(out, DayHeader{
			Weekday: d.Weekday().String()[:3],
			Day:     d.Day(),
			Today:   d.Equal(today),
		})
	}
	return out
}

// HabitList is the refreshable part of the index page.
type HabitList struct {
	Selection string
	Days      []DayHeader
	Cards     []HabitCard
	Letters   LetterFilter
}

type IndexPage struct {
	Layout
	HabitList
	FragmentURL string
}

// AddRow is one habit on the configure page.
type AddRow struct {
	ID       int
	Name     string
	Star     bool
	Archived bool
	Link     string
}

type AddPage struct {
	Layout
	Rows        []AddRow
	Selection   string
	FragmentURL string
}

type OrderPage struct {
	Layout
	Habits []model.Habit
}

type ListsPage struct {
	Layout
	Lists []model.HabitList
}

// NoteEntry is a day with a note on the habit page.
type NoteEntry struct {
	Day   string
	State string
	Text  string
}

type HabitPage struct {
	Layout
	Habit     model.Habit
	Card      HabitCard
	Weeks     []CalendarWeek
	Weekdays  []string
	Lists     []ListOption
	Notes     []NoteEntry
	ActionURL string
}

type ImportPage struct {
	Layout
	Result *tracker.ImportResult
}

// AuthPage is the login or register form.
type AuthPage struct {
	Head     Head
	Title    string
	Register bool
	Email    string
	Error    string
	Demo     bool
}
