package ui

import (
	"strconv"
	"strings"

	"habitweb/internal/habit"
	"habitweb/internal/model"
)

const NoListLabel = "No List"

type ListOption struct {
	Label    string
	Value    string
	Selected bool
}

// ListSelector is the list drop-down in the header.
type ListSelector struct {
	Options []ListOption
	// OnAddPage keeps the browser on the page and rewrites the query string.
	OnAddPage bool
	Root      string
	AddHref   string
}

// CurrentSelection picks the list shown: the URL parameter when present,
// then the stored choice, then every habit.
func CurrentSelection(urlParam string, stored *habit.Selection) habit.Selection {
	if strings.TrimSpace(urlParam) != "" {
		return habit.ParseSelection(urlParam)
	}
	if stored != nil {
		return *stored
	}
	return habit.Selection{Kind: habit.AllHabits}
}

// NewListSelector builds the options with "No List" first. A selection that
// names no known list falls back to "No List".
func NewListSelector(lists []model.HabitList, current habit.Selection, root, path string) ListSelector {
	s := ListSelector{
		Options:   make([]ListOption, 0, len(lists)+1),
		OnAddPage: strings.HasSuffix(path, "/add"),
		Root:      Join(root),
		AddHref:   Join(root, "lists"),
	}

	matched := false
	for _, l := range lists {
		selected := current.Kind == habit.InList && current.ListID == l.ID
		matched = matched || selected
		s.Options = append(s.Options, ListOption{
			Label:    l.Name,
			Value:    strconv.Itoa(l.ID),
			Selected: selected,
		})
	}

	s.Options = append([]ListOption{{
		Label:    NoListLabel,
		Value:    habit.NoListParam,
		Selected: !matched,
	}}, s.Options...)
	return s
}

type LetterFilter struct {
	Show    bool
	Letters []string
}

// NewLetterFilter lists the first letters of habits when the filter applies.
func NewLetterFilter(habits []model.Habit, sel habit.Selection, list *model.HabitList, global bool) LetterFilter {
	if !habit.ShouldShowLetterFilter(sel, list, global) {
		return LetterFilter{}
	}
	return LetterFilter{Show: true, Letters: habit.AvailableLetters(habits)}
}
