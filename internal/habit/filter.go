package habit

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"habitweb/internal/model"
)

type SelectionKind int

const (
	AllHabits SelectionKind = iota
	NoList
	InList
)

// NoListParam is the query value selecting habits without a list.
const NoListParam = "None"

// Selection is the list filter chosen in the list selector or URL.
type Selection struct {
	Kind   SelectionKind
	ListID int
}

// ParseSelection reads a ?list= value. Empty or malformed values select all habits.
func ParseSelection(raw string) Selection {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return Selection{Kind: AllHabits}
	case NoListParam:
		return Selection{Kind: NoList}
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return Selection{Kind: AllHabits}
	}
	return Selection{Kind: InList, ListID: id}
}

// ListSelection selects a single list.
func ListSelection(id int) Selection {
	return Selection{Kind: InList, ListID: id}
}

// Param is the inverse of ParseSelection.
func (s Selection) Param() string {
	switch s.Kind {
	case NoList:
		return NoListParam
	case InList:
		return strconv.Itoa(s.ListID)
	}
	return ""
}

// FilterByList keeps the non-deleted habits matching sel, sorted by order.
func FilterByList(habits []model.Habit, sel Selection) []model.Habit {
	out := make([]model.Habit, 0, len(habits))
	for _, h := range habits {
		if h.Deleted() {
			continue
		}
		switch sel.Kind {
		case NoList:
			if h.ListID == nil {
				out = append(out, h)
			}
		case InList:
			if h.InList(sel.ListID) {
				out = append(out, h)
			}
		default:
			out = append(out, h)
		}
	}
	SortByOrder(out)
	return out
}

// SortByOrder sorts habits by ascending order, keeping ties stable.
func SortByOrder(habits []model.Habit) {
	sort.SliceStable(habits, func(i, j int) bool {
		return habits[i].Order < habits[j].Order
	})
}

// Active keeps habits with status active.
func Active(habits []model.Habit) []model.Habit {
	out := make([]model.Habit, 0, len(habits))
	for _, h := range habits {
		if h.Status == model.HabitActive {
			out = append(out, h)
		}
	}
	return out
}

// AvailableLetters returns the sorted distinct upper-cased first letters of habit names.
func AvailableLetters(habits []model.Habit) []string {
	seen := make(map[string]struct{})
	for _, h := range habits {
		r, _ := utf8.DecodeRuneInString(strings.TrimSpace(h.Name))
		if r == utf8.RuneError {
			continue
		}
		seen[string(unicode.ToUpper(r))] = struct{}{}
	}
	letters := make([]string, 0, len(seen))
	for l := range seen {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	return letters
}

// ShouldShowLetterFilter applies the global switch, then the list's own switch.
// A selected list that could not be loaded hides the filter.
func ShouldShowLetterFilter(sel Selection, list *model.HabitList, global bool) bool {
	if !global {
		return false
	}
	switch sel.Kind {
	case AllHabits, NoList:
		return true
	case InList:
		if list == nil {
			return false
		}
		return list.EnableLetterFilter
	}
	return false
}
