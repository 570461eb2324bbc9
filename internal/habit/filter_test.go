package habit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"habitweb/internal/model"
)

func intp(i int) *int { return &i }

func names(habits []model.Habit) []string {
	out := make([]string, 0, len(habits))
	for _, h := range habits {
		out = append(out, h.Name)
	}
	return out
}

func TestParseSelection(t *testing.T) {
	assert.Equal(t, Selection{Kind: AllHabits}, ParseSelection(""))
	assert.Equal(t, Selection{Kind: NoList}, ParseSelection("None"))
	assert.Equal(t, Selection{Kind: InList, ListID: 4}, ParseSelection(" 4 "))
	assert.Equal(t, Selection{Kind: AllHabits}, ParseSelection("abc"))
	assert.Equal(t, Selection{Kind: AllHabits}, ParseSelection("-2"))

	for _, raw := range []string{"", "None", "12"} {
		assert.Equal(t, raw, ParseSelection(raw).Param())
	}
}

func TestFilterByListPartitionsAndSorts(t *testing.T) {
	habits := []model.Habit{
		{Name: "c", Order: 3, ListID: intp(1), Status: model.HabitActive},
		{Name: "a", Order: 1, Status: model.HabitActive},
		{Name: "b", Order: 2, ListID: intp(1), Status: model.HabitActive},
		{Name: "gone", Order: 0, ListID: intp(1), Status: model.HabitSoftDeleted},
		{Name: "d", Order: 1, ListID: intp(2), Status: model.HabitArchived},
	}

	assert.Equal(t, []string{"b", "c"}, names(FilterByList(habits, ListSelection(1))))
	assert.Equal(t, []string{"a"}, names(FilterByList(habits, Selection{Kind: NoList})))
	assert.Equal(t, []string{"a", "d", "b", "c"}, names(FilterByList(habits, Selection{Kind: AllHabits})),
		"ties keep input order")
	assert.Empty(t, FilterByList(habits, ListSelection(99)))
}

func TestActive(t *testing.T) {
	habits := []model.Habit{
		{Name: "a", Status: model.HabitActive},
		{Name: "b", Status: model.HabitArchived},
	}
	assert.Equal(t, []string{"a"}, names(Active(habits)))
}

func TestAvailableLetters(t *testing.T) {
	habits := []model.Habit{{Name: "read"}, {Name: "Run"}, {Name: "écrire"}, {Name: " "}, {Name: "Bike"}}
	assert.Equal(t, []string{"B", "R", "É"}, AvailableLetters(habits))
}

func TestShouldShowLetterFilter(t *testing.T) {
	enabled := &model.HabitList{EnableLetterFilter: true}
	disabled := &model.HabitList{EnableLetterFilter: false}

	assert.False(t, ShouldShowLetterFilter(Selection{}, nil, false))
	assert.True(t, ShouldShowLetterFilter(Selection{Kind: AllHabits}, nil, true))
	assert.True(t, ShouldShowLetterFilter(Selection{Kind: NoList}, nil, true))
	assert.True(t, ShouldShowLetterFilter(ListSelection(1), enabled, true))
	assert.False(t, ShouldShowLetterFilter(ListSelection(1), disabled, true))
	assert.False(t, ShouldShowLetterFilter(ListSelection(1), nil, true))
	assert.False(t, ShouldShowLetterFilter(ListSelection(1), enabled, false))
}
