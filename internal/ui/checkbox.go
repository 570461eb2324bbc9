package ui

import (
	"fmt"
	"html/template"
	"strconv"
	"time"

	"habitweb/internal/habit"
	"habitweb/internal/model"
)

const (
	todayColor      = "chartreuse"
	squareFillColor = "rgb(54,54,54)"
)

// SquareIcon is the unchecked box with the day number inside.
func SquareIcon(fill, text, textColor string) template.HTML {
	return template.HTML(fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" width="24" height="24">`+
			`<rect x="2" y="2" width="20" height="20" rx="3" fill="%s"/>`+
			`<text x="12" y="16" text-anchor="middle" font-size="11" fill="%s">%s</text></svg>`,
		template.HTMLEscapeString(fill),
		template.HTMLEscapeString(textColor),
		template.HTMLEscapeString(text),
	))
}

// DoneIcon is the checked mark.
const DoneIcon template.HTML = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" width="24" height="24">` +
	`<path fill="currentColor" d="M9 16.2 4.8 12l-1.4 1.4L9 19 21 7l-1.4-1.4z"/></svg>`

// CloseIcon marks a skipped day.
const CloseIcon template.HTML = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" width="24" height="24">` +
	`<path fill="currentColor" d="M19 6.4 17.6 5 12 10.6 6.4 5 5 6.4 10.6 12 5 17.6 6.4 19 12 13.4 17.6 19 19 17.6 13.4 12z"/></svg>`

// Checkbox is one day of one habit.
type Checkbox struct {
	HabitID   int
	Day       string
	DayNumber int
	State     string
	Today     bool
	Disabled  bool
	Icon      template.HTML
	// Class is the colour class: checked boxes use the current colour, the rest grey.
	Class string
}

// NewCheckbox renders the state of day. dayNumberColor colours the number
// on days other than today.
func NewCheckbox(habitID int, day, today time.Time, state model.TickState, dayNumberColor string) Checkbox {
	day = habit.Date(day)
	today = habit.Date(today)
	isToday := day.Equal(today)

	cb := Checkbox{
		HabitID:   habitID,
		Day:       day.Format(time.DateOnly),
		DayNumber: day.Day(),
		State:     state.String(),
		Today:     isToday,
		Disabled:  day.After(today),
	}

	switch state {
	case model.Checked:
		cb.Icon = DoneIcon
		cb.Class = "checkbox-checked"
	case model.Skipped:
		cb.Icon = CloseIcon
		cb.Class = "checkbox-muted"
	default:
		textColor := dayNumberColor
		if isToday {
			textColor = todayColor
		}
		cb.Icon = SquareIcon(squareFillColor, strconv.Itoa(day.Day()), textColor)
		cb.Class = "checkbox-muted"
	}
	return cb
}
