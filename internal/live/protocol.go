// Package live is the server side of the browser's websocket channel:
// commands pushed to the page, events coming back, dialogs and the
// checkbox press gesture.
package live

import (
	"encoding/json"
	"fmt"
)

// Command types, server to browser.
const (
	CmdCall     = "call"
	CmdNotify   = "notify"
	CmdDialog   = "dialog"
	CmdCheckbox = "checkbox"
	CmdRefresh  = "refresh"
	CmdNavigate = "navigate"
)

// Event types, browser to server.
const (
	EvPointerDown  = "pointerdown"
	EvPointerUp    = "pointerup"
	EvPointerMove  = "pointermove"
	EvDialogResult = "dialog.result"
	EvStar         = "star"
	EvHabitAdd     = "habit.add"
	EvHabitRemove  = "habit.remove"
	EvHabitRestore = "habit.restore"
	EvListSelect   = "list.select"
)

// Notification colours understood by the page.
const (
	ColorPositive = "positive"
	ColorNegative = "negative"
	ColorInfo     = "info"
)

// Dialog kinds rendered by live.js.
const (
	DialogNote    = "note"
	DialogConfirm = "confirm"
)

// Refresh targets.
const (
	TargetHabits = "habits"
)

type Command struct {
	Type string `json:"type"`

	Fn   string `json:"fn,omitempty"`
	Args []any  `json:"args,omitempty"`

	Message string `json:"message,omitempty"`
	Color   string `json:"color,omitempty"`

	DialogID string `json:"dialog_id,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Payload  any    `json:"payload,omitempty"`

	HabitID int    `json:"habit_id,omitempty"`
	Day     string `json:"day,omitempty"`
	State   string `json:"state,omitempty"`

	Target string `json:"target,omitempty"`

	URL    string `json:"url,omitempty"`
	NewTab bool   `json:"new_tab,omitempty"`
}

type Event struct {
	Type     string          `json:"type"`
	HabitID  int             `json:"habit_id,omitempty"`
	Day      string          `json:"day,omitempty"`
	DialogID string          `json:"dialog_id,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
	Name     string          `json:"name,omitempty"`
	List     string          `json:"list,omitempty"`
	// Path is the page the event came from.
	Path string `json:"path,omitempty"`
}

// Bool decodes Value as a boolean.
func (e Event) Bool() (bool, error) {
	var v bool
	if err := json.Unmarshal(e.Value, &v); err != nil {
		return false, fmt.Errorf("event %s: %w", e.Type, err)
	}
	return v, nil
}

func Call(fn string, args ...any) Command {
	return Command{Type: CmdCall, Fn: fn, Args: args}
}

func Notify(message, color string) Command {
	return Command{Type: CmdNotify, Message: message, Color: color}
}

func Checkbox(habitID int, day, state string) Command {
	return Command{Type: CmdCheckbox, HabitID: habitID, Day: day, State: state}
}

func Refresh(target string) Command {
	return Command{Type: CmdRefresh, Target: target}
}

func Navigate(url string, newTab bool) Command {
	return Command{Type: CmdNavigate, URL: url, NewTab: newTab}
}

func gestureKey(habitID int, day string) string {
	return fmt.Sprintf("%d/%s", habitID, day)
}
