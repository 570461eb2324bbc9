package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// TickState is the per-day state of a habit.
// Stored as a nullable boolean: true checked, false unchecked, NULL skipped.
type TickState int8

const (
	Unchecked TickState = iota
	Checked
	Skipped
)

func (s TickState) String() string {
	switch s {
	case Checked:
		return "checked"
	case Skipped:
		return "skipped"
	default:
		return "unchecked"
	}
}

// ParseTickState is the inverse of String.
func ParseTickState(s string) (TickState, error) {
	switch s {
	case "checked":
		return Checked, nil
	case "skipped":
		return Skipped, nil
	case "unchecked":
		return Unchecked, nil
	}
	return Unchecked, fmt.Errorf("unknown tick state %q", s)
}

// Done converts the state to its column value.
func (s TickState) Done() *bool {
	switch s {
	case Checked:
		v := true
		return &v
	case Unchecked:
		v := false
		return &v
	}
	return nil
}

// TickStateFromDone converts a column value to a state.
func TickStateFromDone(done *bool) TickState {
	switch {
	case done == nil:
		return Skipped
	case *done:
		return Checked
	default:
		return Unchecked
	}
}

func (s TickState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *TickState) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := ParseTickState(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type CheckedRecord struct {
	ID        int       `json:"id"`
	HabitID   int       `json:"habit_id"`
	Day       time.Time `json:"day"`
	Done      TickState `json:"done"`
	Text      string    `json:"text,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
