package mq

// Routing keys published on the habits exchange.
const (
	RoutingHabitCreated  = "habit.created"
	RoutingHabitTicked   = "habit.ticked"
	RoutingHabitArchived = "habit.archived"
	RoutingHabitDeleted  = "habit.deleted"
	RoutingHabitImported = "habit.imported"

	// RoutingHabitAll binds every habit event.
	RoutingHabitAll = "habit.*"
)

type HabitCreatedPayload struct {
	UserID  int    `json:"user_id"`
	HabitID int    `json:"habit_id"`
	Name    string `json:"name"`
	ListID  *int   `json:"list_id,omitempty"`
}

type HabitTickedPayload struct {
	UserID  int    `json:"user_id"`
	HabitID int    `json:"habit_id"`
	Day     string `json:"day"`   // YYYY-MM-DD
	State   string `json:"state"` // checked / unchecked / skipped
	HasNote bool   `json:"has_note"`
}

type HabitStatusPayload struct {
	UserID  int    `json:"user_id"`
	HabitID int    `json:"habit_id"`
	Status  string `json:"status"`
}

type HabitImportedPayload struct {
	UserID int `json:"user_id"`
	Habits int `json:"habits"`
	Lists  int `json:"lists"`
}
