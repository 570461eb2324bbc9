package model

import "time"

type HabitStatus string

const (
	HabitActive      HabitStatus = "active"
	HabitArchived    HabitStatus = "archived"
	HabitSoftDeleted HabitStatus = "soft_deleted"
)

type Habit struct {
	ID         int         `json:"id"`
	UserID     int         `json:"user_id"`
	ListID     *int        `json:"list_id,omitempty"`
	Name       string      `json:"name"`
	Order      int         `json:"order"`
	Star       bool        `json:"star"`
	Status     HabitStatus `json:"status"`
	WeeklyGoal int         `json:"weekly_goal"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Deleted reports whether the habit is soft deleted.
func (h Habit) Deleted() bool {
	return h.Status == HabitSoftDeleted
}

// InList reports whether the habit belongs to list id.
func (h Habit) InList(id int) bool {
	return h.ListID != nil && *h.ListID == id
}
