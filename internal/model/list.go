package model

import "time"

type HabitList struct {
	ID                 int       `json:"id"`
	UserID             int       `json:"user_id"`
	Name               string    `json:"name"`
	Order              int       `json:"order"`
	EnableLetterFilter bool      `json:"enable_letter_filter"`
	Deleted            bool      `json:"deleted"`
	CreatedAt          time.Time `json:"created_at"`
}
