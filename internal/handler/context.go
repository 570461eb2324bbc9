package handler

import (
	"github.com/gin-gonic/gin"

	"habitweb/config"
	"habitweb/internal/habit"
)

// Keys set by the auth middleware.
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
)

func currentUser(c *gin.Context) (int, string) {
	return c.GetInt(ContextUserID), c.GetString(ContextRole)
}

func palette(cfg config.UIConfig) habit.Palette {
	return habit.Palette{
		Skipped:            cfg.ColorSkipped,
		Completed:          cfg.ColorCompleted,
		Incomplete:         cfg.ColorIncomplete,
		LastWeekIncomplete: cfg.ColorLastWeekIncomplete,
	}
}
