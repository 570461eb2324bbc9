package live

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

type eventOwner struct {
	UserID int `json:"user_id"`
}

// RemoteRefresher returns a message handler that refreshes the habit lists
// of a user's sessions on this process when another process changed their
// habits. Malformed messages are dropped.
func RemoteRefresher(hub *Hub, logger *zap.Logger) func(ctx context.Context, data json.RawMessage) error {
	return func(_ context.Context, data json.RawMessage) error {
		var owner eventOwner
		if err := json.Unmarshal(data, &owner); err != nil || owner.UserID == 0 {
			logger.Warn("Dropping habit event without owner", zap.Int("message_size", len(data)))
			return nil
		}
		if n := hub.Broadcast(owner.UserID, Refresh(TargetHabits), nil); n > 0 {
			logger.Debug("Refreshed sessions after remote change",
				zap.Int("user_id", owner.UserID),
				zap.Int("sessions", n),
			)
		}
		return nil
	}
}
