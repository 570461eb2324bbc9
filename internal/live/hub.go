package live

import (
	"sync"

	"habitweb/pkg/metrics"
)

// Hub tracks the open sessions of each user so one tab can refresh the others.
type Hub struct {
	mu       sync.RWMutex
	sessions map[int]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[int]map[*Session]struct{})}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[s.UserID]
	if !ok {
		set = make(map[*Session]struct{})
		h.sessions[s.UserID] = set
	}
	if _, dup := set[s]; !dup {
		set[s] = struct{}{}
		metrics.LiveSessions.Inc()
	}
}

func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[s.UserID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	metrics.LiveSessions.Dec()
	if len(set) == 0 {
		delete(h.sessions, s.UserID)
	}
}

// Broadcast sends cmd to every session of userID except one. Sessions
// that cannot keep up are closed by Send and dropped here.
func (h *Hub) Broadcast(userID int, cmd Command, except *Session) int {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions[userID]))
	for s := range h.sessions[userID] {
		if s != except {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	sent := 0
	for _, s := range targets {
		if err := s.Send(cmd); err != nil {
			h.Unregister(s)
			continue
		}
		sent++
	}
	return sent
}

// Count returns the number of open sessions of userID.
func (h *Hub) Count(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}
