package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"habitweb/config"
	"habitweb/internal/habit"
	"habitweb/internal/live"
	"habitweb/internal/model"
	"habitweb/internal/service/tracker"
	"habitweb/internal/ui"
	"habitweb/internal/userstore"
)

// LiveHandler serves the websocket behind every page and reacts to its events.
type LiveHandler struct {
	tracker *tracker.Service
	storage userstore.Store
	hub     *live.Hub
	cfg     config.UIConfig
	logger  *zap.Logger
}

func NewLiveHandler(tr *tracker.Service, storage userstore.Store, hub *live.Hub, cfg config.UIConfig, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{tracker: tr, storage: storage, hub: hub, cfg: cfg, logger: logger}
}

// Serve upgrades the request and runs the session until the page goes away.
func (h *LiveHandler) Serve(c *gin.Context) {
	userID, role := currentUser(c)
	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Live: websocket upgrade failed", zap.Int("user_id", userID), zap.Error(err))
		return
	}

	s := live.NewSession(conn, userID, role, h, h.logger)
	h.hub.Register(s)
	defer h.hub.Unregister(s)

	s.Logger().Debug("Live session started")
	if err := s.Run(c.Request.Context()); err != nil {
		s.Logger().Debug("Live session ended", zap.Error(err))
	}
}

func (h *LiveHandler) HandleEvent(ctx context.Context, s *live.Session, ev live.Event) {
	switch ev.Type {
	case live.EvPointerDown:
		h.press(ctx, s, ev)
	case live.EvStar:
		h.star(ctx, s, ev)
	case live.EvHabitAdd:
		h.add(ctx, s, ev)
	case live.EvHabitRemove:
		h.remove(ctx, s, ev)
	case live.EvHabitRestore:
		h.restore(ctx, s, ev)
	case live.EvListSelect:
		h.selectList(ctx, s, ev)
	default:
		s.Logger().Debug("Ignoring unknown live event", zap.String("type", ev.Type))
	}
}

// press resolves a checkbox gesture: a tap cycles the state, a hold opens
// the note dialog (or checks the day when notes are off), a drag does nothing.
func (h *LiveHandler) press(ctx context.Context, s *live.Session, ev live.Event) {
	outcome := s.WaitPress(ctx, ev.HabitID, ev.Day, h.cfg.HoldDelay)

	day, err := time.Parse(time.DateOnly, ev.Day)
	if err != nil {
		s.Logger().Debug("Ignoring press with bad day", zap.String("day", ev.Day))
		return
	}
	if day.After(h.tracker.Today()) {
		return
	}

	req := tracker.TickRequest{HabitID: ev.HabitID, Day: day}
	switch outcome {
	case live.Tap:
		rec, err := h.tracker.RecordBy(ctx, s.UserID, ev.HabitID, day)
		if err != nil {
			h.fail(s, err)
			return
		}
		req.State = habit.NextTapState(rec)
		req.Source = "tap"
	case live.LongPress:
		if !h.cfg.EnableHabitNotes {
			req.State = model.Checked
			req.Source = "check"
			break
		}
		ok, err := h.noteDialog(ctx, s, &req)
		if err != nil {
			h.fail(s, err)
			return
		}
		if !ok {
			return
		}
	default:
		return
	}

	res, err := h.tracker.Tick(ctx, s.UserID, req)
	if err != nil {
		h.fail(s, err)
		return
	}
	h.afterTick(ctx, s, ev.HabitID, ev.Day, res)
}

type noteResult struct {
	Yes  bool   `json:"yes"`
	Text string `json:"text"`
}

// noteDialog asks for a note prefilled with the stored one. It reports false
// when the dialog was dismissed.
func (h *LiveHandler) noteDialog(ctx context.Context, s *live.Session, req *tracker.TickRequest) (bool, error) {
	rec, err := h.tracker.RecordBy(ctx, s.UserID, req.HabitID, req.Day)
	if err != nil {
		return false, err
	}
	text := ""
	if rec != nil {
		text = rec.Text
	}

	raw, err := s.Ask(ctx, live.DialogNote, map[string]string{"text": text})
	if err != nil || raw == nil {
		return false, err
	}
	var res noteResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return false, err
	}

	req.State = model.Unchecked
	if res.Yes {
		req.State = model.Checked
	}
	req.Note = &res.Text
	req.Source = "note"
	return true, nil
}

func (h *LiveHandler) afterTick(ctx context.Context, s *live.Session, habitID int, day string, res *tracker.TickResult) {
	state := model.Unchecked
	if res.Record != nil {
		state = res.Record.Done
	}
	cmd := live.Checkbox(habitID, day, state.String())
	_ = s.Send(cmd)

	today := h.tracker.Today()
	stats, err := h.tracker.CardFor(ctx, s.UserID, habitID, habit.Days(today, h.cfg.IndexDays), palette(h.cfg))
	if err != nil {
		h.fail(s, err)
		return
	}
	_ = s.Call("updateHabitAttributes", habitID, stats.Habit.WeeklyGoal, stats.WeekTicks, stats.SkippedToday, stats.LastWeekComplete)
	_ = s.Call("scrollToHabit", habitID)

	if res.Changed {
		h.hub.Broadcast(s.UserID, cmd, s)
		h.hub.Broadcast(s.UserID, live.Refresh(live.TargetHabits), s)
	}
}

func (h *LiveHandler) star(ctx context.Context, s *live.Session, ev live.Event) {
	star, err := ev.Bool()
	if err != nil {
		s.Logger().Debug("Ignoring star without value", zap.Error(err))
		return
	}
	if _, err := h.tracker.ToggleStar(ctx, s.UserID, ev.HabitID, star); err != nil {
		h.fail(s, err)
		return
	}
	h.refresh(s)
	_ = s.Call("scrollToHabit", ev.HabitID)
}

func (h *LiveHandler) remove(ctx context.Context, s *live.Session, ev live.Event) {
	hb, err := h.tracker.Habit(ctx, s.UserID, ev.HabitID)
	if err != nil {
		h.fail(s, err)
		return
	}
	if hb.Status == model.HabitArchived {
		raw, err := s.Ask(ctx, live.DialogConfirm, map[string]string{"message": "Delete " + hb.Name + "?"})
		if err != nil {
			h.fail(s, err)
			return
		}
		var yes bool
		if raw == nil || json.Unmarshal(raw, &yes) != nil || !yes {
			return
		}
	}

	status, err := h.tracker.Remove(ctx, s.UserID, ev.HabitID)
	if err != nil {
		h.fail(s, err)
		return
	}
	if status == model.HabitArchived {
		_ = s.Notify("Archived "+hb.Name, live.ColorPositive)
	} else {
		_ = s.Notify("Deleted "+hb.Name, live.ColorPositive)
	}
	h.refresh(s)
}

func (h *LiveHandler) restore(ctx context.Context, s *live.Session, ev live.Event) {
	hb, err := h.tracker.Habit(ctx, s.UserID, ev.HabitID)
	if err != nil {
		h.fail(s, err)
		return
	}
	if err := h.tracker.Restore(ctx, s.UserID, ev.HabitID); err != nil {
		h.fail(s, err)
		return
	}
	_ = s.Notify("Restored "+hb.Name, live.ColorPositive)
	h.refresh(s)
}

func (h *LiveHandler) add(ctx context.Context, s *live.Session, ev live.Event) {
	name := strings.TrimSpace(ev.Name)
	if name == "" {
		return
	}

	var listID *int
	if sel := h.currentSelection(ctx, s, ev.List); sel.Kind == habit.InList {
		listID = &sel.ListID
	}
	hb, err := h.tracker.AddHabit(ctx, s.UserID, name, listID)
	if err != nil {
		h.fail(s, err)
		return
	}
	h.refresh(s)
	_ = s.Call("scrollToHabit", hb.ID)
}

func (h *LiveHandler) currentSelection(ctx context.Context, s *live.Session, param string) habit.Selection {
	stored, ok, err := h.storage.CurrentList(ctx, s.UserID)
	if err != nil {
		s.Logger().Warn("Failed to read stored list selection", zap.Error(err))
	}
	if err != nil || !ok {
		return ui.CurrentSelection(param, nil)
	}
	return ui.CurrentSelection(param, &stored)
}

// selectList stores the choice. The add page keeps the browser where it
// is and rewrites the query; other pages navigate to the list.
func (h *LiveHandler) selectList(ctx context.Context, s *live.Session, ev live.Event) {
	sel := habit.ParseSelection(ev.List)
	if err := h.storage.SetCurrentList(ctx, s.UserID, sel); err != nil {
		h.fail(s, err)
		return
	}

	if strings.HasSuffix(ev.Path, "/add") {
		_ = s.Call("setListParam", sel.Param())
		_ = s.Send(live.Refresh(live.TargetHabits))
		return
	}
	_ = s.Send(live.Navigate(ui.Join(h.cfg.MountPath)+"?list="+sel.Param(), false))
}

// refresh reloads the habit list here and in the user's other tabs.
func (h *LiveHandler) refresh(s *live.Session) {
	cmd := live.Refresh(live.TargetHabits)
	_ = s.Send(cmd)
	h.hub.Broadcast(s.UserID, cmd, s)
}

// fail reports err as a toast. Domain errors never end the session.
func (h *LiveHandler) fail(s *live.Session, err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, live.ErrSessionClosed):
		return
	case errors.Is(err, tracker.ErrNoteTooLong):
		_ = s.Notify("Note is too long", live.ColorNegative)
	case errors.Is(err, tracker.ErrRateLimited):
		_ = s.Notify("Too many changes, slow down", live.ColorNegative)
	case errors.Is(err, tracker.ErrHabitNotFound):
		_ = s.Notify("Habit not found", live.ColorNegative)
	case errors.Is(err, tracker.ErrListNotFound):
		_ = s.Notify("List not found", live.ColorNegative)
	case errors.Is(err, tracker.ErrEmptyName):
		_ = s.Notify("Name must not be empty", live.ColorNegative)
	default:
		s.Logger().Error("Live event failed", zap.Error(err))
		_ = s.Notify("Something went wrong", live.ColorNegative)
	}
}
