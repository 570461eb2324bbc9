package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitweb/config"
	"habitweb/internal/habit"
	"habitweb/internal/model"
	"habitweb/internal/service/tracker"
	"habitweb/internal/ui"
	"habitweb/internal/userstore"
	"habitweb/pkg/metrics"
)

const maxImportSize = 8 << 20

// PageHandler renders the signed-in pages and handles their forms.
type PageHandler struct {
	tracker *tracker.Service
	storage userstore.Store
	cfg     config.UIConfig
	logger  *zap.Logger
}

func NewPageHandler(tr *tracker.Service, storage userstore.Store, cfg config.UIConfig, logger *zap.Logger) *PageHandler {
	return &PageHandler{tracker: tr, storage: storage, cfg: cfg, logger: logger}
}

func (h *PageHandler) render(c *gin.Context, status int, tmpl string, data any) {
	metrics.IncrementPageRender(strings.TrimSuffix(tmpl, ".html"))
	c.HTML(status, tmpl, data)
}

func (h *PageHandler) fail(c *gin.Context, op string, err error) {
	h.logger.Error(op+": failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.String(http.StatusInternalServerError, "internal error")
}

func (h *PageHandler) redirect(c *gin.Context, elem ...string) {
	c.Redirect(http.StatusSeeOther, ui.Join(h.cfg.MountPath, elem...))
}

// selection resolves the list shown for this request.
func (h *PageHandler) selection(c *gin.Context, userID int) habit.Selection {
	stored, ok, err := h.storage.CurrentList(c.Request.Context(), userID)
	if err != nil {
		h.logger.Warn("Failed to read stored list selection", zap.Int("user_id", userID), zap.Error(err))
	}
	if err != nil || !ok {
		return ui.CurrentSelection(c.Query("list"), nil)
	}
	return ui.CurrentSelection(c.Query("list"), &stored)
}

func (h *PageHandler) layout(c *gin.Context, title string, lists []model.HabitList, sel habit.Selection) ui.Layout {
	_, role := currentUser(c)
	path := c.Request.URL.Path
	selector := ui.NewListSelector(lists, sel, h.cfg.MountPath, path)
	return ui.NewLayout(h.cfg, title, path, role, &selector)
}

func findList(lists []model.HabitList, sel habit.Selection) *model.HabitList {
	if sel.Kind != habit.InList {
		return nil
	}
	for i := range lists {
		if lists[i].ID == sel.ListID {
			return &lists[i]
		}
	}
	return nil
}

func (h *PageHandler) habitList(ctx context.Context, userID int, sel habit.Selection, lists []model.HabitList) (ui.HabitList, error) {
	all, err := h.tracker.Habits(ctx, userID)
	if err != nil {
		return ui.HabitList{}, err
	}
	habits := habit.Active(habit.FilterByList(all, sel))

	today := h.tracker.Today()
	days := habit.Days(today, h.cfg.IndexDays)
	stats, err := h.tracker.Cards(ctx, userID, habits, days, palette(h.cfg))
	if err != nil {
		return ui.HabitList{}, err
	}

	out := ui.HabitList{
		Selection: sel.Param(),
		Days:      ui.DayHeaders(days, today),
		Cards:     make([]ui.HabitCard, 0, len(stats)),
		Letters:   ui.NewLetterFilter(habits, sel, findList(lists, sel), h.cfg.EnableLetterFilter),
	}
	for _, st := range stats {
		out.Cards = append(out.Cards, ui.NewHabitCard(st, days, today, h.cfg))
	}
	return out, nil
}

func (h *PageHandler) Index(c *gin.Context) {
	userID, _ := currentUser(c)
	ctx := c.Request.Context()
	sel := h.selection(c, userID)

	lists, err := h.tracker.Lists(ctx, userID)
	if err != nil {
		h.fail(c, "Index", err)
		return
	}
	list, err := h.habitList(ctx, userID, sel, lists)
	if err != nil {
		h.fail(c, "Index", err)
		return
	}

	h.render(c, http.StatusOK, "index.html", ui.IndexPage{
		Layout:      h.layout(c, "", lists, sel),
		HabitList:   list,
		FragmentURL: ui.Join(h.cfg.MountPath, "fragments", "habits"),
	})
}

// HabitsFragment renders only the habit list, for live refreshes.
func (h *PageHandler) HabitsFragment(c *gin.Context) {
	userID, _ := currentUser(c)
	ctx := c.Request.Context()
	sel := h.selection(c, userID)

	lists, err := h.tracker.Lists(ctx, userID)
	if err != nil {
		h.fail(c, "HabitsFragment", err)
		return
	}
	list, err := h.habitList(ctx, userID, sel, lists)
	if err != nil {
		h.fail(c, "HabitsFragment", err)
		return
	}
	h.render(c, http.StatusOK, "habits.html", list)
}

func (h *PageHandler) Add(c *gin.Context) {
	userID, _ := currentUser(c)
	ctx := c.Request.Context()
	sel := h.selection(c, userID)

	lists, err := h.tracker.Lists(ctx, userID)
	if err != nil {
		h.fail(c, "Add", err)
		return
	}
	habits, err := h.tracker.Habits(ctx, userID)
	if err != nil {
		h.fail(c, "Add", err)
		return
	}

	filtered := habit.FilterByList(habits, sel)
	rows := make([]ui.AddRow, 0, len(filtered))
	for _, hb := range filtered {
		rows = append(rows, ui.AddRow{
			ID:       hb.ID,
			Name:     hb.Name,
			Star:     hb.Star,
			Archived: hb.Status == model.HabitArchived,
			Link:     ui.Join(h.cfg.MountPath, "habits", strconv.Itoa(hb.ID)),
		})
	}

	h.render(c, http.StatusOK, "add.html", ui.AddPage{
		Layout:      h.layout(c, "", lists, sel),
		Rows:        rows,
		Selection:   sel.Param(),
		FragmentURL: ui.Join(h.cfg.MountPath, "fragments", "habits"),
	})
}

func (h *PageHandler) Order(c *gin.Context) {
	userID, _ := currentUser(c)
	ctx := c.Request.Context()
	sel := h.selection(c, userID)

	lists, err := h.tracker.Lists(ctx, userID)
	if err != nil {
		h.fail(c, "Order", err)
		return
	}
	habits, err := h.tracker.Habits(ctx, userID)
	if err != nil {
		h.fail(c, "Order", err)
		return
	}

	h.render(c, http.StatusOK, "order.html", ui.OrderPage{
		Layout: h.layout(c, "", lists, sel),
		Habits: habit.FilterByList(habits, sel),
	})
}

func (h *PageHandler) SaveOrder(c *gin.Context) {
	userID, _ := currentUser(c)
	raw := c.PostFormArray("ids")
	ids := make([]int, 0, len(raw))
	for _, v := range raw {
		id, err := strconv.Atoi(v)
		if err != nil {
			h.logger.Warn("SaveOrder: invalid habit id", zap.String("habit_id", v))
			c.String(http.StatusBadRequest, "invalid habit id")
			return
		}
		ids = append(ids, id)
	}

	if err := h.tracker.Reorder(c.Request.Context(), userID, ids); err != nil {
		h.fail(c, "SaveOrder", err)
		return
	}
	h.logger.Info("SaveOrder: success", zap.Int("user_id", userID), zap.Int("habit_count", len(ids)))
	h.redirect(c, "order")
}

func (h *PageHandler) renderLists(c *gin.Context, status int, flash string) {
	userID, _ := currentUser(c)
	lists, err := h.tracker.Lists(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "Lists", err)
		return
	}
	layout := h.layout(c, "Lists", lists, habit.Selection{})
	if flash != "" {
		layout.Flash, layout.FlashColor = flash, "negative"
	}
	h.render(c, status, "lists.html", ui.ListsPage{Layout: layout, Lists: lists})
}

func (h *PageHandler) Lists(c *gin.Context) {
	h.renderLists(c, http.StatusOK, "")
}

func (h *PageHandler) CreateList(c *gin.Context) {
	userID, _ := currentUser(c)
	l, err := h.tracker.AddList(c.Request.Context(), userID, c.PostForm("name"))
	if err != nil {
		if errors.Is(err, tracker.ErrEmptyName) {
			h.renderLists(c, http.StatusBadRequest, "List name must not be empty")
			return
		}
		h.fail(c, "CreateList", err)
		return
	}
	h.logger.Info("CreateList: success", zap.Int("user_id", userID), zap.Int("list_id", l.ID))
	h.redirect(c, "lists")
}

func (h *PageHandler) listID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid list id")
		return 0, false
	}
	return id, true
}

func (h *PageHandler) UpdateList(c *gin.Context) {
	userID, _ := currentUser(c)
	id, ok := h.listID(c)
	if !ok {
		return
	}

	_, err := h.tracker.UpdateList(c.Request.Context(), userID, id, c.PostForm("name"), c.PostForm("enable_letter_filter") == "true")
	switch {
	case errors.Is(err, tracker.ErrEmptyName):
		h.renderLists(c, http.StatusBadRequest, "List name must not be empty")
		return
	case errors.Is(err, tracker.ErrListNotFound):
		c.String(http.StatusNotFound, "list not found")
		return
	case err != nil:
		h.fail(c, "UpdateList", err)
		return
	}
	h.redirect(c, "lists")
}

func (h *PageHandler) DeleteList(c *gin.Context) {
	userID, _ := currentUser(c)
	id, ok := h.listID(c)
	if !ok {
		return
	}

	err := h.tracker.DeleteList(c.Request.Context(), userID, id)
	switch {
	case errors.Is(err, tracker.ErrListNotFound):
		c.String(http.StatusNotFound, "list not found")
		return
	case err != nil:
		h.fail(c, "DeleteList", err)
		return
	}

	// A deleted list can no longer be the stored selection.
	if stored, ok, _ := h.storage.CurrentList(c.Request.Context(), userID); ok && stored.Kind == habit.InList && stored.ListID == id {
		if err := h.storage.SetCurrentList(c.Request.Context(), userID, habit.Selection{Kind: habit.AllHabits}); err != nil {
			h.logger.Warn("DeleteList: failed to reset stored selection", zap.Int("user_id", userID), zap.Error(err))
		}
	}
	h.logger.Info("DeleteList: success", zap.Int("user_id", userID), zap.Int("list_id", id))
	h.redirect(c, "lists")
}

var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func (h *PageHandler) renderHabit(c *gin.Context, status int, id int, flash string) {
	userID, _ := currentUser(c)
	ctx := c.Request.Context()

	today := h.tracker.Today()
	stats, err := h.tracker.CardFor(ctx, userID, id, habit.Days(today, h.cfg.IndexDays), palette(h.cfg))
	if errors.Is(err, tracker.ErrHabitNotFound) {
		c.String(http.StatusNotFound, "habit not found")
		return
	}
	if err != nil {
		h.fail(c, "Habit", err)
		return
	}
	lists, err := h.tracker.Lists(ctx, userID)
	if err != nil {
		h.fail(c, "Habit", err)
		return
	}

	current := habit.Selection{Kind: habit.NoList}
	if stats.Habit.ListID != nil {
		current = habit.ListSelection(*stats.Habit.ListID)
	}
	options := ui.NewListSelector(lists, current, h.cfg.MountPath, "").Options

	notes := make([]ui.NoteEntry, 0)
	for _, r := range stats.Records {
		if r.Text == "" {
			continue
		}
		notes = append(notes, ui.NoteEntry{Day: r.Day.Format(time.DateOnly), State: r.Done.String(), Text: r.Text})
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].Day > notes[j].Day })

	layout := h.layout(c, stats.Habit.Name, lists, h.selection(c, userID))
	if flash != "" {
		layout.Flash, layout.FlashColor = flash, "negative"
	}
	h.render(c, status, "habit.html", ui.HabitPage{
		Layout:    layout,
		Habit:     stats.Habit,
		Card:      ui.NewHabitCard(*stats, nil, today, h.cfg),
		Weeks:     ui.Calendar(*stats, today, h.cfg.CalendarWeeks, h.cfg),
		Weekdays:  weekdays,
		Lists:     options,
		Notes:     notes,
		ActionURL: ui.Join(h.cfg.MountPath, "habits", strconv.Itoa(id)),
	})
}

func (h *PageHandler) habitID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid habit id")
		return 0, false
	}
	return id, true
}

func (h *PageHandler) Habit(c *gin.Context) {
	id, ok := h.habitID(c)
	if !ok {
		return
	}
	h.renderHabit(c, http.StatusOK, id, "")
}

func (h *PageHandler) UpdateHabit(c *gin.Context) {
	userID, _ := currentUser(c)
	id, ok := h.habitID(c)
	if !ok {
		return
	}

	goal := 0
	if raw := strings.TrimSpace(c.PostForm("weekly_goal")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > 7 {
			h.renderHabit(c, http.StatusBadRequest, id, "Weekly goal must be between 0 and 7")
			return
		}
		goal = v
	}

	update := tracker.HabitUpdate{Name: c.PostForm("name"), WeeklyGoal: goal}
	if sel := habit.ParseSelection(c.PostForm("list")); sel.Kind == habit.InList {
		update.ListID = &sel.ListID
	}

	_, err := h.tracker.UpdateHabit(c.Request.Context(), userID, id, update)
	switch {
	case errors.Is(err, tracker.ErrEmptyName):
		h.renderHabit(c, http.StatusBadRequest, id, "Name must not be empty")
		return
	case errors.Is(err, tracker.ErrListNotFound):
		h.renderHabit(c, http.StatusBadRequest, id, "Unknown list")
		return
	case errors.Is(err, tracker.ErrHabitNotFound):
		c.String(http.StatusNotFound, "habit not found")
		return
	case err != nil:
		h.fail(c, "UpdateHabit", err)
		return
	}
	h.logger.Info("UpdateHabit: success", zap.Int("user_id", userID), zap.Int("habit_id", id))
	h.redirect(c, "habits", strconv.Itoa(id))
}

// Export downloads every habit, list and record as JSON.
func (h *PageHandler) Export(c *gin.Context) {
	userID, _ := currentUser(c)
	snap, err := h.tracker.Export(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Export: failed", zap.Int("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export habits"})
		return
	}

	name := fmt.Sprintf("habits-%s.json", h.tracker.Today().Format(time.DateOnly))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	h.logger.Info("Export: success", zap.Int("user_id", userID), zap.Int("habit_count", len(snap.Habits)))
	c.IndentedJSON(http.StatusOK, snap)
}

func (h *PageHandler) renderImport(c *gin.Context, status int, result *tracker.ImportResult, flash string) {
	userID, _ := currentUser(c)
	lists, err := h.tracker.Lists(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "Import", err)
		return
	}
	layout := h.layout(c, "Import", lists, h.selection(c, userID))
	if flash != "" {
		layout.Flash, layout.FlashColor = flash, "negative"
	}
	h.render(c, status, "import.html", ui.ImportPage{Layout: layout, Result: result})
}

func (h *PageHandler) ImportPage(c *gin.Context) {
	h.renderImport(c, http.StatusOK, nil, "")
}

func (h *PageHandler) Import(c *gin.Context) {
	userID, _ := currentUser(c)
	fh, err := c.FormFile("file")
	if err != nil {
		h.renderImport(c, http.StatusBadRequest, nil, "Choose a file to import")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, "Import", err)
		return
	}
	defer f.Close()

	var snap tracker.Snapshot
	if err := json.NewDecoder(io.LimitReader(f, maxImportSize)).Decode(&snap); err != nil {
		h.logger.Warn("Import: invalid file", zap.Int("user_id", userID), zap.Error(err))
		h.renderImport(c, http.StatusBadRequest, nil, "The file is not a valid export")
		return
	}

	res, err := h.tracker.Import(c.Request.Context(), userID, &snap)
	if err != nil {
		if errors.Is(err, tracker.ErrNoteTooLong) || errors.Is(err, tracker.ErrEmptyName) || errors.Is(err, tracker.ErrInvalidSnapshot) {
			h.logger.Warn("Import: rejected", zap.Int("user_id", userID), zap.Error(err))
			h.renderImport(c, http.StatusBadRequest, nil, "Import failed: "+err.Error())
			return
		}
		h.fail(c, "Import", err)
		return
	}
	h.logger.Info("Import: success",
		zap.Int("user_id", userID),
		zap.Int("habit_count", res.Habits),
		zap.Int("record_count", res.Records),
	)
	h.renderImport(c, http.StatusOK, res, "")
}
