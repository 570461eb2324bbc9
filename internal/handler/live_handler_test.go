package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"habitweb/config"
	"habitweb/internal/habit"
	"habitweb/internal/live"
	"habitweb/internal/model"
	"habitweb/internal/repository/memory"
	"habitweb/internal/service/tracker"
	"habitweb/internal/userstore"
	"habitweb/pkg/rbac"
)

type pipeConn struct {
	in     chan []byte
	mu     sync.Mutex
	out    []live.Command
	closed chan struct{}
	once   sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (p *pipeConn) Write(_ context.Context, _ websocket.MessageType, data []byte) error {
	var cmd live.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return err
	}
	p.mu.Lock()
	p.out = append(p.out, cmd)
	p.mu.Unlock()
	return nil
}

func (p *pipeConn) Close(websocket.StatusCode, string) error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case data := <-p.in:
		return websocket.MessageText, data, nil
	case <-p.closed:
		return 0, nil, errors.New("closed")
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (p *pipeConn) push(t *testing.T, ev map[string]any) {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	p.in <- data
}

// waitFor returns the first sent command of type typ accepted by match.
func (p *pipeConn) waitFor(t *testing.T, typ string, match func(live.Command) bool) live.Command {
	t.Helper()
	var found live.Command
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		for _, c := range p.out {
			if c.Type == typ && (match == nil || match(c)) {
				found = c
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "no %s command", typ)
	return found
}

type liveEnv struct {
	conn    *pipeConn
	session *live.Session
	tracker *tracker.Service
	storage *userstore.Memory
	hub     *live.Hub
}

func newLiveEnv(t *testing.T, mutate func(*config.UIConfig)) *liveEnv {
	t.Helper()
	store := memory.New()
	tr := tracker.NewService(store.Habits(), store.Lists(), store.Records(), zap.NewNop(),
		tracker.WithClock(func() time.Time { return fixedNow }))
	cfg := config.Default().UI
	cfg.HoldDelay = 30 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	storage := userstore.NewMemory()
	hub := live.NewHub()
	h := NewLiveHandler(tr, storage, hub, cfg, zap.NewNop())

	conn := newPipeConn()
	s := live.NewSession(conn, testUser, rbac.RoleUser, h, zap.NewNop())
	hub.Register(s)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		hub.Unregister(s)
	})

	return &liveEnv{conn: conn, session: s, tracker: tr, storage: storage, hub: hub}
}

func (e *liveEnv) addHabit(t *testing.T, name string) *model.Habit {
	t.Helper()
	h, err := e.tracker.AddHabit(context.Background(), testUser, name, nil)
	require.NoError(t, err)
	return h
}

func (e *liveEnv) state(t *testing.T, habitID int) *model.CheckedRecord {
	t.Helper()
	rec, err := e.tracker.RecordBy(context.Background(), testUser, habitID, fixedNow)
	require.NoError(t, err)
	return rec
}

const today = "2024-05-15"

func TestTapCyclesState(t *testing.T) {
	env := newLiveEnv(t, nil)
	h := env.addHabit(t, "Read")

	env.conn.push(t, map[string]any{"type": live.EvPointerDown, "habit_id": h.ID, "day": today})
	env.conn.push(t, map[string]any{"type": live.EvPointerUp, "habit_id": h.ID, "day": today})

	cb := env.conn.waitFor(t, live.CmdCheckbox, nil)
	assert.Equal(t, h.ID, cb.HabitID)
	assert.Equal(t, today, cb.Day)
	assert.Equal(t, "checked", cb.State)

	attrs := env.conn.waitFor(t, live.CmdCall, func(c live.Command) bool { return c.Fn == "updateHabitAttributes" })
	require.Len(t, attrs.Args, 5)
	assert.EqualValues(t, h.ID, attrs.Args[0])
	assert.EqualValues(t, 1, attrs.Args[2], "week ticks")
	env.conn.waitFor(t, live.CmdCall, func(c live.Command) bool { return c.Fn == "scrollToHabit" })

	rec := env.state(t, h.ID)
	require.NotNil(t, rec)
	assert.Equal(t, model.Checked, rec.Done)

	env.conn.push(t, map[string]any{"type": live.EvPointerDown, "habit_id": h.ID, "day": today})
	env.conn.push(t, map[string]any{"type": live.EvPointerUp, "habit_id": h.ID, "day": today})
	env.conn.waitFor(t, live.CmdCheckbox, func(c live.Command) bool { return c.State == "skipped" })
	assert.Equal(t, model.Skipped, env.state(t, h.ID).Done)
}

func TestFutureDayIsIgnored(t *testing.T) {
	env := newLiveEnv(t, nil)
	h := env.addHabit(t, "Read")

	env.conn.push(t, map[string]any{"type": live.EvPointerDown, "habit_id": h.ID, "day": "2024-05-16"})
	env.conn.push(t, map[string]any{"type": live.EvPointerUp, "habit_id": h.ID, "day": "2024-05-16"})
	env.conn.push(t, map[string]any{"type": live.EvHabitAdd, "name": "marker"})
	env.conn.waitFor(t, live.CmdRefresh, nil)

	rec, err := env.tracker.RecordBy(context.Background(), testUser, h.ID, fixedNow.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLongPressOpensNoteDialog(t *testing.T) {
	env := newLiveEnv(t, nil)
	h := env.addHabit(t, "Read")

	env.conn.push(t, map[string]any{"type": live.EvPointerDown, "habit_id": h.ID, "day": today})
	dlg := env.conn.waitFor(t, live.CmdDialog, nil)
	assert.Equal(t, live.DialogNote, dlg.Kind)

	env.conn.push(t, map[string]any{
		"type":      live.EvDialogResult,
		"dialog_id": dlg.DialogID,
		"value":     map[string]any{"yes": true, "text": "felt good"},
	})
	cb := env.conn.waitFor(t, live.CmdCheckbox, nil)
	assert.Equal(t, "checked", cb.State)

	rec := env.state(t, h.ID)
	require.NotNil(t, rec)
	assert.Equal(t, "felt good", rec.Text)
}

func TestNoteTooLongIsReported(t *testing.T) {
	env := newLiveEnv(t, nil)
	h := env.addHabit(t, "Read")

	env.conn.push(t, map[string]any{"type": live.EvPointerDown, "habit_id": h.ID, "day": today})
	dlg := env.conn.waitFor(t, live.CmdDialog, nil)
	env.conn.push(t, map[string]any{
		"type":      live.EvDialogResult,
		"dialog_id": dlg.DialogID,
		"value":     map[string]any{"yes": true, "text": strings.Repeat("é", habit.MaxNoteLength+1)},
	})

	n := env.conn.waitFor(t, live.CmdNotify, nil)
	assert.Equal(t, "Note is too long", n.Message)
	assert.Equal(t, live.ColorNegative, n.Color)
	assert.Nil(t, env.state(t, h.ID))
}

func TestLongPressWithoutNotesChecks(t *testing.T) {
	env := newLiveEnv(t, func(c *config.UIConfig) { c.EnableHabitNotes = false })
	h := env.addHabit(t, "Read")

	env.conn.push(t, map[string]any{"type": live.EvPointerDown, "habit_id": h.ID, "day": today})
	cb := env.conn.waitFor(t, live.CmdCheckbox, nil)
	assert.Equal(t, "checked", cb.State)
	assert.Equal(t, model.Checked, env.state(t, h.ID).Done)
}

func TestStarAndAdd(t *testing.T) {
	env := newLiveEnv(t, nil)
	h := env.addHabit(t, "Read")

	env.conn.push(t, map[string]any{"type": live.EvStar, "habit_id": h.ID, "value": true})
	env.conn.waitFor(t, live.CmdRefresh, nil)
	got, err := env.tracker.Habit(context.Background(), testUser, h.ID)
	require.NoError(t, err)
	assert.True(t, got.Star)

	env.conn.push(t, map[string]any{"type": live.EvHabitAdd, "name": "   "})
	env.conn.push(t, map[string]any{"type": live.EvHabitAdd, "name": "Run"})
	scroll := env.conn.waitFor(t, live.CmdCall, func(c live.Command) bool {
		return c.Fn == "scrollToHabit" && len(c.Args) == 1 && c.Args[0] != float64(h.ID)
	})
	habits, err := env.tracker.Habits(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, habits, 2, "blank names are ignored")
	for _, hb := range habits {
		if hb.Name == "Run" {
			assert.EqualValues(t, hb.ID, scroll.Args[0])
		}
	}
}

func TestRemoveArchivesThenConfirmsDelete(t *testing.T) {
	env := newLiveEnv(t, nil)
	h := env.addHabit(t, "Read")
	ctx := context.Background()

	env.conn.push(t, map[string]any{"type": live.EvHabitRemove, "habit_id": h.ID})
	env.conn.waitFor(t, live.CmdNotify, func(c live.Command) bool { return strings.HasPrefix(c.Message, "Archived") })
	got, err := env.tracker.Habit(ctx, testUser, h.ID)
	require.NoError(t, err)
	assert.Equal(t, model.HabitArchived, got.Status)

	env.conn.push(t, map[string]any{"type": live.EvHabitRemove, "habit_id": h.ID})
	dlg := env.conn.waitFor(t, live.CmdDialog, nil)
	assert.Equal(t, live.DialogConfirm, dlg.Kind)
	env.conn.push(t, map[string]any{"type": live.EvDialogResult, "dialog_id": dlg.DialogID, "value": true})
	env.conn.waitFor(t, live.CmdNotify, func(c live.Command) bool { return strings.HasPrefix(c.Message, "Deleted") })

	_, err = env.tracker.Habit(ctx, testUser, h.ID)
	assert.ErrorIs(t, err, tracker.ErrHabitNotFound)
}

func TestRestoreArchived(t *testing.T) {
	env := newLiveEnv(t, nil)
	h := env.addHabit(t, "Read")
	ctx := context.Background()
	_, err := env.tracker.Remove(ctx, testUser, h.ID)
	require.NoError(t, err)

	env.conn.push(t, map[string]any{"type": live.EvHabitRestore, "habit_id": h.ID})
	env.conn.waitFor(t, live.CmdNotify, func(c live.Command) bool { return c.Message == "Restored Read" })
	env.conn.waitFor(t, live.CmdRefresh, nil)

	got, err := env.tracker.Habit(ctx, testUser, h.ID)
	require.NoError(t, err)
	assert.Equal(t, model.HabitActive, got.Status)
}

func TestListSelectStoresAndNavigates(t *testing.T) {
	env := newLiveEnv(t, nil)
	ctx := context.Background()

	env.conn.push(t, map[string]any{"type": live.EvListSelect, "list": "None", "path": "/gui/"})
	nav := env.conn.waitFor(t, live.CmdNavigate, nil)
	assert.Equal(t, "/gui?list=None", nav.URL)

	sel, ok, err := env.storage.CurrentList(ctx, testUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, habit.NoList, sel.Kind)

	env.conn.push(t, map[string]any{"type": live.EvListSelect, "list": "4", "path": "/gui/add"})
	call := env.conn.waitFor(t, live.CmdCall, func(c live.Command) bool { return c.Fn == "setListParam" })
	assert.Equal(t, []any{"4"}, call.Args)
}

func TestTickRefreshesOtherTabs(t *testing.T) {
	env := newLiveEnv(t, nil)
	h := env.addHabit(t, "Read")

	tab := newPipeConn()
	second := live.NewSession(tab, testUser, rbac.RoleUser, live.HandlerFunc(func(context.Context, *live.Session, live.Event) {}), zap.NewNop())
	env.hub.Register(second)
	defer env.hub.Unregister(second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = second.Run(ctx) }()

	env.conn.push(t, map[string]any{"type": live.EvPointerDown, "habit_id": h.ID, "day": today})
	env.conn.push(t, map[string]any{"type": live.EvPointerUp, "habit_id": h.ID, "day": today})

	tab.waitFor(t, live.CmdCheckbox, func(c live.Command) bool { return c.State == "checked" })
	tab.waitFor(t, live.CmdRefresh, nil)
}
