package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

type fakeConn struct {
	in     chan []byte
	mu     sync.Mutex
	out    []Command
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeConn) Write(ctx context.Context, _ websocket.MessageType, data []byte) error {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return err
	}
	f.mu.Lock()
	f.out = append(f.out, cmd)
	f.mu.Unlock()
	return ctx.Err()
}

func (f *fakeConn) Close(websocket.StatusCode, string) error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case data := <-f.in:
		return websocket.MessageText, data, nil
	case <-f.closed:
		return 0, nil, errors.New("closed")
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (f *fakeConn) push(t *testing.T, ev Event) {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	f.in <- data
}

func (f *fakeConn) sent() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.out...)
}

func (f *fakeConn) waitFor(t *testing.T, typ string) Command {
	t.Helper()
	var found Command
	require.Eventually(t, func() bool {
		for _, c := range f.sent() {
			if c.Type == typ {
				found = c
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	return found
}

func TestGestureOutcomes(t *testing.T) {
	ctx := context.Background()

	g := NewGesture()
	g.Begin()
	g.Release()
	assert.Equal(t, Tap, g.Wait(ctx, time.Second))

	g.Begin()
	g.Move()
	g.Release()
	assert.Equal(t, Drag, g.Wait(ctx, time.Second))

	assert.Equal(t, LongPress, g.Press(ctx, 10*time.Millisecond))

	// A release after the press finished does not leak into the next one.
	g.Release()
	assert.Equal(t, LongPress, g.Press(ctx, 10*time.Millisecond))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, Cancelled, g.Press(cctx, time.Second))
}

func TestSessionDispatchesPressAndRelease(t *testing.T) {
	conn := newFakeConn()
	outcomes := make(chan Outcome, 1)
	handler := HandlerFunc(func(ctx context.Context, s *Session, ev Event) {
		if ev.Type != EvPointerDown {
			return
		}
		outcomes <- s.WaitPress(ctx, ev.HabitID, ev.Day, time.Second)
	})
	s := NewSession(conn, 1, "user", handler, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	conn.push(t, Event{Type: EvPointerDown, HabitID: 3, Day: "2024-05-15"})
	conn.push(t, Event{Type: EvPointerUp, HabitID: 3, Day: "2024-05-15"})

	select {
	case o := <-outcomes:
		assert.Equal(t, Tap, o)
	case <-time.After(time.Second):
		t.Fatal("press was not resolved")
	}
	assert.Zero(t, s.PendingPresses(), "resolved presses are forgotten")
}

func TestStrayReleasesKeepNoState(t *testing.T) {
	conn := newFakeConn()
	outcomes := make(chan Outcome, 4)
	handler := HandlerFunc(func(ctx context.Context, s *Session, ev Event) {
		if ev.Type == EvPointerDown {
			outcomes <- s.WaitPress(ctx, ev.HabitID, ev.Day, 20*time.Millisecond)
		}
	})
	s := NewSession(conn, 1, "user", handler, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	for day := 1; day <= 5; day++ {
		d := fmt.Sprintf("2024-05-%02d", day)
		conn.push(t, Event{Type: EvPointerUp, HabitID: 9, Day: d})
		conn.push(t, Event{Type: EvPointerMove, HabitID: 9, Day: d})
	}
	conn.push(t, Event{Type: EvPointerDown, HabitID: 3, Day: "2024-05-15"})

	select {
	case o := <-outcomes:
		assert.Equal(t, LongPress, o)
	case <-time.After(time.Second):
		t.Fatal("press was not resolved")
	}
	assert.Zero(t, s.PendingPresses())
}

func TestSessionAskRoundTrip(t *testing.T) {
	conn := newFakeConn()
	answers := make(chan json.RawMessage, 2)
	handler := HandlerFunc(func(ctx context.Context, s *Session, ev Event) {
		v, err := s.Ask(ctx, DialogConfirm, map[string]string{"message": "sure?"})
		if err == nil {
			answers <- v
		}
	})
	s := NewSession(conn, 1, "user", handler, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	conn.push(t, Event{Type: EvHabitRemove, HabitID: 1})
	dialog := conn.waitFor(t, CmdDialog)
	assert.Equal(t, DialogConfirm, dialog.Kind)
	require.NotEmpty(t, dialog.DialogID)

	conn.push(t, Event{Type: EvDialogResult, DialogID: dialog.DialogID, Value: json.RawMessage(`true`)})
	select {
	case v := <-answers:
		assert.JSONEq(t, `true`, string(v))
	case <-time.After(time.Second):
		t.Fatal("dialog result not delivered")
	}
}

func TestAskDismissedIsNil(t *testing.T) {
	conn := newFakeConn()
	s := NewSession(conn, 1, "user", HandlerFunc(func(context.Context, *Session, Event) {}), zap.NewNop())

	go func() {
		for {
			s.mu.Lock()
			var id string
			for k := range s.dialogs {
				id = k
			}
			s.mu.Unlock()
			if id != "" {
				s.resolveDialog(id, json.RawMessage(`null`))
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	v, err := s.Ask(context.Background(), DialogNote, nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestHubBroadcastSkipsSenderAndDropsSlowSessions(t *testing.T) {
	hub := NewHub()
	nop := HandlerFunc(func(context.Context, *Session, Event) {})

	a := NewSession(newFakeConn(), 1, "user", nop, zap.NewNop())
	b := NewSession(newFakeConn(), 1, "user", nop, zap.NewNop())
	other := NewSession(newFakeConn(), 2, "user", nop, zap.NewNop())
	slow := NewSession(newFakeConn(), 1, "user", nop, zap.NewNop())
	slow.send = make(chan Command)

	for _, s := range []*Session{a, b, other, slow} {
		hub.Register(s)
	}
	assert.Equal(t, 3, hub.Count(1))

	sent := hub.Broadcast(1, Refresh(TargetHabits), a)
	assert.Equal(t, 1, sent)
	assert.Len(t, b.send, 1)
	assert.Len(t, a.send, 0)
	assert.Len(t, other.send, 0)

	assert.Equal(t, 2, hub.Count(1))
	select {
	case <-slow.Done():
	default:
		t.Fatal("slow session was not closed")
	}

	hub.Unregister(a)
	hub.Unregister(b)
	assert.Equal(t, 0, hub.Count(1))
}

func TestRemoteRefresherTargetsOwner(t *testing.T) {
	hub := NewHub()
	nop := HandlerFunc(func(context.Context, *Session, Event) {})
	mine := NewSession(newFakeConn(), 7, "user", nop, zap.NewNop())
	other := NewSession(newFakeConn(), 8, "user", nop, zap.NewNop())
	hub.Register(mine)
	hub.Register(other)

	handle := RemoteRefresher(hub, zap.NewNop())
	require.NoError(t, handle(context.Background(), json.RawMessage(`{"user_id":7,"habit_id":3}`)))
	require.Len(t, mine.send, 1)
	assert.Equal(t, CmdRefresh, (<-mine.send).Type)
	assert.Len(t, other.send, 0)

	// Garbage is acknowledged and dropped rather than redelivered.
	assert.NoError(t, handle(context.Background(), json.RawMessage(`not json`)))
	assert.Len(t, mine.send, 0)
}

func TestEventsOverRateAreDropped(t *testing.T) {
	conn := newFakeConn()
	var mu sync.Mutex
	handled := 0
	handler := HandlerFunc(func(context.Context, *Session, Event) {
		mu.Lock()
		handled++
		mu.Unlock()
	})
	s := NewSession(conn, 1, "user", handler, zap.NewNop())
	s.events = rate.NewLimiter(0, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	for i := 0; i < 5; i++ {
		conn.push(t, Event{Type: EvStar, HabitID: i})
	}
	conn.push(t, Event{Type: EvPointerDown, HabitID: 9, Day: "2024-05-15"})

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return handled
	}
	require.Eventually(t, func() bool { return count() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, count())
	assert.Zero(t, s.PendingPresses(), "a dropped press is not armed")
}
