package live

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

var (
	ErrSessionClosed = errors.New("live session closed")
	ErrSlowConsumer  = errors.New("live session send buffer full")
)

const (
	sendBuffer   = 64
	writeTimeout = 15 * time.Second
	pingInterval = 20 * time.Second
	pingTimeout  = 5 * time.Second

	// Dispatched events per second a page may send, with bursts.
	eventRate  = 50
	eventBurst = 100
)

type wsConn interface {
	Write(ctx context.Context, msgType websocket.MessageType, data []byte) error
	Close(status websocket.StatusCode, reason string) error
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
}

// Handler receives the events that are not handled by the session itself.
type Handler interface {
	HandleEvent(ctx context.Context, s *Session, ev Event)
}

type HandlerFunc func(ctx context.Context, s *Session, ev Event)

func (f HandlerFunc) HandleEvent(ctx context.Context, s *Session, ev Event) { f(ctx, s, ev) }

// Session is one connected page.
type Session struct {
	ID     string
	UserID int
	Role   string

	conn    wsConn
	handler Handler
	logger  *zap.Logger
	send    chan Command
	events  *rate.Limiter

	mu       sync.Mutex
	dialogs  map[string]chan json.RawMessage
	gestures map[string]*Gesture

	done      chan struct{}
	closeOnce sync.Once
}

func NewSession(conn wsConn, userID int, role string, handler Handler, logger *zap.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:       id,
		UserID:   userID,
		Role:     role,
		conn:     conn,
		handler:  handler,
		logger:   logger.With(zap.String("session_id", id), zap.Int("user_id", userID)),
		send:     make(chan Command, sendBuffer),
		events:   rate.NewLimiter(eventRate, eventBurst),
		dialogs:  make(map[string]chan json.RawMessage),
		gestures: make(map[string]*Gesture),
		done:     make(chan struct{}),
	}
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Logger() *zap.Logger {
	return s.logger
}

// Send queues cmd. A full queue ends the session.
func (s *Session) Send(cmd Command) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.send <- cmd:
		return nil
	default:
		s.logger.Warn("Dropping slow live session")
		s.close(websocket.StatusPolicyViolation, "too slow")
		return ErrSlowConsumer
	}
}

// Call runs a global JavaScript function on the page.
func (s *Session) Call(fn string, args ...any) error {
	return s.Send(Call(fn, args...))
}

// Notify shows a toast.
func (s *Session) Notify(message, color string) error {
	return s.Send(Notify(message, color))
}

// Ask opens a dialog and waits for its result. A nil result means the
// dialog was dismissed.
func (s *Session) Ask(ctx context.Context, kind string, payload any) (json.RawMessage, error) {
	id := uuid.NewString()
	ch := make(chan json.RawMessage, 1)

	s.mu.Lock()
	s.dialogs[id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.dialogs, id)
		s.mu.Unlock()
	}()

	if err := s.Send(Command{Type: CmdDialog, DialogID: id, Kind: kind, Payload: payload}); err != nil {
		return nil, err
	}

	select {
	case v := <-ch:
		if len(v) == 0 || string(v) == "null" {
			return nil, nil
		}
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrSessionClosed
	}
}

func (s *Session) resolveDialog(id string, value json.RawMessage) {
	s.mu.Lock()
	ch, ok := s.dialogs[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- value:
	default:
	}
}

// Gesture returns the press state of one checkbox.
func (s *Session) Gesture(habitID int, day string) *Gesture {
	key := gestureKey(habitID, day)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gestureLocked(key)
}

func (s *Session) gestureLocked(key string) *Gesture {
	g, ok := s.gestures[key]
	if !ok {
		g = NewGesture()
		s.gestures[key] = g
	}
	return g
}

// beginPress arms the checkbox under the session lock so that WaitPress
// cannot drop the gesture in between.
func (s *Session) beginPress(habitID int, day string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestureLocked(gestureKey(habitID, day)).Begin()
}

// endPress signals a pending press. Checkboxes that are not pressed are ignored.
func (s *Session) endPress(habitID int, day string, o Outcome) {
	s.mu.Lock()
	g, ok := s.gestures[gestureKey(habitID, day)]
	s.mu.Unlock()
	if ok {
		g.finish(o)
	}
}

// WaitPress resolves the press begun by a pointerdown and forgets the
// checkbox unless it was pressed again meanwhile.
func (s *Session) WaitPress(ctx context.Context, habitID int, day string, delay time.Duration) Outcome {
	key := gestureKey(habitID, day)
	g := s.Gesture(habitID, day)
	out := g.Wait(ctx, delay)

	s.mu.Lock()
	if s.gestures[key] == g && !g.Pressed() {
		delete(s.gestures, key)
	}
	s.mu.Unlock()
	return out
}

// PendingPresses is the number of checkboxes with press state.
func (s *Session) PendingPresses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.gestures)
}

// Run serves the session until the connection or ctx ends.
// Releases, moves and dialog results are applied inline so that a
// handler blocked on a press or a dialog can observe them; every other
// event is handled on its own goroutine, subject to the per-session
// event rate.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()
	defer s.close(websocket.StatusNormalClosure, "")

	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.writeLoop(ctx); err != nil && ctx.Err() == nil {
			s.logger.Debug("Live write loop ended", zap.Error(err))
			cancel()
		}
	}()

	if c, ok := s.conn.(*websocket.Conn); ok {
		startPing(ctx, c)
	}

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) != -1 {
				return nil
			}
			return err
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Debug("Ignoring malformed live event", zap.Error(err))
			continue
		}

		switch ev.Type {
		case EvPointerUp:
			s.endPress(ev.HabitID, ev.Day, Tap)
		case EvPointerMove:
			s.endPress(ev.HabitID, ev.Day, Drag)
		case EvDialogResult:
			s.resolveDialog(ev.DialogID, ev.Value)
		default:
			if !s.events.Allow() {
				s.logger.Debug("Dropping live event over rate", zap.String("type", ev.Type))
				continue
			}
			if ev.Type == EvPointerDown {
				s.beginPress(ev.HabitID, ev.Day)
			}
			wg.Add(1)
			go func(ev Event) {
				defer wg.Done()
				s.handler.HandleEvent(ctx, s, ev)
			}(ev)
		}
	}
}

func (s *Session) writeLoop(ctx context.Context) error {
	for {
		select {
		case cmd := <-s.send:
			data, err := json.Marshal(cmd)
			if err != nil {
				s.logger.Error("Failed to encode live command", zap.String("type", cmd.Type), zap.Error(err))
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = s.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) close(status websocket.StatusCode, reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close(status, reason)
	})
}

func startPing(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
				_ = conn.Ping(pingCtx)
				cancel()
			}
		}
	}()
}
