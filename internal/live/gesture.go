package live

import (
	"context"
	"sync"
	"time"
)

// Outcome is how a press ended.
type Outcome int

const (
	// Cancelled means the session went away mid-press.
	Cancelled Outcome = iota
	Tap
	LongPress
	Drag
)

func (o Outcome) String() string {
	switch o {
	case Tap:
		return "tap"
	case LongPress:
		return "long_press"
	case Drag:
		return "drag"
	}
	return "cancelled"
}

// Gesture races a release or move against the hold delay.
// Begin must run before the matching release can be observed, so the
// read loop calls it inline and Wait runs on the handler goroutine.
type Gesture struct {
	mu      sync.Mutex
	pressed bool
	signal  chan Outcome
}

func NewGesture() *Gesture {
	return &Gesture{signal: make(chan Outcome, 1)}
}

// Begin arms the gesture, forgetting any earlier release.
func (g *Gesture) Begin() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pressed = true
	select {
	case <-g.signal:
	default:
	}
}

// Wait returns Tap or Drag if Release or Move arrives within delay,
// LongPress otherwise.
func (g *Gesture) Wait(ctx context.Context, delay time.Duration) Outcome {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	var out Outcome
	select {
	case out = <-g.signal:
	case <-timer.C:
		out = LongPress
	case <-ctx.Done():
		out = Cancelled
	}

	g.mu.Lock()
	g.pressed = false
	g.mu.Unlock()
	return out
}

// Pressed reports whether a press is waiting for its outcome.
func (g *Gesture) Pressed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pressed
}

// Press is Begin followed by Wait.
func (g *Gesture) Press(ctx context.Context, delay time.Duration) Outcome {
	g.Begin()
	return g.Wait(ctx, delay)
}

func (g *Gesture) Release() { g.finish(Tap) }

func (g *Gesture) Move() { g.finish(Drag) }

// The first signal of a press wins.
func (g *Gesture) finish(o Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.pressed {
		return
	}
	g.pressed = false
	select {
	case g.signal <- o:
	default:
	}
}
