package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more action for key is allowed now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Rule is "at most Limit actions per Window".
type Rule struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// Window is a fixed-window counter on Redis: INCR, then EXPIRE on the first hit.
type Window struct {
	rdb  *redis.Client
	name string
	rule Rule
}

func NewWindow(rdb *redis.Client, name string, rule Rule) *Window {
	return &Window{rdb: rdb, name: name, rule: rule}
}

// Allow fails open when Redis is unreachable; the error is returned for logging.
func (w *Window) Allow(ctx context.Context, key string) (bool, error) {
	k := FormatKey(w.name, w.rule, key)

	count, err := w.rdb.Incr(ctx, k).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := w.rdb.Expire(ctx, k, w.rule.Window).Err(); err != nil {
			return true, err
		}
	}
	return count <= int64(w.rule.Limit), nil
}

// FormatKey builds the Redis key for one window of one subject.
func FormatKey(name string, rule Rule, key string) string {
	return fmt.Sprintf("ratelimit:%s:%d/%s:%s", name, rule.Limit, rule.Window, key)
}

// Local is an in-process fixed window per key, started by the first hit
// like Window's EXPIRE.
type Local struct {
	mu      sync.Mutex
	rule    Rule
	now     func() time.Time
	windows map[string]*localWindow
}

type localWindow struct {
	start time.Time
	count int
}

// sweepAt is the number of keys above which expired windows are dropped.
const sweepAt = 1024

func NewLocal(rule Rule) *Local {
	return &Local{rule: rule, now: time.Now, windows: make(map[string]*localWindow)}
}

func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.rule.Window {
		if !ok && len(l.windows) >= sweepAt {
			l.sweep(now)
		}
		w = &localWindow{start: now}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.rule.Limit, nil
}

func (l *Local) sweep(now time.Time) {
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.rule.Window {
			delete(l.windows, k)
		}
	}
}

// Chain allows an action only if every limiter allows it.
// All limiters are consulted so each window counts the attempt.
type Chain []Limiter

func (c Chain) Allow(ctx context.Context, key string) (bool, error) {
	allowed := true
	var firstErr error
	for _, l := range c {
		ok, err := l.Allow(ctx, key)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if !ok {
			allowed = false
		}
	}
	return allowed, firstErr
}

// New builds a chain of rules, on Redis when rdb is set and in-process otherwise.
func New(rdb *redis.Client, name string, rules []Rule) Limiter {
	chain := make(Chain, 0, len(rules))
	for _, r := range rules {
		if r.Limit <= 0 || r.Window <= 0 {
			continue
		}
		if rdb != nil {
			chain = append(chain, NewWindow(rdb, name, r))
		} else {
			chain = append(chain, NewLocal(r))
		}
	}
	return chain
}
