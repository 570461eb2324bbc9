package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"habitweb/internal/model"
	"habitweb/internal/repository/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, routingKey)
	return nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

var fixedNow = time.Date(2024, 5, 15, 9, 30, 0, 0, time.UTC)

func newTestService(opts ...Option) (*Service, *memory.Store) {
	store := memory.New()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	s := NewService(store.Habits(), store.Lists(), store.Records(), zap.NewNop(), opts...)
	return s, store
}

// failingRecords fails the n-th Upsert.
type failingRecords struct {
	memory.RecordRepository
	n     int
	calls int
}

func (f *failingRecords) Upsert(ctx context.Context, habitID int, day time.Time, state model.TickState, text *string) (*model.CheckedRecord, error) {
	f.calls++
	if f.calls == f.n {
		return nil, errors.New("disk full")
	}
	return f.RecordRepository.Upsert(ctx, habitID, day, state, text)
}

type countingTx struct {
	TxRunner
	calls int
}

func (c *countingTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	c.calls++
	return c.TxRunner.InTx(ctx, fn)
}
