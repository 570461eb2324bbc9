// Package tracker is the habit, list and record logic shared by the pages
// and the live channel. Every operation is scoped to a user id.
package tracker

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"habitweb/internal/habit"
	"habitweb/internal/model"
	"habitweb/internal/repository"
	"habitweb/pkg/ratelimit"
)

var (
	ErrHabitNotFound = errors.New("habit not found")
	ErrListNotFound  = errors.New("list not found")
	ErrEmptyName     = errors.New("name must not be empty")
	ErrRateLimited   = errors.New("too many ticks, slow down")
	ErrNoteTooLong   = habit.ErrNoteTooLong

	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

type HabitStore interface {
	Insert(ctx context.Context, h *model.Habit) (int, error)
	ListByUser(ctx context.Context, userID int) ([]model.Habit, error)
	Get(ctx context.Context, userID, id int) (*model.Habit, error)
	UpdateStatus(ctx context.Context, userID, id int, status model.HabitStatus) error
	UpdateStar(ctx context.Context, userID, id int, star bool) error
	Update(ctx context.Context, h *model.Habit) error
	UpdateOrders(ctx context.Context, userID int, ids []int) error
	NextOrder(ctx context.Context, userID int) (int, error)
	DetachList(ctx context.Context, userID, listID int) error
}

type ListStore interface {
	Insert(ctx context.Context, l *model.HabitList) (int, error)
	ListByUser(ctx context.Context, userID int) ([]model.HabitList, error)
	Get(ctx context.Context, userID, id int) (*model.HabitList, error)
	Update(ctx context.Context, l *model.HabitList) error
	SoftDelete(ctx context.Context, userID, id int) error
}

type RecordStore interface {
	ListByHabit(ctx context.Context, habitID int) ([]model.CheckedRecord, error)
	ListByUser(ctx context.Context, userID int) (map[int][]model.CheckedRecord, error)
	Get(ctx context.Context, habitID int, day time.Time) (*model.CheckedRecord, error)
	Upsert(ctx context.Context, habitID int, day time.Time, state model.TickState, text *string) (*model.CheckedRecord, error)
}

// Publisher sends domain events. *mq.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// TxRunner runs fn atomically; store calls made with fn's ctx take part.
// *repository.TxRunner and *memory.Store satisfy it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noTx struct{}

func (noTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type Service struct {
	habits    HabitStore
	lists     ListStore
	records   RecordStore
	publisher Publisher
	limiter   ratelimit.Limiter
	tx        TxRunner
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithPublisher sets the event publisher. The default drops events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithTickLimiter bounds how often a user may tick.
func WithTickLimiter(l ratelimit.Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithTxRunner makes multi-step writes atomic. Without it they are applied
// one by one.
func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(habits HabitStore, lists ListStore, records RecordStore, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		habits:    habits,
		lists:     lists,
		records:   records,
		publisher: NopPublisher{},
		tx:        noTx{},
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the current calendar day.
func (s *Service) Today() time.Time {
	return habit.Date(s.now())
}

func (s *Service) publish(ctx context.Context, routingKey string, payload any) {
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}

func (s *Service) allowTick(ctx context.Context, userID int) error {
	if s.limiter == nil {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, strconv.Itoa(userID))
	if err != nil {
		s.logger.Warn("Rate limiter failed", zap.Error(err))
		return nil
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}
