package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	mqcontracts "habitweb/contracts/mq"
	"habitweb/internal/habit"
	"habitweb/internal/model"
	"habitweb/internal/repository"
	"habitweb/pkg/metrics"
)

// Records returns every record of an owned habit, oldest first.
func (s *Service) Records(ctx context.Context, userID, habitID int) ([]model.CheckedRecord, error) {
	if _, err := s.Habit(ctx, userID, habitID); err != nil {
		return nil, err
	}
	records, err := s.records.ListByHabit(ctx, habitID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// RecordsByHabit returns the records of all the user's habits keyed by habit id.
func (s *Service) RecordsByHabit(ctx context.Context, userID int) (map[int][]model.CheckedRecord, error) {
	records, err := s.records.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// RecordBy returns the record for day, or nil when there is none.
func (s *Service) RecordBy(ctx context.Context, userID, habitID int, day time.Time) (*model.CheckedRecord, error) {
	if _, err := s.Habit(ctx, userID, habitID); err != nil {
		return nil, err
	}
	rec, err := s.records.Get(ctx, habitID, habit.Date(day))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// TickRequest is one state change of one day.
type TickRequest struct {
	HabitID int
	Day     time.Time
	State   model.TickState
	// Note replaces the stored note when non-nil.
	Note *string
	// Source labels the tick metric: tap, note, check or form.
	Source string
}

// TickResult is the stored record and whether anything was written.
type TickResult struct {
	Record  *model.CheckedRecord
	Changed bool
}

// Tick stores a day's state. Without a note, a tick equal to the stored
// state is a no-op.
func (s *Service) Tick(ctx context.Context, userID int, req TickRequest) (*TickResult, error) {
	if req.Note != nil {
		if err := habit.ValidateNote(*req.Note); err != nil {
			return nil, err
		}
	}

	day := habit.Date(req.Day)
	current, err := s.RecordBy(ctx, userID, req.HabitID, day)
	if err != nil {
		return nil, err
	}
	if req.Note == nil && habit.IsDuplicateTick(current, req.State) {
		s.logger.Debug("Duplicate tick ignored",
			zap.Int("habit_id", req.HabitID),
			zap.Time("day", day),
		)
		return &TickResult{Record: current}, nil
	}

	if err := s.allowTick(ctx, userID); err != nil {
		metrics.IncrementRateLimited("tick")
		return nil, err
	}

	rec, err := s.records.Upsert(ctx, req.HabitID, day, req.State, req.Note)
	if err != nil {
		return nil, fmt.Errorf("upsert record: %w", err)
	}

	source := req.Source
	if source == "" {
		source = "form"
	}
	metrics.IncrementHabitTick(req.State.String(), source)

	s.publish(ctx, mqcontracts.RoutingHabitTicked, mqcontracts.HabitTickedPayload{
		UserID:  userID,
		HabitID: req.HabitID,
		Day:     day.Format(time.DateOnly),
		State:   req.State.String(),
		HasNote: rec.Text != "",
	})
	return &TickResult{Record: rec, Changed: true}, nil
}
