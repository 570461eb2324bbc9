package tracker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	mqcontracts "habitweb/contracts/mq"
	"habitweb/internal/habit"
	"habitweb/internal/model"
)

// Habits returns the user's habits that are not soft deleted, by order.
func (s *Service) Habits(ctx context.Context, userID int) ([]model.Habit, error) {
	habits, err := s.habits.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	habit.SortByOrder(habits)
	return habits, nil
}

func (s *Service) Habit(ctx context.Context, userID, id int) (*model.Habit, error) {
	h, err := s.habits.Get(ctx, userID, id)
	if err != nil {
		return nil, notFound(err, ErrHabitNotFound)
	}
	return h, nil
}

// AddHabit creates an active habit at the end of the order.
func (s *Service) AddHabit(ctx context.Context, userID int, name string, listID *int) (*model.Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if listID != nil {
		if _, err := s.List(ctx, userID, *listID); err != nil {
			return nil, err
		}
	}

	order, err := s.habits.NextOrder(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("next order: %w", err)
	}

	h := &model.Habit{
		UserID:    userID,
		ListID:    listID,
		Name:      name,
		Order:     order,
		Status:    model.HabitActive,
		CreatedAt: s.now(),
	}
	if _, err := s.habits.Insert(ctx, h); err != nil {
		return nil, fmt.Errorf("insert habit: %w", err)
	}

	s.publish(ctx, mqcontracts.RoutingHabitCreated, mqcontracts.HabitCreatedPayload{
		UserID:  userID,
		HabitID: h.ID,
		Name:    h.Name,
		ListID:  h.ListID,
	})
	return h, nil
}

// ToggleStar sets the star flag and returns the updated habit.
func (s *Service) ToggleStar(ctx context.Context, userID, id int, star bool) (*model.Habit, error) {
	if err := s.habits.UpdateStar(ctx, userID, id, star); err != nil {
		return nil, notFound(err, ErrHabitNotFound)
	}
	return s.Habit(ctx, userID, id)
}

// Remove archives an active habit and soft deletes an archived one.
// It returns the status the habit ended up in.
func (s *Service) Remove(ctx context.Context, userID, id int) (model.HabitStatus, error) {
	h, err := s.Habit(ctx, userID, id)
	if err != nil {
		return "", err
	}

	next := model.HabitArchived
	routing := mqcontracts.RoutingHabitArchived
	if h.Status == model.HabitArchived {
		next = model.HabitSoftDeleted
		routing = mqcontracts.RoutingHabitDeleted
	}

	if err := s.habits.UpdateStatus(ctx, userID, id, next); err != nil {
		return "", notFound(err, ErrHabitNotFound)
	}
	s.logger.Info("Habit removed",
		zap.Int("habit_id", id),
		zap.String("status", string(next)),
	)

	s.publish(ctx, routing, mqcontracts.HabitStatusPayload{
		UserID:  userID,
		HabitID: id,
		Status:  string(next),
	})
	return next, nil
}

// Restore makes an archived habit active again.
func (s *Service) Restore(ctx context.Context, userID, id int) error {
	h, err := s.Habit(ctx, userID, id)
	if err != nil {
		return err
	}
	if h.Status != model.HabitArchived {
		return nil
	}
	if err := s.habits.UpdateStatus(ctx, userID, id, model.HabitActive); err != nil {
		return notFound(err, ErrHabitNotFound)
	}
	return nil
}

// HabitUpdate holds the fields editable on the habit page.
type HabitUpdate struct {
	Name       string
	WeeklyGoal int
	ListID     *int
}

func (s *Service) UpdateHabit(ctx context.Context, userID, id int, u HabitUpdate) (*model.Habit, error) {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return nil, ErrEmptyName
	}
	h, err := s.Habit(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if u.ListID != nil {
		if _, err := s.List(ctx, userID, *u.ListID); err != nil {
			return nil, err
		}
	}

	h.Name = name
	h.WeeklyGoal = max(u.WeeklyGoal, 0)
	h.ListID = u.ListID
	if err := s.habits.Update(ctx, h); err != nil {
		return nil, notFound(err, ErrHabitNotFound)
	}
	return h, nil
}

// Reorder stores ids as the new order. Unknown ids are dropped and habits
// missing from ids keep their relative order after the listed ones.
func (s *Service) Reorder(ctx context.Context, userID int, ids []int) error {
	habits, err := s.Habits(ctx, userID)
	if err != nil {
		return err
	}

	owned := make(map[int]bool, len(habits))
	for _, h := range habits {
		owned[h.ID] = false
	}

	ordered := make([]int, 0, len(habits))
	for _, id := range ids {
		seen, ok := owned[id]
		if !ok || seen {
			continue
		}
		owned[id] = true
		ordered = append(ordered, id)
	}
	for _, h := range habits {
		if !owned[h.ID] {
			ordered = append(ordered, h.ID)
		}
	}

	return s.habits.UpdateOrders(ctx, userID, ordered)
}
