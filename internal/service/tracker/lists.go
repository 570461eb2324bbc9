package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"habitweb/internal/model"
)

// Lists returns the user's lists by order.
func (s *Service) Lists(ctx context.Context, userID int) ([]model.HabitList, error) {
	lists, err := s.lists.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	sort.SliceStable(lists, func(i, j int) bool { return lists[i].Order < lists[j].Order })
	return lists, nil
}

func (s *Service) List(ctx context.Context, userID, id int) (*model.HabitList, error) {
	l, err := s.lists.Get(ctx, userID, id)
	if err != nil {
		return nil, notFound(err, ErrListNotFound)
	}
	return l, nil
}

func (s *Service) AddList(ctx context.Context, userID int, name string) (*model.HabitList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	lists, err := s.Lists(ctx, userID)
	if err != nil {
		return nil, err
	}
	order := 0
	for _, l := range lists {
		order = max(order, l.Order+1)
	}

	l := &model.HabitList{UserID: userID, Name: name, Order: order}
	if _, err := s.lists.Insert(ctx, l); err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	return l, nil
}

func (s *Service) UpdateList(ctx context.Context, userID, id int, name string, enableLetterFilter bool) (*model.HabitList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	l, err := s.List(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	l.Name = name
	l.EnableLetterFilter = enableLetterFilter
	if err := s.lists.Update(ctx, l); err != nil {
		return nil, notFound(err, ErrListNotFound)
	}
	return l, nil
}

// DeleteList soft deletes the list and moves its habits to "no list".
func (s *Service) DeleteList(ctx context.Context, userID, id int) error {
	if _, err := s.List(ctx, userID, id); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.habits.DetachList(ctx, userID, id); err != nil {
			return fmt.Errorf("detach list: %w", err)
		}
		if err := s.lists.SoftDelete(ctx, userID, id); err != nil {
			return notFound(err, ErrListNotFound)
		}
		return nil
	})
}
