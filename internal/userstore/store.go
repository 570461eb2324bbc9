// Package userstore keeps small per-user UI state between page loads.
package userstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"habitweb/internal/habit"
)

const fieldCurrentList = "current_list"

type Store interface {
	// CurrentList returns the stored list selection; ok is false when none is stored.
	CurrentList(ctx context.Context, userID int) (sel habit.Selection, ok bool, err error)
	SetCurrentList(ctx context.Context, userID int, sel habit.Selection) error
}

// New returns a redis backed store, or an in-process one when rdb is nil.
func New(rdb *redis.Client, logger *zap.Logger) Store {
	if rdb == nil {
		return NewMemory()
	}
	return &RedisStore{rdb: rdb, logger: logger}
}

type RedisStore struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func storageKey(userID int) string {
	return fmt.Sprintf("user:%d:storage", userID)
}

func (s *RedisStore) CurrentList(ctx context.Context, userID int) (habit.Selection, bool, error) {
	raw, err := s.rdb.HGet(ctx, storageKey(userID), fieldCurrentList).Result()
	if errors.Is(err, redis.Nil) {
		return habit.Selection{}, false, nil
	}
	if err != nil {
		s.logger.Warn("Failed to read user storage", zap.Int("user_id", userID), zap.Error(err))
		return habit.Selection{}, false, err
	}
	return parseStored(raw)
}

func (s *RedisStore) SetCurrentList(ctx context.Context, userID int, sel habit.Selection) error {
	if err := s.rdb.HSet(ctx, storageKey(userID), fieldCurrentList, storedValue(sel)).Err(); err != nil {
		s.logger.Error("Failed to write user storage", zap.Int("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

type Memory struct {
	mu   sync.RWMutex
	data map[int]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[int]string)}
}

func (m *Memory) CurrentList(_ context.Context, userID int) (habit.Selection, bool, error) {
	m.mu.RLock()
	raw, ok := m.data[userID]
	m.mu.RUnlock()
	if !ok {
		return habit.Selection{}, false, nil
	}
	return parseStored(raw)
}

func (m *Memory) SetCurrentList(_ context.Context, userID int, sel habit.Selection) error {
	m.mu.Lock()
	m.data[userID] = storedValue(sel)
	m.mu.Unlock()
	return nil
}

// "" means all habits, which ParseSelection already maps from the empty string.
func storedValue(sel habit.Selection) string {
	return sel.Param()
}

func parseStored(raw string) (habit.Selection, bool, error) {
	return habit.ParseSelection(raw), true, nil
}
