package userstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitweb/internal/habit"
)

func TestNewWithoutRedisUsesMemory(t *testing.T) {
	s := New(nil, zap.NewNop())
	_, ok := s.(*Memory)
	assert.True(t, ok)
}

func TestMemoryCurrentList(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, ok, err := s.CurrentList(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetCurrentList(ctx, 1, habit.ListSelection(4)))
	sel, ok, err := s.CurrentList(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, habit.ListSelection(4), sel)

	require.NoError(t, s.SetCurrentList(ctx, 1, habit.Selection{Kind: habit.NoList}))
	sel, _, _ = s.CurrentList(ctx, 1)
	assert.Equal(t, habit.NoList, sel.Kind)

	_, ok, _ = s.CurrentList(ctx, 2)
	assert.False(t, ok)
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "user:12:storage", storageKey(12))
}

func newRedisStore(t *testing.T) (*miniredis.Miniredis, Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, New(rdb, zap.NewNop())
}

func TestRedisMissingHashIsNotSet(t *testing.T) {
	_, s := newRedisStore(t)
	_, isRedis := s.(*RedisStore)
	require.True(t, isRedis)

	sel, ok, err := s.CurrentList(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, habit.Selection{}, sel)
}

func TestRedisCurrentListRoundTrip(t *testing.T) {
	mr, s := newRedisStore(t)
	ctx := context.Background()

	tests := []struct {
		stored string
		sel    habit.Selection
	}{
		{"None", habit.Selection{Kind: habit.NoList}},
		{"", habit.Selection{Kind: habit.AllHabits}},
		{"3", habit.ListSelection(3)},
	}
	for _, tt := range tests {
		t.Run(tt.stored, func(t *testing.T) {
			require.NoError(t, s.SetCurrentList(ctx, 1, tt.sel))
			assert.Equal(t, tt.stored, mr.HGet(storageKey(1), fieldCurrentList))

			got, ok, err := s.CurrentList(ctx, 1)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.sel, got)
		})
	}

	_, ok, err := s.CurrentList(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok, "other users are untouched")
}

func TestRedisGarbageFallsBackToAll(t *testing.T) {
	mr, s := newRedisStore(t)
	mr.HSet(storageKey(1), fieldCurrentList, "bogus")

	sel, ok, err := s.CurrentList(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, habit.AllHabits, sel.Kind)
}

func TestRedisReadErrorIsReturned(t *testing.T) {
	mr, s := newRedisStore(t)
	mr.Close()

	_, ok, err := s.CurrentList(context.Background(), 1)
	assert.Error(t, err)
	assert.False(t, ok)
}
