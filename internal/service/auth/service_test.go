package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitweb/internal/model"
	"habitweb/internal/repository"
	"habitweb/pkg/rbac"
)

type memUsers struct {
	mu    sync.Mutex
	next  int
	users map[string]*model.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]*model.User)}
}

func (m *memUsers) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	u.ID = m.next
	cp := *u
	m.users[u.Email] = &cp
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func newService(role string) *Service {
	return NewService(newMemUsers(), "secret", time.Hour, role, nil, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	s := newService(rbac.RoleUser)
	ctx := context.Background()

	u, err := s.Register(ctx, " Me@Example.com ", "password")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", u.Email)
	assert.Equal(t, rbac.RoleUser, u.Role)

	_, err = s.Register(ctx, "me@example.com", "password")
	assert.ErrorIs(t, err, ErrEmailTaken)

	token, logged, err := s.Login(ctx, "ME@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	claims, err := s.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
}

func TestRegisterValidation(t *testing.T) {
	s := newService(rbac.RoleUser)
	_, err := s.Register(context.Background(), "not-an-email", "password")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = s.Register(context.Background(), "a@b.c", "123")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newService(rbac.RoleDemo)
	ctx := context.Background()
	_, err := s.Register(ctx, "a@b.c", "password")
	require.NoError(t, err)

	_, _, err = s.Login(ctx, "a@b.c", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = s.Login(ctx, "nobody@b.c", "password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
