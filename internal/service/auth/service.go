package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"habitweb/internal/model"
	"habitweb/internal/repository"
	"habitweb/internal/util"
)

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrDuplicateSubmit    = errors.New("registration already in progress")
)

const minPasswordLength = 6

// UserStore is the persistence the service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type Service struct {
	users       UserStore
	jwtSecret   string
	tokenTTL    time.Duration
	defaultRole string
	deduper     *util.Deduper
	logger      *zap.Logger
}

func NewService(users UserStore, jwtSecret string, tokenTTL time.Duration, defaultRole string, deduper *util.Deduper, logger *zap.Logger) *Service {
	return &Service{
		users:       users,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
		defaultRole: defaultRole,
		deduper:     deduper,
		logger:      logger,
	}
}

// Register creates a new user with the default role.
func (s *Service) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if !s.deduper.AcquireOnce(ctx, "register", email) {
		return nil, ErrDuplicateSubmit
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         s.defaultRole,
		CreatedAt:    time.Now(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Info("User registered", zap.Int("user_id", u.ID), zap.String("role", u.Role))
	return u, nil
}

// Login checks credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("Login lookup failed", zap.Error(err))
		}
		return "", nil, ErrInvalidCredentials
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.Issue(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Issue signs a session token for u.
func (s *Service) Issue(u *model.User) (string, error) {
	return util.GenerateJWT(u.ID, u.Email, u.Role, s.jwtSecret, s.tokenTTL)
}

// Authenticate parses a session token.
func (s *Service) Authenticate(token string) (*util.Claims, error) {
	return util.ParseJWT(token, s.jwtSecret)
}

// TokenTTL is how long issued tokens (and the session cookie) live.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}
