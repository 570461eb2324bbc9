package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habitweb/internal/model"
)

type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// CreateUser inserts a new user and fills in its id.
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (email, password_hash, role, created_at)
        VALUES ($1, $2, $3, NOW())
        RETURNING id, created_at
    `
	if err := conn(ctx, r.db).QueryRow(ctx, query, u.Email, u.PasswordHash, u.Role).Scan(&u.ID, &u.CreatedAt); err != nil {
		r.logger.Error("Failed to insert user", zap.Error(err))
		return mapUnique(err)
	}
	r.logger.Info("User created", zap.Int("user_id", u.ID))
	return nil
}

// FindByEmail returns the user with email, or ErrNotFound.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
        SELECT id, email, password_hash, role, created_at
        FROM users
        WHERE email = $1
    `
	var u model.User
	err := conn(ctx, r.db).QueryRow(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &u, nil
}
