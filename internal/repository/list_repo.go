package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habitweb/internal/model"
)

type ListRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewListRepository(db *pgxpool.Pool, logger *zap.Logger) *ListRepository {
	return &ListRepository{db: db, logger: logger}
}

func (r *ListRepository) Insert(ctx context.Context, l *model.HabitList) (int, error) {
	query := `
        INSERT INTO habit_lists (user_id, name, sort_order, enable_letter_filter)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	if err := conn(ctx, r.db).QueryRow(ctx, query, l.UserID, l.Name, l.Order, l.EnableLetterFilter).Scan(&l.ID, &l.CreatedAt); err != nil {
		r.logger.Error("Failed to insert list", zap.Error(err))
		return 0, err
	}
	r.logger.Info("List inserted", zap.Int("id", l.ID), zap.Int("user_id", l.UserID))
	return l.ID, nil
}

// ListByUser returns the user's lists that are not deleted, by order.
func (r *ListRepository) ListByUser(ctx context.Context, userID int) ([]model.HabitList, error) {
	r.logger.Debug("Listing lists for user", zap.Int("user_id", userID))

	rows, err := conn(ctx, r.db).Query(ctx, `
        SELECT id, user_id, name, sort_order, enable_letter_filter, deleted, created_at
        FROM habit_lists
        WHERE user_id = $1 AND deleted = FALSE
        ORDER BY sort_order ASC, id ASC
    `, userID)
	if err != nil {
		r.logger.Error("Failed to list lists", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var lists []model.HabitList
	for rows.Next() {
		var l model.HabitList
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.Order, &l.EnableLetterFilter, &l.Deleted, &l.CreatedAt); err != nil {
			r.logger.Error("Failed to scan list", zap.Error(err))
			return nil, err
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

func (r *ListRepository) Get(ctx context.Context, userID, id int) (*model.HabitList, error) {
	var l model.HabitList
	err := conn(ctx, r.db).QueryRow(ctx, `
        SELECT id, user_id, name, sort_order, enable_letter_filter, deleted, created_at
        FROM habit_lists
        WHERE id = $1 AND user_id = $2 AND deleted = FALSE
    `, id, userID).Scan(&l.ID, &l.UserID, &l.Name, &l.Order, &l.EnableLetterFilter, &l.Deleted, &l.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &l, nil
}

func (r *ListRepository) Update(ctx context.Context, l *model.HabitList) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
        UPDATE habit_lists SET name = $1, enable_letter_filter = $2, sort_order = $3
        WHERE id = $4 AND user_id = $5 AND deleted = FALSE
    `, l.Name, l.EnableLetterFilter, l.Order, l.ID, l.UserID)
	if err != nil {
		r.logger.Error("Failed to update list", zap.Int("id", l.ID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ListRepository) SoftDelete(ctx context.Context, userID, id int) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
        UPDATE habit_lists SET deleted = TRUE
        WHERE id = $1 AND user_id = $2
    `, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete list", zap.Int("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Info("List deleted", zap.Int("id", id), zap.Int("user_id", userID))
	return nil
}
