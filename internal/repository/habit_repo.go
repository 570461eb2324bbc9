package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habitweb/internal/model"
)

type HabitRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewHabitRepository(db *pgxpool.Pool, logger *zap.Logger) *HabitRepository {
	return &HabitRepository{
		db:     db,
		logger: logger,
	}
}

const habitColumns = `id, user_id, list_id, name, sort_order, star, status, weekly_goal, created_at, updated_at`

func scanHabit(row pgx.Row, h *model.Habit) error {
	var status string
	if err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.ListID,
		&h.Name,
		&h.Order,
		&h.Star,
		&status,
		&h.WeeklyGoal,
		&h.CreatedAt,
		&h.UpdatedAt,
	); err != nil {
		return err
	}
	h.Status = model.HabitStatus(status)
	return nil
}

func (r *HabitRepository) Insert(ctx context.Context, h *model.Habit) (int, error) {
	r.logger.Debug("Inserting habit",
		zap.Int("user_id", h.UserID),
		zap.String("name", h.Name),
	)

	query := `
        INSERT INTO habits (user_id, list_id, name, sort_order, star, status, weekly_goal)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at
    `
	err := conn(ctx, r.db).QueryRow(ctx, query,
		h.UserID,
		h.ListID,
		h.Name,
		h.Order,
		h.Star,
		string(h.Status),
		h.WeeklyGoal,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert habit", zap.Error(err))
		return 0, err
	}

	r.logger.Info("Habit inserted successfully",
		zap.Int("id", h.ID),
		zap.Int("user_id", h.UserID),
	)
	return h.ID, nil
}

// ListByUser returns every habit of the user that is not soft deleted, by order.
func (r *HabitRepository) ListByUser(ctx context.Context, userID int) ([]model.Habit, error) {
	r.logger.Debug("Listing habits for user", zap.Int("user_id", userID))

	query := `
        SELECT ` + habitColumns + `
        FROM habits
        WHERE user_id = $1 AND status <> 'soft_deleted'
        ORDER BY sort_order ASC, id ASC
    `
	rows, err := conn(ctx, r.db).Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list habits", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var habits []model.Habit
	for rows.Next() {
		var h model.Habit
		if err := scanHabit(rows, &h); err != nil {
			r.logger.Error("Failed to scan habit", zap.Error(err))
			return nil, err
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.logger.Debug("Listed habits",
		zap.Int("user_id", userID),
		zap.Int("count", len(habits)),
	)
	return habits, nil
}

// Get returns one habit owned by userID, or ErrNotFound.
func (r *HabitRepository) Get(ctx context.Context, userID, id int) (*model.Habit, error) {
	query := `
        SELECT ` + habitColumns + `
        FROM habits
        WHERE id = $1 AND user_id = $2 AND status <> 'soft_deleted'
    `
	var h model.Habit
	if err := scanHabit(conn(ctx, r.db).QueryRow(ctx, query, id, userID), &h); err != nil {
		return nil, mapNoRows(err)
	}
	return &h, nil
}

func (r *HabitRepository) exec(ctx context.Context, op string, query string, args ...any) error {
	tag, err := conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update habit", zap.String("op", op), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *HabitRepository) UpdateStatus(ctx context.Context, userID, id int, status model.HabitStatus) error {
	err := r.exec(ctx, "status", `
        UPDATE habits SET status = $1, updated_at = NOW()
        WHERE id = $2 AND user_id = $3
    `, string(status), id, userID)
	if err == nil {
		r.logger.Info("Habit status updated", zap.Int("id", id), zap.String("status", string(status)))
	}
	return err
}

func (r *HabitRepository) UpdateStar(ctx context.Context, userID, id int, star bool) error {
	return r.exec(ctx, "star", `
        UPDATE habits SET star = $1, updated_at = NOW()
        WHERE id = $2 AND user_id = $3
    `, star, id, userID)
}

// Update writes the editable fields: name, weekly goal and list.
func (r *HabitRepository) Update(ctx context.Context, h *model.Habit) error {
	return r.exec(ctx, "update", `
        UPDATE habits SET name = $1, weekly_goal = $2, list_id = $3, updated_at = NOW()
        WHERE id = $4 AND user_id = $5
    `, h.Name, h.WeeklyGoal, h.ListID, h.ID, h.UserID)
}

// UpdateOrders assigns sort_order = position in ids, in one transaction.
func (r *HabitRepository) UpdateOrders(ctx context.Context, userID int, ids []int) error {
	tx, err := conn(ctx, r.db).Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin reorder: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, id := range ids {
		if _, err := tx.Exec(ctx, `
            UPDATE habits SET sort_order = $1, updated_at = NOW()
            WHERE id = $2 AND user_id = $3
        `, i, id, userID); err != nil {
			r.logger.Error("Failed to reorder habit", zap.Int("id", id), zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	r.logger.Info("Habits reordered", zap.Int("user_id", userID), zap.Int("count", len(ids)))
	return nil
}

// NextOrder returns one past the highest sort_order of the user.
func (r *HabitRepository) NextOrder(ctx context.Context, userID int) (int, error) {
	var next int
	err := conn(ctx, r.db).QueryRow(ctx, `
        SELECT COALESCE(MAX(sort_order) + 1, 0) FROM habits WHERE user_id = $1
    `, userID).Scan(&next)
	return next, err
}

// DetachList moves every habit of listID back to "no list".
func (r *HabitRepository) DetachList(ctx context.Context, userID, listID int) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
        UPDATE habits SET list_id = NULL, updated_at = NOW()
        WHERE user_id = $1 AND list_id = $2
    `, userID, listID)
	if err != nil {
		r.logger.Error("Failed to detach list", zap.Int("list_id", listID), zap.Error(err))
	}
	return err
}
