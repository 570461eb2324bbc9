package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habitweb/internal/model"
	"habitweb/pkg/metrics"
)

type RecordRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewRecordRepository(db *pgxpool.Pool, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{db: db, logger: logger}
}

func scanRecord(row pgx.Row, rec *model.CheckedRecord) error {
	var done *bool
	if err := row.Scan(&rec.ID, &rec.HabitID, &rec.Day, &done, &rec.Text, &rec.UpdatedAt); err != nil {
		return err
	}
	rec.Done = model.TickStateFromDone(done)
	return nil
}

// ListByHabit returns every record of a habit, oldest day first.
func (r *RecordRepository) ListByHabit(ctx context.Context, habitID int) ([]model.CheckedRecord, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
        SELECT id, habit_id, day, done, text, updated_at
        FROM checked_records
        WHERE habit_id = $1
        ORDER BY day ASC
    `, habitID)
	if err != nil {
		r.logger.Error("Failed to list records", zap.Int("habit_id", habitID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var records []model.CheckedRecord
	for rows.Next() {
		var rec model.CheckedRecord
		if err := scanRecord(rows, &rec); err != nil {
			r.logger.Error("Failed to scan record", zap.Error(err))
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListByUser returns the records of every habit of the user, grouped by habit id.
func (r *RecordRepository) ListByUser(ctx context.Context, userID int) (map[int][]model.CheckedRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("list_by_user", "checked_records", time.Since(start)) }()

	rows, err := conn(ctx, r.db).Query(ctx, `
        SELECT c.id, c.habit_id, c.day, c.done, c.text, c.updated_at
        FROM checked_records c
        JOIN habits h ON h.id = c.habit_id
        WHERE h.user_id = $1
        ORDER BY c.habit_id, c.day ASC
    `, userID)
	if err != nil {
		r.logger.Error("Failed to list user records", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := make(map[int][]model.CheckedRecord)
	for rows.Next() {
		var rec model.CheckedRecord
		if err := scanRecord(rows, &rec); err != nil {
			return nil, err
		}
		out[rec.HabitID] = append(out[rec.HabitID], rec)
	}
	return out, rows.Err()
}

// Get returns the record for day, or ErrNotFound.
func (r *RecordRepository) Get(ctx context.Context, habitID int, day time.Time) (*model.CheckedRecord, error) {
	var rec model.CheckedRecord
	err := scanRecord(conn(ctx, r.db).QueryRow(ctx, `
        SELECT id, habit_id, day, done, text, updated_at
        FROM checked_records
        WHERE habit_id = $1 AND day = $2
    `, habitID, day), &rec)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &rec, nil
}

// Upsert stores the state (and note, when non-nil) for one day.
func (r *RecordRepository) Upsert(ctx context.Context, habitID int, day time.Time, state model.TickState, text *string) (*model.CheckedRecord, error) {
	r.logger.Debug("Upserting record",
		zap.Int("habit_id", habitID),
		zap.Time("day", day),
		zap.String("state", state.String()),
	)

	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("upsert", "checked_records", time.Since(start)) }()

	var rec model.CheckedRecord
	err := scanRecord(conn(ctx, r.db).QueryRow(ctx, `
        INSERT INTO checked_records (habit_id, day, done, text)
        VALUES ($1, $2, $3, COALESCE($4, ''))
        ON CONFLICT (habit_id, day) DO UPDATE
        SET done = EXCLUDED.done,
            text = COALESCE($4, checked_records.text),
            updated_at = NOW()
        RETURNING id, habit_id, day, done, text, updated_at
    `, habitID, day, state.Done(), text), &rec)
	if err != nil {
		r.logger.Error("Failed to upsert record", zap.Int("habit_id", habitID), zap.Error(err))
		return nil, err
	}
	return &rec, nil
}
