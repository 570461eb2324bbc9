package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// EnsureSchema applies the embedded schema files in name order.
// Every statement is idempotent, so this runs on each start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	names, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list schema files: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := schemaFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(body)); err != nil {
			logger.Error("Failed to apply schema", zap.String("file", name), zap.Error(err))
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
		logger.Info("Schema applied", zap.String("file", name))
	}
	return nil
}
