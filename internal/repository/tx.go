package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// querier is the part of pgxpool.Pool and pgx.Tx the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type txKey struct{}

// conn returns the transaction bound to ctx by TxRunner, or the pool.
func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// TxRunner runs a unit of work in one transaction. Repository calls made
// with the ctx passed to fn join it.
type TxRunner struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTxRunner(db *pgxpool.Pool, logger *zap.Logger) *TxRunner {
	return &TxRunner{db: db, logger: logger}
}

// InTx commits when fn returns nil and rolls back otherwise. Nested calls
// reuse the outer transaction.
func (t *TxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	err := pgx.BeginFunc(ctx, t.db, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil {
		t.logger.Warn("Transaction rolled back", zap.Error(err))
	}
	return err
}
