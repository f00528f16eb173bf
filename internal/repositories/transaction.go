package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	apperrors "freeflow/pkg/errors"
)

const pgSerializationFailure = "40001"

type TxManagerInterface interface {
	RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type TxManager struct {
	pool    *pgxpool.Pool
	options pgx.TxOptions
	logger  *zap.Logger
}

// NewTxManager runs transactions at read committed; read-then-write paths
// lock rows with FOR UPDATE.
func NewTxManager(pool *pgxpool.Pool, logger *zap.Logger) *TxManager {
	return &TxManager{
		pool:    pool,
		options: pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
		logger:  logger,
	}
}

// RunInTransaction commits when fn returns nil and rolls back on error or
// panic. A panic is re-raised after the rollback. Serialization failures
// surface as ErrConflict.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := m.pool.BeginTx(ctx, m.options)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			m.rollback(ctx, tx)
			panic(p)
		}
		if err != nil {
			m.rollback(ctx, tx)
			err = translateTxError(err)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			err = translateTxError(fmt.Errorf("commit transaction: %w", cerr))
		}
	}()

	return fn(tx)
}

func (m *TxManager) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		m.logger.Warn("transaction rollback failed", zap.Error(err))
	}
}

func translateTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgSerializationFailure {
		return fmt.Errorf("concurrent update, retry the request: %w", apperrors.ErrConflict)
	}
	return err
}
