package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"leavelite/internal/platform/querier"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrPendingExists       = errors.New("pending request exists")
	ErrAlreadyProcessed    = errors.New("already processed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRetryable           = errors.New("transaction conflict")
)

type Store struct {
	DB querier.TxBeginner
}

func NewStore(db querier.TxBeginner) *Store {
	return &Store{DB: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx TxStore) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txStore{tx: tx}); err != nil {
		return classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

type txStore struct {
	tx pgx.Tx
}

// classify folds postgres error codes into the store's sentinel errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if pgErr.ConstraintName == "leave_requests_one_pending_per_user" {
			return fmt.Errorf("%w: %v", ErrPendingExists, err)
		}
	case pgerrcode.CheckViolation:
		if pgErr.ConstraintName == "users_available_leave_check" {
			return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
		}
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return fmt.Errorf("%w: %v", ErrRetryable, err)
	case pgerrcode.InvalidTextRepresentation, pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
