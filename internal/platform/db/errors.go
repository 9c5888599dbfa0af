package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a point lookup matched zero rows.
	ErrNotFound = errors.New("not found")

	// ErrWriteFailed is returned when an update or delete affected zero rows.
	ErrWriteFailed = errors.New("write affected no rows")
)

// StorageError reports a fault raised by the underlying engine (I/O,
// constraint, corrupt file). It is distinct from ErrNotFound so callers can
// tell "nothing to show" apart from "something is broken".
type StorageError struct {
	Op   string
	Code string // SQLSTATE on postgres, empty otherwise
	Err  error
}

func (e *StorageError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("storage fault in %s (%s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("storage fault in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageFault reports whether err carries a *StorageError.
func IsStorageFault(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Fault classifies a driver error returned from operation op. sql.ErrNoRows
// becomes ErrNotFound, context errors pass through, and everything else is
// logged and wrapped in a *StorageError.
func (e *Engine) Fault(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrWriteFailed) || IsStorageFault(err) {
		return err
	}

	se := &StorageError{Op: op, Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		se.Code = pgErr.Code
	}

	e.logger.Error().
		Err(err).
		Str("op", op).
		Str("driver", string(e.dialect)).
		Msg("storage fault")
	return se
}

// Affected converts the rows-affected count of a write into ErrWriteFailed
// when nothing matched.
func (e *Engine) Affected(ctx context.Context, op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return e.Fault(ctx, op, err)
	}
	if n == 0 {
		return ErrWriteFailed
	}
	return nil
}
