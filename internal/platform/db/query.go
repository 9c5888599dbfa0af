package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikeContains builds a LIKE pattern matching s anywhere in the column.
// Use it with ESCAPE '\'.
func LikeContains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// QueryList runs query and maps each row with scan. The rows are fully
// drained and closed before it returns, so callers may issue further
// queries on the single connection afterwards.
func QueryList[T any](ctx context.Context, e *Engine, op, query string, scan func(Scanner) (T, error), args ...any) ([]T, error) {
	rows, err := e.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, e.Fault(ctx, op, err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, e.Fault(ctx, op, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, e.Fault(ctx, op, err)
	}
	return items, nil
}

// QueryInt runs a single-value integer query such as COUNT(*).
func (e *Engine) QueryInt(ctx context.Context, op, query string, args ...any) (int, error) {
	var n sql.NullInt64
	if err := e.Conn(ctx).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, e.Fault(ctx, op, err)
	}
	return int(n.Int64), nil
}

// Exists reports whether query returns at least one row.
func (e *Engine) Exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	var one int
	err := e.Conn(ctx).QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, e.Fault(ctx, op, err)
	}
	return true, nil
}
