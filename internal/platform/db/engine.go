package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// Dialect names a supported storage backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect validates a configured driver name.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case DialectSQLite, "":
		return DialectSQLite, nil
	case DialectPostgres:
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", s)
}

// Options configures Open.
type Options struct {
	Driver       Dialect
	Path         string // sqlite database file
	DatabaseURL  string // postgres connection string
	MaxConns     int32
	MinConns     int32
	AutoMigrate  bool
	SeedDemoData bool
	Logger       zerolog.Logger
	Clock        func() time.Time
}

// Engine owns the single database handle shared by every repository. It is
// constructed once at startup and passed to the repositories explicitly.
type Engine struct {
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect Dialect
	source  string
	logger  zerolog.Logger
	clock   func() time.Time
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to the configured backend, applies pending migrations and,
// on a database that had never been migrated before, seeds the demo rows.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	var (
		sqlDB  *sql.DB
		pool   *pgxpool.Pool
		source string
		err    error
	)

	switch opts.Driver {
	case DialectSQLite, "":
		opts.Driver = DialectSQLite
		if opts.Path == "" {
			opts.Path = DatabaseName
		}
		source = opts.Path
		sqlDB, err = openSQLite(ctx, opts.Path)
	case DialectPostgres:
		source = redactURL(opts.DatabaseURL)
		pool, err = NewPool(ctx, opts.DatabaseURL, opts.MaxConns, opts.MinConns)
		if err == nil {
			sqlDB = stdlib.OpenDBFromPool(pool)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	e := New(sqlDB, opts.Driver, opts.Logger, opts.Clock)
	e.pool = pool
	e.source = source

	if opts.AutoMigrate {
		applied, fresh, err := e.Migrate(ctx)
		if err != nil {
			e.Close()
			return nil, err
		}
		if applied > 0 {
			e.logger.Info().Int("applied", applied).Msg("migrations applied")
		}
		if fresh && opts.SeedDemoData {
			if err := e.SeedDemo(ctx); err != nil {
				e.Close()
				return nil, fmt.Errorf("seed demo data: %w", err)
			}
			e.logger.Info().Msg("seeded demo data")
		}
	}

	return e, nil
}

// New wraps an already opened handle.
func New(sqlDB *sql.DB, dialect Dialect, logger zerolog.Logger, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		db:      sqlDB,
		dialect: dialect,
		logger:  logger,
		clock:   clock,
	}
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	// Pragmas go in the DSN so they are applied to every connection the
	// pool opens, not only the first one.
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One writable connection; writers serialize on it.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return sqlDB, nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "postgres"
	}
	return u.Redacted()
}

// DB exposes the underlying handle.
func (e *Engine) DB() *sql.DB { return e.db }

// Dialect returns the backend in use.
func (e *Engine) Dialect() Dialect { return e.dialect }

// Logger returns the engine's logger.
func (e *Engine) Logger() zerolog.Logger { return e.logger }

// Now returns the current time from the engine clock.
func (e *Engine) Now() time.Time { return e.clock() }

// Today returns the current date in storage format.
func (e *Engine) Today() string { return e.clock().Format(DateLayout) }

// Timestamp returns the current time in storage format.
func (e *Engine) Timestamp() string { return e.clock().Format(TimestampLayout) }

// DaysFromToday returns today plus n days (n may be negative) in storage format.
func (e *Engine) DaysFromToday(n int) string {
	return e.clock().AddDate(0, 0, n).Format(DateLayout)
}

// StartOfMonth returns the first day of the current month in storage format.
func (e *Engine) StartOfMonth() string {
	now := e.clock()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Format(DateLayout)
}

// Close releases the database handle.
func (e *Engine) Close() error {
	err := e.db.Close()
	if e.pool != nil {
		e.pool.Close()
	}
	return err
}

// Ping checks the connection.
func (e *Engine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

type txKey struct{}

// TxFromContext returns the transaction bound to ctx by WithTx, if any.
func TxFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// WithTx runs fn inside a transaction. Repositories called with the context
// passed to fn participate in it. A nested WithTx reuses the outer
// transaction.
func (e *Engine) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return e.Fault(ctx, "begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return e.Fault(ctx, "commit transaction", err)
	}
	return nil
}

// Conn returns the transaction bound to ctx or the database handle. On
// postgres the returned Querier rewrites ? placeholders to $n.
func (e *Engine) Conn(ctx context.Context) Querier {
	var q Querier = e.db
	if tx := TxFromContext(ctx); tx != nil {
		q = tx
	}
	if e.dialect == DialectPostgres {
		return rebinder{q: q}
	}
	return q
}

type rebinder struct{ q Querier }

func (r rebinder) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.q.ExecContext(ctx, Rebind(DialectPostgres, query), args...)
}

func (r rebinder) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.q.QueryContext(ctx, Rebind(DialectPostgres, query), args...)
}

func (r rebinder) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return r.q.QueryRowContext(ctx, Rebind(DialectPostgres, query), args...)
}

// Rebind rewrites ? placeholders into the dialect's bind syntax.
func Rebind(d Dialect, query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Aggregates and maintenance
// ---------------------------------------------------------------------------

// DashboardStats holds the three headline counts shown on the dashboard.
type DashboardStats struct {
	Patients       int `json:"patients"`
	MedicalRecords int `json:"medical_records"`
	Medications    int `json:"medications"`
}

// Stats returns active patients, all medical records and active medications.
func (e *Engine) Stats(ctx context.Context) (DashboardStats, error) {
	var s DashboardStats
	err := e.Conn(ctx).QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM `+TablePatients+` WHERE is_active = 1),
			(SELECT COUNT(*) FROM `+TableMedicalRecords+`),
			(SELECT COUNT(*) FROM `+TableMedications+` WHERE is_active = 1)`,
	).Scan(&s.Patients, &s.MedicalRecords, &s.Medications)
	if err != nil {
		return DashboardStats{}, e.Fault(ctx, "dashboard stats", err)
	}
	return s, nil
}

// HasColumn reports whether table currently has the named column.
func (e *Engine) HasColumn(ctx context.Context, table, column string) (bool, error) {
	var query string
	switch e.dialect {
	case DialectPostgres:
		query = `SELECT COUNT(*) FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?`
	default:
		query = `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`
	}
	var n int
	if err := e.Conn(ctx).QueryRowContext(ctx, query, table, column).Scan(&n); err != nil {
		return false, e.Fault(ctx, "check column", err)
	}
	return n > 0, nil
}

// Info describes the open database.
type Info struct {
	Name          string `json:"name"`
	Driver        string `json:"driver"`
	Source        string `json:"source"`
	SchemaVersion int    `json:"schema_version"`
	Migrations    int    `json:"migrations"`
}

func (i Info) String() string {
	return fmt.Sprintf("Database: %s, Version: %d, Path: %s", i.Name, i.SchemaVersion, i.Source)
}

// Info reports the backend, source and applied schema version.
func (e *Engine) Info(ctx context.Context) (Info, error) {
	info := Info{
		Name:   DatabaseName,
		Driver: string(e.dialect),
		Source: e.source,
	}
	m := e.Migrator()
	if err := m.EnsureMigrationsTable(ctx); err != nil {
		return info, err
	}
	applied, err := m.AppliedVersions(ctx)
	if err != nil {
		return info, e.Fault(ctx, "database info", err)
	}
	for v := range applied {
		if v > info.SchemaVersion {
			info.SchemaVersion = v
		}
	}
	info.Migrations = len(applied)
	return info, nil
}

// ClearAll removes every row from the three tables in one transaction.
func (e *Engine) ClearAll(ctx context.Context) error {
	return e.WithTx(ctx, func(ctx context.Context) error {
		for _, table := range []string{TableMedications, TableMedicalRecords, TablePatients} {
			if _, err := e.Conn(ctx).ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return e.Fault(ctx, "clear "+table, err)
			}
		}
		return nil
	})
}
