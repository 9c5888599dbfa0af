// Package dbtest opens throwaway SQLite engines for repository tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/patientrecords/patientrecords/internal/platform/db"
)

// Today is the fixed date returned by the engine clock in tests.
var Today = time.Date(2024, time.June, 15, 10, 30, 0, 0, time.UTC)

// Option adjusts the engine options before opening.
type Option func(*db.Options)

// WithDemoData seeds the demo rows on open.
func WithDemoData() Option {
	return func(o *db.Options) { o.SeedDemoData = true }
}

// WithClock overrides the fixed test clock.
func WithClock(clock func() time.Time) Option {
	return func(o *db.Options) { o.Clock = clock }
}

// Open returns a migrated engine over a fresh database file in t.TempDir().
// The engine is closed when the test ends.
func Open(t testing.TB, opts ...Option) *db.Engine {
	t.Helper()

	o := db.Options{
		Driver:      db.DialectSQLite,
		Path:        filepath.Join(t.TempDir(), db.DatabaseName),
		AutoMigrate: true,
		Logger:      zerolog.Nop(),
		Clock:       func() time.Time { return Today },
	}
	for _, opt := range opts {
		opt(&o)
	}

	eng, err := db.Open(context.Background(), o)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}
