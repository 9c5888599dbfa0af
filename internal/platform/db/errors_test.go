package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patientrecords/patientrecords/internal/platform/db"
)

func newMockEngine(t *testing.T, dialect db.Dialect) (*db.Engine, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db.New(sqlDB, dialect, zerolog.Nop(), nil), mock
}

func TestFault_Classification(t *testing.T) {
	eng, _ := newMockEngine(t, db.DialectSQLite)
	ctx := context.Background()

	assert.NoError(t, eng.Fault(ctx, "op", nil))
	assert.ErrorIs(t, eng.Fault(ctx, "op", sql.ErrNoRows), db.ErrNotFound)
	assert.ErrorIs(t, eng.Fault(ctx, "op", context.Canceled), context.Canceled)
	assert.False(t, db.IsStorageFault(eng.Fault(ctx, "op", context.DeadlineExceeded)))
	assert.ErrorIs(t, eng.Fault(ctx, "op", db.ErrWriteFailed), db.ErrWriteFailed)

	diskErr := errors.New("disk I/O error")
	err := eng.Fault(ctx, "insert patient", diskErr)
	require.True(t, db.IsStorageFault(err))
	assert.ErrorIs(t, err, diskErr)
	assert.Contains(t, err.Error(), "insert patient")

	// Already-classified faults are not wrapped twice.
	again := eng.Fault(ctx, "outer", err)
	var se *db.StorageError
	require.ErrorAs(t, again, &se)
	assert.Equal(t, "insert patient", se.Op)
}

func TestFault_PostgresCode(t *testing.T) {
	eng, _ := newMockEngine(t, db.DialectPostgres)

	err := eng.Fault(context.Background(), "insert medication",
		&pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"})

	var se *db.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "23503", se.Code)
	assert.Contains(t, se.Error(), "23503")
}

func TestStats_DriverFailureIsStorageFault(t *testing.T) {
	eng, mock := newMockEngine(t, db.DialectSQLite)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("database disk image is malformed"))

	_, err := eng.Stats(context.Background())
	require.Error(t, err)
	assert.True(t, db.IsStorageFault(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats_PostgresRebindsNothingToRebind(t *testing.T) {
	eng, mock := newMockEngine(t, db.DialectPostgres)

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"p", "r", "m"}).AddRow(7, 11, 13))

	stats, err := eng.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, db.DashboardStats{Patients: 7, MedicalRecords: 11, Medications: 13}, stats)
}

func TestHasColumn_PostgresUsesNumberedPlaceholders(t *testing.T) {
	eng, mock := newMockEngine(t, db.DialectPostgres)

	mock.ExpectQuery(`(?s)information_schema\.columns.*table_name = \$1 AND column_name = \$2`).
		WithArgs("patients", "image_path").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := eng.HasColumn(context.Background(), "patients", "image_path")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAffected(t *testing.T) {
	eng, _ := newMockEngine(t, db.DialectSQLite)
	ctx := context.Background()

	assert.NoError(t, eng.Affected(ctx, "update", sqlmock.NewResult(0, 1)))
	assert.ErrorIs(t, eng.Affected(ctx, "update", sqlmock.NewResult(0, 0)), db.ErrWriteFailed)

	err := eng.Affected(ctx, "update", sqlmock.NewErrorResult(errors.New("no count")))
	assert.True(t, db.IsStorageFault(err))
}

func TestWithTx_CommitFailureIsStorageFault(t *testing.T) {
	eng, mock := newMockEngine(t, db.DialectSQLite)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	err := eng.WithTx(context.Background(), func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.True(t, db.IsStorageFault(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
