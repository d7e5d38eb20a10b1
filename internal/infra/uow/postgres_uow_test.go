//go:build unit

package uow

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"packsend-service/internal/pkg/errs"
	"packsend-service/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUoW(t *testing.T) (*PostgresUoW, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	u := newPostgresUoW(mock)
	u.base = time.Millisecond
	return u, mock
}

func TestPostgresUoW_Within(t *testing.T) {
	ctx := context.Background()
	deleteExpired := regexp.QuoteMeta("DELETE FROM transfer_leases WHERE expires_at <= $1")
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	run := func(ctx context.Context, tx shared.Tx) error {
		_, err := tx.Leases().DeleteExpired(ctx, tx.DB(), now)
		return err
	}

	t.Run("commits on success", func(t *testing.T) {
		u, mock := newTestUoW(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteExpired).WithArgs(now).WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectCommit()

		require.NoError(t, u.Within(ctx, run))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retries serialization failures", func(t *testing.T) {
		u, mock := newTestUoW(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteExpired).WithArgs(now).WillReturnError(&pgconn.PgError{Code: pgErrCodeSerializationFailure})
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectExec(deleteExpired).WithArgs(now).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectCommit()

		require.NoError(t, u.Within(ctx, run))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and returns non-retryable errors", func(t *testing.T) {
		u, mock := newTestUoW(t)
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := u.Within(ctx, func(ctx context.Context, tx shared.Tx) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		u, mock := newTestUoW(t)
		u.maxRetries = 1
		for range 2 {
			mock.ExpectBegin()
			mock.ExpectExec(deleteExpired).WithArgs(now).WillReturnError(&pgconn.PgError{Code: pgErrCodeDeadlockDetected})
			mock.ExpectRollback()
		}

		err := u.Within(ctx, run)
		assert.True(t, errs.Is(err, errMaxRetriesExceeded), "got %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCalculateBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	for attempt := range 3 {
		wait := calculateBackoff(attempt, base)
		floor := time.Duration(1<<attempt) * base
		assert.GreaterOrEqual(t, wait, floor)
		assert.Less(t, wait, floor+floor/5)
	}
}
