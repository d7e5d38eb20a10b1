//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

const (
	StaffAlice = "staff-a"
	StaffBob   = "staff-b"
	StaffCarol = "staff-c"

	DefaultFromOutlet = "0a6f6e3c-9d1e-4f57-8a0b-2d7c1e5b9f01"
	DefaultToOutlet   = "5b2c7d4e-1f3a-4b6c-9d8e-7f0a1b2c3d4e"
)

// tables that survive ResetDB: goose bookkeeping and migration-seeded carrier data
var keepTables = []string{"goose_db_version", "carrier_containers"}

func CreateTestStaff(t *testing.T, db DBLike, id, displayName string) {
	t.Helper()

	_, err := db.Exec(context.Background(),
		"INSERT INTO staff (id, display_name, active) VALUES ($1, $2, true) ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name",
		id, displayName)
	require.NoError(t, err)
}

// CreateTestTransfer inserts an OPEN transfer between the default outlets and returns its id.
func CreateTestTransfer(t *testing.T, db DBLike) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(context.Background(),
		"INSERT INTO transfers (from_outlet_id, to_outlet_id) VALUES ($1, $2) RETURNING id",
		DefaultFromOutlet, DefaultToOutlet).Scan(&id)
	require.NoError(t, err)
	return id
}

// ExpireLease backdates a lease so the next lock operation sees it as stale.
func ExpireLease(t *testing.T, db DBLike, transferID int64) {
	t.Helper()

	_, err := db.Exec(context.Background(),
		"UPDATE transfer_leases SET heartbeat_at = now() - interval '2 hours', expires_at = now() - interval '1 hour' WHERE transfer_id = $1",
		transferID)
	require.NoError(t, err)
}

// ExpireTakeover backdates a pending takeover past its response window.
func ExpireTakeover(t *testing.T, db DBLike, requestID int64) {
	t.Helper()

	_, err := db.Exec(context.Background(),
		"UPDATE takeover_requests SET expires_at = now() - interval '1 minute' WHERE id = $1",
		requestID)
	require.NoError(t, err)
}

func CountRows(t *testing.T, db DBLike, table, where string, args ...any) int {
	t.Helper()

	query := "SELECT count(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	require.NoError(t, db.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

// inserts basic reference data needed by tests
func SeedReferenceData(pool *pgxpool.Pool) error {
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO staff (id, display_name) VALUES
		    ('staff-a', 'Alice Ngata'),
		    ('staff-b', 'Bob Tane'),
		    ('staff-c', 'Carol Wiremu')
		ON CONFLICT (id) DO NOTHING;
	`)
	return err
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables and reseeds reference data
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND NOT (tablename = ANY($1))`, keepTables)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}

	return SeedReferenceData(pool)
}
