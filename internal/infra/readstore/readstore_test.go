//go:build unit

package readstore_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"packsend-service/internal/infra"
	"packsend-service/internal/infra/readstore"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newGormMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = sqlDB.Close()
	})

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gdb, mock
}

// =============================================================================
// Staff Tests
// =============================================================================

func TestStaffReadStore_ResolveName(t *testing.T) {
	staffQuery := regexp.QuoteMeta(`FROM "staff" WHERE id = $1`)

	tests := []struct {
		name       string
		setupMock  func(mock sqlmock.Sqlmock)
		wantName   string
		expectKind infra.RepositoryErrorKind
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(staffQuery).
					WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "active"}).AddRow("staff-a", "Aroha", true))
			},
			wantName: "Aroha",
		},
		{
			name: "unknown staff member",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(staffQuery).
					WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "active"}))
			},
			expectKind: infra.KindNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(staffQuery).WillReturnError(errors.New("connection refused"))
			},
			expectKind: infra.KindDBFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gdb, mock := newGormMock(t)
			tt.setupMock(mock)

			name, err := readstore.NewStaffReadStore(gdb).ResolveName(context.Background(), "staff-a")
			if tt.expectKind != "" {
				assert.True(t, infra.IsKind(err, tt.expectKind), "expected kind [%v] but got (%v)", tt.expectKind, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

// =============================================================================
// Capacity Tests
// =============================================================================

func TestCapacityReadStore_CapacitiesForLane(t *testing.T) {
	gdb, mock := newGormMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "carrier_containers" WHERE lane = $1 ORDER BY capacity_kg ASC`)).
		WithArgs("nzc").
		WillReturnRows(sqlmock.NewRows([]string{"id", "lane", "code", "capacity_kg", "tare_kg"}).
			AddRow(1, "nzc", "NZC-SATCHEL", 5.0, 0.1).
			AddRow(2, "nzc", "NZC-CARTON", 25.0, 0.8))

	caps, err := readstore.NewCapacityReadStore(gdb).CapacitiesForLane(context.Background(), "nzc")
	require.NoError(t, err)
	require.Len(t, caps, 2)
	assert.Equal(t, "NZC-SATCHEL", caps[0].Code)
	assert.Equal(t, 5.0, caps[0].CapacityKg)
	assert.Equal(t, 0.8, caps[1].TareKg)
}
