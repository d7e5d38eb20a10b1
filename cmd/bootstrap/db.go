package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"packsend-service/internal/infra/db"
	"packsend-service/internal/infra/migrate"
	"packsend-service/internal/pkg/config"
	"packsend-service/internal/pkg/errs"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	slowQueryThreshold = 200 * time.Millisecond
	readPoolSize       = 5
)

var DBModule = fx.Module("db",
	fx.Provide(
		NewDB,
		NewGormDB,
	),
)

func NewDB(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx := context.Background()
	if cfg.DB.AutoMigrate {
		if err := migrate.Up(ctx, cfg.DB.BuildDSN()); err != nil {
			return nil, err
		}
	}

	pool, cleanup, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if cleanup != nil {
				cleanup()
			}
			return nil
		},
	})

	return pool, nil
}

// NewGormDB backs the read stores. It shares the DSN but not the pool.
func NewGormDB(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DB.BuildDSN()), &gorm.Config{
		Logger: gormlogger.NewSlogLogger(logger, gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, errs.Wrap(err, "failed to open gorm")
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, errs.Wrap(err, "failed to get gorm sql.DB")
	}
	sqlDB.SetMaxOpenConns(readPoolSize)

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return sqlDB.Close()
		},
	})
	return gdb, nil
}
