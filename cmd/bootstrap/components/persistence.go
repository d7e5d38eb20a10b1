package components

import (
	"context"
	"log/slog"

	"packsend-service/internal/domain/packsend"
	"packsend-service/internal/infra/cache"
	"packsend-service/internal/infra/idempotency"
	"packsend-service/internal/infra/readstore"
	"packsend-service/internal/infra/sweeper"
	"packsend-service/internal/infra/uow"
	"packsend-service/internal/pkg/clock"
	"packsend-service/internal/pkg/config"
	"packsend-service/internal/usecase/commands"
	"packsend-service/internal/usecase/shared"

	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	readstoreModule,
	repositoryModule,
	cacheModule,
)

var readstoreModule = fx.Module("persistence/readstore",
	fx.Provide(
		// Staff
		fx.Annotate(
			readstore.NewStaffReadStore,
			fx.As(new(commands.StaffDirectory)),
		),
		// Carrier capacity
		fx.Annotate(
			readstore.NewCapacityReadStore,
			fx.As(new(packsend.CapacitySource)),
		),
	),
)

var repositoryModule = fx.Module("persistence/repository",
	fx.Provide(
		// UnitOfWork builds every pgx repository per transaction
		uow.NewPostgresUoW,
	),
)

var cacheModule = fx.Module("persistence/cache",
	fx.Provide(
		NewCache,
		fx.Annotate(
			NewIdempotencyStore,
			fx.As(new(commands.IdempotencyStore)),
			fx.As(new(sweeper.IdempotencyPurger)),
		),
	),
)

// NewCache prefers Redis and degrades to the in-process cache when it is unset or down.
func NewCache(lc fx.Lifecycle, cfg config.Config, clk clock.Clock, logger *slog.Logger) cache.Cache {
	if cfg.Redis.Addr == "" {
		logger.Info("redis not configured, using in-memory idempotency cache")
		return cache.NewMemoryCache(clk)
	}
	client, err := cache.OpenRedis(context.Background(), cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory idempotency cache", "addr", cfg.Redis.Addr, "error", err.Error())
		return cache.NewMemoryCache(clk)
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})
	return cache.NewRedisCache(client)
}

func NewIdempotencyStore(c cache.Cache, u shared.UnitOfWork, cfg config.Config, clk clock.Clock, logger *slog.Logger) *idempotency.Store {
	return idempotency.NewStore(c, u, cfg.Redis.Prefix, cfg.PackSend.IdempotencyRetention, clk, logger)
}
