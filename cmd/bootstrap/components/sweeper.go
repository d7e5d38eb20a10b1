package components

import (
	"context"
	"log/slog"

	"packsend-service/internal/infra/sweeper"
	"packsend-service/internal/pkg/config"
	"packsend-service/internal/usecase/commands"

	"go.uber.org/fx"
)

var SweeperModule = fx.Module("sweeper",
	fx.Provide(
		func(locks commands.LockCommands) sweeper.LeaseSweeper { return locks },
		newSweeper,
	),
	fx.Invoke(func(*sweeper.Sweeper) {}),
)

func newSweeper(lc fx.Lifecycle, locks sweeper.LeaseSweeper, purger sweeper.IdempotencyPurger, cfg config.Config, logger *slog.Logger) (*sweeper.Sweeper, error) {
	s, err := sweeper.New(locks, purger, cfg.Lock.SweepInterval, logger,
		sweeper.WithPurgeSchedule(cfg.PackSend.PurgeSchedule))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
	return s, nil
}
