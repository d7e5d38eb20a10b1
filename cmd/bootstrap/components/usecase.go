package components

import (
	"packsend-service/internal/domain/packsend"
	"packsend-service/internal/infra/metrics"
	"packsend-service/internal/infra/mirror"
	"packsend-service/internal/pkg/clock"
	"packsend-service/internal/pkg/config"
	"packsend-service/internal/usecase/commands"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseDomainModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	fx.Annotate(
		metrics.New,
		fx.As(fx.Self()),
		fx.As(new(commands.LockRecorder)),
		fx.As(new(commands.PackSendRecorder)),
	),
	fx.Annotate(
		mirror.NewClient,
		fx.As(new(commands.Mirror)),
	),
	func(cfg config.Config) config.MirrorConfig {
		return cfg.Mirror
	},
)

var usecaseDomainModule = fx.Module("usecase/domain",
	fx.Provide(
		fx.Annotate(
			newGuardian,
			fx.As(new(commands.PolicyGate)),
		),
		fx.Annotate(
			packsend.NewParcelPlanner,
			fx.As(new(packsend.Estimator)),
		),
		packsend.NewHandlerRegistry,
	),
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		newLockConfig,
		newPackSendConfig,
		commands.NewLockUseCase,
		commands.NewPackSendUseCase,
	),
)

func newGuardian(cfg config.Config) *packsend.Guardian {
	return packsend.NewGuardian(cfg.PackSend.LargeShipmentKg)
}

func newLockConfig(cfg config.Config) commands.LockConfig {
	return commands.LockConfig{
		TTL:            cfg.Lock.TTL,
		TakeoverWindow: cfg.Lock.TakeoverWindow,
		TimeoutAccept:  cfg.Lock.TakeoverTimeoutAccept,
	}
}

func newPackSendConfig(cfg config.Config) commands.PackSendConfig {
	return commands.PackSendConfig{RequireLease: cfg.PackSend.RequireLease}
}
