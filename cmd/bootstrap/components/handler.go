package components

import (
	"packsend-service/internal/handler"
	"packsend-service/internal/handler/api"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewLockHandler,
		api.NewPackSendHandler,
		func(lock *api.LockHandler, packSend *api.PackSendHandler) handler.Handlers {
			return handler.Handlers{Lock: lock, PackSend: packSend}
		},
	),
	fx.Invoke(handler.NewRouter),
)
