package ws

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/quickroom/room-service/internal/domain/registry"
	"github.com/quickroom/room-service/internal/service"
)

var Module = fx.Module("ws",
	fx.Provide(
		func(logger *slog.Logger, auth service.Auther, messages *service.MessageService, hub registry.Hubber) *Handler {
			return NewHandler(logger, auth, messages, hub)
		},
	),
)
