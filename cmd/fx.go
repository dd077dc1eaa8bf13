package cmd

import (
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/quickroom/room-service/config"
	httpserver "github.com/quickroom/room-service/infra/server/http"
	"github.com/quickroom/room-service/internal/adapter/pubsub"
	"github.com/quickroom/room-service/internal/domain/registry"
	"github.com/quickroom/room-service/internal/handler/rest"
	"github.com/quickroom/room-service/internal/handler/ws"
	"github.com/quickroom/room-service/internal/service"
	"github.com/quickroom/room-service/internal/storage"
)

func NewApp(cfg *config.Config, logger *slog.Logger) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			func() *slog.Logger { return logger },
			ProvideWatermillLogger,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger}
		}),
		storage.Module,
		registry.Module,
		pubsub.Module,
		service.Module,
		ws.Module,
		rest.Module,
		httpserver.Module,
	)
}

// NewLogger builds the process-wide structured logger. The level var stays
// shared with the config watcher so the level can change at runtime.
func NewLogger(level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}
