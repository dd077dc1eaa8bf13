package storage

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/quickroom/room-service/config"
)

var Module = fx.Module("storage",
	fx.Provide(
		fx.Annotate(
			NewStore,
			fx.As(new(Store)),
		),
	),
)

// NewStore opens the pool eagerly so a misconfigured DATABASE_URL fails the
// app at startup instead of on the first request.
func NewStore(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := Open(ctx, cfg.DatabaseURL, cfg.MaximumPoolSize, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})
	return db, nil
}
