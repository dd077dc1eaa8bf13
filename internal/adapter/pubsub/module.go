package pubsub

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("pubsub",
	fx.Provide(NewGroupBus),
	fx.Invoke(func(lc fx.Lifecycle, bus GroupBus) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return bus.Close()
			},
		})
	}),
)
