package service

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		fx.Annotate(
			NewAuthService,
			fx.As(new(Auther)),
		),
		NewBroadcaster,
		NewGroupService,
		NewMessageService,
	),

	fx.Invoke(func(lc fx.Lifecycle, bc *Broadcaster) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				bc.Shutdown()
				return nil
			},
		})
	}),
)
