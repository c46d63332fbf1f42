package app

import (
	"context"
	"time"

	"github.com/knowtis/knowtis-collab/src/collab/entity"
	"github.com/knowtis/knowtis-collab/src/collab/gateway"
	"github.com/knowtis/knowtis-collab/src/collab/handler"
	"github.com/knowtis/knowtis-collab/src/collab/internal/clock"
	"github.com/knowtis/knowtis-collab/src/collab/internal/core"
	"github.com/knowtis/knowtis-collab/src/collab/internal/frame"
	"github.com/knowtis/knowtis-collab/src/collab/internal/identity"
	"github.com/knowtis/knowtis-collab/src/collab/internal/persistence"
	"github.com/knowtis/knowtis-collab/src/collab/internal/serverinfofile"
	"github.com/uber-go/tally"
	"go.uber.org/fx"
)

// Module defines the collaboration core application module.
var Module = fx.Options(
	gateway.Module, // outbounds
	handler.Module, // inbounds
	persistence.Module,
	frame.Module,
	serverinfofile.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(clock.New),
	fx.Provide(func(cfg core.CollabConfig) entity.CollaborativeUser {
		return identity.NewUser(cfg.CursorColors)
	}),
	fx.Provide(func(lc fx.Lifecycle) tally.Scope {
		rs, closer := tally.NewRootScope(tally.ScopeOptions{
			Prefix: "collab",
			Tags: map[string]string{
				"service": "knowtis-collab",
			},
		}, 1*time.Second)

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})

		return rs
	}),
	fx.Decorate(decorateEnvContext),
	fx.Decorate(decorateLogger),
	fx.Provide(func() Context {
		return Context{
			Environment: EnvLocal,
		}
	}),
)
