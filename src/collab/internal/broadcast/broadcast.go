//go:generate mockgen -source=broadcast.go -destination=broadcastmock/broadcast_mock.go -package=broadcastmock

// Package broadcast provides named publish/subscribe channels shared by every tab of one profile.
package broadcast

import (
	"context"
	"fmt"

	"github.com/knowtis/knowtis-collab/src/collab/internal/errors"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const _configKey = "broadcast"

// ErrClosed is returned by Post once the channel has been closed.
var ErrClosed = errors.ChannelClosedError

// Handler receives the payload of every message posted by another channel with the same name.
type Handler func(data []byte)

// Channel is one endpoint of a named broadcast channel. Posts are never delivered back to the posting endpoint.
type Channel interface {
	Name() string
	Post(ctx context.Context, data []byte) error
	Subscribe(fn Handler) (unsubscribe func())
	Close() error
}

// Opener creates channel endpoints.
type Opener interface {
	Open(ctx context.Context, name string) (Channel, error)
}

// Config selects the broadcast driver.
type Config struct {
	// Driver is "memory" or "redis".
	Driver   string `yaml:"driver"`
	RedisURL string `yaml:"redisURL"`
}

// Module provides the configured Opener.
var Module = fx.Options(
	fx.Provide(New),
)

// Params are inbound parameters to initialize the Opener.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
}

// New returns the Opener selected by the broadcast configuration section.
func New(p Params) (Opener, error) {
	cfg := Config{Driver: "memory"}
	if v := p.Config.Get(_configKey); v.HasValue() {
		if err := v.Populate(&cfg); err != nil {
			return nil, fmt.Errorf("loading %s config: %w", _configKey, err)
		}
	}
	logger := p.Logger.With("component", "broadcast", "driver", cfg.Driver)

	switch cfg.Driver {
	case "", "memory":
		return NewBus(), nil
	case "redis":
		opener, err := NewRedisOpener(cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return opener.Close()
			},
		})
		return opener, nil
	default:
		return nil, fmt.Errorf("unknown broadcast driver %q", cfg.Driver)
	}
}
