// Package peertransport connects a replicated document and its awareness registry to the other peers of a room.
package peertransport

import (
	"context"
	"fmt"
	"time"

	"github.com/knowtis/knowtis-collab/src/collab/internal/broadcast"
	"github.com/knowtis/knowtis-collab/src/collab/internal/clock"
	"github.com/knowtis/knowtis-collab/src/collab/internal/crdt"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_configKey              = "transport"
	_defaultOutdatedTimeout = 30 * time.Second
	_defaultPingInterval    = 30 * time.Second
)

// Conn is a connection to one room. Data sent is delivered to every other member of the room.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	Subscribe(fn func(data []byte)) (unsubscribe func())
	Close() error
}

// Reconnector is implemented by connections that are established in the background and can drop and come back.
// Handlers run every time the connection is established.
type Reconnector interface {
	OnReconnect(fn func())
}

// Dialer opens room connections.
type Dialer interface {
	Dial(ctx context.Context, room string) (Conn, error)
}

// Config selects the room transport.
type Config struct {
	// Driver is "memory", "redis" or "websocket".
	Driver          string        `yaml:"driver"`
	RedisURL        string        `yaml:"redisURL"`
	SignalingURL    string        `yaml:"signalingURL"`
	PingInterval    time.Duration `yaml:"pingInterval"`
	OutdatedTimeout time.Duration `yaml:"outdatedTimeout"`
}

// Module provides the Transport used to create providers.
var Module = fx.Options(
	fx.Provide(New),
)

// Params are inbound parameters to initialize the Transport.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
	Clock     clock.Clock
}

// Transport creates providers that share one Dialer.
type Transport struct {
	dialer          Dialer
	clk             clock.Clock
	logger          *zap.SugaredLogger
	outdatedTimeout time.Duration
}

// New builds the Dialer selected by the transport configuration section.
func New(p Params) (*Transport, error) {
	cfg := Config{Driver: "memory"}
	if v := p.Config.Get(_configKey); v.HasValue() {
		if err := v.Populate(&cfg); err != nil {
			return nil, fmt.Errorf("loading %s config: %w", _configKey, err)
		}
	}
	logger := p.Logger.With("component", "peer-transport", "driver", cfg.Driver)

	var dialer Dialer
	switch cfg.Driver {
	case "", "memory":
		dialer = NewChannelDialer(broadcast.NewBus())
	case "redis":
		opener, err := broadcast.NewRedisOpener(cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return opener.Close()
			},
		})
		dialer = NewChannelDialer(opener)
	case "websocket":
		if cfg.SignalingURL == "" {
			return nil, fmt.Errorf("transport driver %q requires signalingURL", cfg.Driver)
		}
		dialer = NewWebSocketDialer(cfg.SignalingURL, cfg.PingInterval, logger)
	default:
		return nil, fmt.Errorf("unknown transport driver %q", cfg.Driver)
	}
	return NewTransport(dialer, p.Clock, logger, cfg.OutdatedTimeout), nil
}

// NewTransport wraps a Dialer. A zero outdatedTimeout uses the default of 30 seconds.
func NewTransport(dialer Dialer, clk clock.Clock, logger *zap.SugaredLogger, outdatedTimeout time.Duration) *Transport {
	if outdatedTimeout <= 0 {
		outdatedTimeout = _defaultOutdatedTimeout
	}
	return &Transport{
		dialer:          dialer,
		clk:             clk,
		logger:          logger,
		outdatedTimeout: outdatedTimeout,
	}
}

// NewProvider creates a disconnected provider for doc in room.
func (t *Transport) NewProvider(room string, doc *crdt.Doc) *Provider {
	return newProvider(room, doc, t.dialer, t.clk, t.logger, t.outdatedTimeout)
}
