package app

import (
	"os"

	"github.com/knowtis/knowtis-collab/src/collab/entity"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Context describes where this process runs.
type Context struct {
	Environment string `yaml:"environment"`
}

const (
	// EnvLocal indicates that the service is running locally.
	EnvLocal = "local"

	// EnvDevelopment indicates that the service is running in a development environment.
	EnvDevelopment = "development"

	// Environment variables
	_envKnowtisEnvironment = "KNOWTIS_ENVIRONMENT"
)

func decorateEnvContext(env Context) Context {
	if os.Getenv(_envKnowtisEnvironment) == EnvDevelopment {
		env.Environment = EnvDevelopment
	} else {
		env.Environment = EnvLocal
	}
	return env
}

// DecorateLoggerParams is the set of dependencies required to decorate the logger.
type DecorateLoggerParams struct {
	fx.In

	Env    Context
	User   entity.CollaborativeUser
	Logger *zap.SugaredLogger
}

// decorateLogger tags every log line with the environment and the tab identity, so the logs of several tabs
// collected in one place can be told apart.
func decorateLogger(p DecorateLoggerParams) *zap.SugaredLogger {
	return p.Logger.With("environment", p.Env.Environment, "user", p.User.ID)
}
