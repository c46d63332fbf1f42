package core

import (
	"fmt"
	"os"
	"path/filepath"

	uber_config "go.uber.org/config"
	"go.uber.org/fx"
)

const _envConfigDir = "KNOWTIS_CONFIG_DIR"

// ConfigModule provides the YAML configuration provider and the collaboration settings derived from it.
var ConfigModule = fx.Options(
	fx.Provide(NewConfig),
	fx.Provide(NewCollabConfig),
)

// Config wraps the YAML provider assembled from the files listed in meta.yaml.
type Config struct {
	provider uber_config.Provider
}

// Get returns the value at path, e.g. "collab.channelName".
func (c Config) Get(path string) uber_config.Value {
	return c.provider.Get(path)
}

func (c Config) Name() string {
	return "config"
}

// NewConfig loads meta.yaml from the config directory, then layers every listed file that exists, in order.
func NewConfig() (uber_config.Provider, error) {
	configDir := getConfigDir()

	// meta.yaml only names the files to layer, base first.
	metaPath := filepath.Join(configDir, "meta.yaml")
	metaProvider, err := uber_config.NewYAML(
		uber_config.File(metaPath),
		uber_config.Expand(os.LookupEnv),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load meta configuration: %w", err)
	}

	// Read the ordered file list.
	var configFiles []string
	if err := metaProvider.Get("files").Populate(&configFiles); err != nil {
		return nil, fmt.Errorf("failed to read files list from meta.yaml: %w", err)
	}

	// Missing overlays are skipped, so a deployment can ship without local.yaml.
	var options []uber_config.YAMLOption
	for _, file := range configFiles {
		fullPath := filepath.Join(configDir, file)
		if _, err := os.Stat(fullPath); err == nil {
			options = append(options, uber_config.File(fullPath))
		}
	}

	if len(options) == 0 {
		return nil, fmt.Errorf("no configuration files found in %s", configDir)
	}
	// ${VAR:default} values are expanded from the process environment.
	options = append(options, uber_config.Expand(os.LookupEnv))

	// Later files override earlier ones key by key.
	provider, err := uber_config.NewYAML(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return Config{provider: provider}, nil
}

// getConfigDir returns the path to the configuration directory
func getConfigDir() string {
	// An explicit directory wins.
	if configDir := os.Getenv(_envConfigDir); configDir != "" {
		return configDir
	}

	// Relative to the repository root, where the daemon is normally launched from.
	return "src/collab/config"
}
