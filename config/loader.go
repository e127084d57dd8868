package config

import (
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/exoplanet/pkg/log"
)

// ProjectConfigFile is the name of the project-level config file
const ProjectConfigFile = "exoplanet.yaml"

// Load returns the configuration from path, or from the nearest
// exoplanet.yaml in the working directory and its parents when path is
// empty, or the defaults when neither exists. The result is validated.
func Load(path string) (*Config, error) {
	logger := log.GetLoggerWithName("config")

	if path == "" {
		path = findProjectConfig()
	}

	config := DefaultConfig()
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		config = loaded
		logger.Debug("Loaded config", log.SourcePathKey, path)
	} else {
		logger.Debug("No config file found, using defaults")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// findProjectConfig searches for exoplanet.yaml in current and parent directories
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
