package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetDataFolder() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars `yaml:",inline"`
	API     `yaml:"api"`
	Session `yaml:"session"`
}

// New reads the configuration from environment variables only.
func New() (Config, error) {
	var c mainConfig
	if err := cleanenv.ReadEnv(&c); err != nil {
		return nil, fmt.Errorf("[config New] failed to read environment: %w", err)
	}
	return c, nil
}

// Load reads a YAML configuration file, with environment variables taking
// precedence. A missing file falls back to New.
func Load(path string) (Config, error) {
	if path == "" {
		return New()
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return New()
		}
		return nil, fmt.Errorf("[config Load] stat %s: %w", path, err)
	}

	var c mainConfig
	if err := cleanenv.ReadConfig(path, &c); err != nil {
		return nil, fmt.Errorf("[config Load] failed to read %s: %w", path, err)
	}
	return c, nil
}
