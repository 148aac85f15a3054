// Package config resolves the engine's well-known store path and operational
// defaults. Precedence: AGENTMAIL_DB environment variable, then the optional
// ~/.agentmail/config.yaml, then built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvDBPath overrides the store path for a single invocation.
	EnvDBPath = "AGENTMAIL_DB"

	defaultDirName = ".agentmail"
	defaultDBName  = "agentmail.db"
	configFileName = "config.yaml"

	DefaultTTL          = time.Hour
	DefaultActiveWindow = 60 * time.Minute
	DefaultBusyTimeout  = 5 * time.Second
)

// Config carries everything a single invocation needs.
type Config struct {
	DBPath       string        `yaml:"db_path"`
	TTL          time.Duration `yaml:"default_ttl"`
	ActiveWindow time.Duration `yaml:"active_window"`
	BusyTimeout  time.Duration `yaml:"busy_timeout"`
}

// Load resolves the configuration. A missing config file is not an error;
// a malformed one is.
func Load() (Config, error) {
	cfg := Config{
		TTL:          DefaultTTL,
		ActiveWindow: DefaultActiveWindow,
		BusyTimeout:  DefaultBusyTimeout,
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home dir: %w", err)
	}
	cfg.DBPath = filepath.Join(home, defaultDirName, defaultDBName)

	if fileCfg, err := loadFile(filepath.Join(home, defaultDirName, configFileName)); err != nil {
		return Config{}, err
	} else {
		if fileCfg.DBPath != "" {
			cfg.DBPath = fileCfg.DBPath
		}
		if fileCfg.TTL > 0 {
			cfg.TTL = fileCfg.TTL
		}
		if fileCfg.ActiveWindow > 0 {
			cfg.ActiveWindow = fileCfg.ActiveWindow
		}
		if fileCfg.BusyTimeout > 0 {
			cfg.BusyTimeout = fileCfg.BusyTimeout
		}
	}

	if env := os.Getenv(EnvDBPath); env != "" {
		cfg.DBPath = env
	}
	return cfg, nil
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}
