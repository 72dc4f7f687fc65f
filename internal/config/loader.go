package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	configDir  = ".bqbatch"
	configFile = "config"
	configType = "yaml"
)

// Load reads the configuration from ~/.bqbatch/config.yaml.
// Returns a config with defaults if the file does not exist.
func Load() (*Config, error) {
	dir, err := configDirPath()
	if err != nil {
		return nil, fmt.Errorf("config dir: %w", err)
	}

	viper.SetConfigName(configFile)
	viper.SetConfigType(configType)
	viper.AddConfigPath(dir)

	// Defaults
	viper.SetDefault("preferences.theme", "default")
	viper.SetDefault("batch.max_concurrency", 4)
	viper.SetDefault("batch.query_timeout", 30*time.Second)
	viper.SetDefault("batch.retry_attempts", 3)
	viper.SetDefault("batch.backoff_base", 500*time.Millisecond)
	viper.SetDefault("batch.backoff_cap", 8*time.Second)

	cfg := &Config{}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := viper.Unmarshal(cfg); err != nil {
				return nil, fmt.Errorf("unmarshal defaults: %w", err)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to ~/.bqbatch/config.yaml. Passwords are
// never written; they live in the keyring.
func Save(cfg *Config) error {
	dir, err := configDirPath()
	if err != nil {
		return fmt.Errorf("config dir: %w", err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	sanitized := make([]Connection, len(cfg.Connections))
	copy(sanitized, cfg.Connections)
	for i := range sanitized {
		sanitized[i].Password = ""
	}

	viper.Set("connections", sanitized)
	viper.Set("batch", cfg.Batch)
	viper.Set("preferences", cfg.Preferences)

	path := filepath.Join(dir, configFile+"."+configType)
	return viper.WriteConfigAs(path)
}

// SaveConnection stores one connection: the password moves to the keyring
// and the profile is appended and persisted.
func SaveConnection(cfg *Config, conn Connection) error {
	if conn.Password != "" {
		// A failed keyring write keeps the password out of both stores;
		// the user re-enters it via the DSN next time.
		_ = StorePassword(conn.Name, conn.Password)
		conn.Password = ""
	}
	cfg.AddConnection(conn)
	return Save(cfg)
}

// DefaultConnection returns the default connection from config, or the first one.
func DefaultConnection(cfg *Config) *Connection {
	if len(cfg.Connections) == 0 {
		return nil
	}

	if cfg.Preferences.DefaultConnection != "" {
		for i := range cfg.Connections {
			if cfg.Connections[i].Name == cfg.Preferences.DefaultConnection {
				return &cfg.Connections[i]
			}
		}
	}

	return &cfg.Connections[0]
}

func configDirPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}
