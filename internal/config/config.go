package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved application configuration.
type Config struct {
	// APIURL is the backend base URL including the /api prefix.
	APIURL string `mapstructure:"api_url"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`
}

const defaultAPIURL = "http://localhost:6000/api"

// DefaultPath returns the default configuration file path,
// ~/.config/keylcop/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "keylcop", "config.yaml")
}

// Load reads configuration from the given file (DefaultPath when empty)
// with KEYLCOP_* environment overrides. A missing file is not an error;
// defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("api_url", defaultAPIURL)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("keylcop")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		// A missing file just means defaults + env; a present-but-broken
		// file is a real error.
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
