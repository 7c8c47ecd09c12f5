// Package config loads collabflow settings from defaults, a YAML file,
// COLLABFLOW_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/collabflow/internal/integration"
)

const (
	// AppName names the config file and the config directories.
	AppName = "collabflow"

	// EnvPrefix prefixes every environment override, e.g. COLLABFLOW_API_BASE_URL.
	EnvPrefix = "COLLABFLOW"
)

// Config is the resolved configuration.
type Config struct {
	LogLevel          string       `mapstructure:"log_level"`
	LogFormat         string       `mapstructure:"log_format"`
	Database          string       `mapstructure:"database"`
	TimingProfile     string       `mapstructure:"timing"`
	CancelPropagation bool         `mapstructure:"cancel_propagation"`
	API               APIConfig    `mapstructure:"api"`
	Server            ServerConfig `mapstructure:"server"`

	// File is the config file that was read, empty if none was found.
	File string `mapstructure:"-"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	TokenFile string        `mapstructure:"token_file"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the HTTP status server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"log-level":   "log_level",
	"log-format":  "log_format",
	"db":          "database",
	"timing":      "timing",
	"api-url":     "api.base_url",
	"token-file":  "api.token_file",
	"addr":        "server.addr",
	"cancel-hard": "cancel_propagation",
}

// Load resolves the configuration. An explicit file must exist; without
// one the default search paths are tried and a missing file is not an
// error. Flags that were set on the command line take precedence over
// everything else. flags may be nil.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		addSearchPaths(v)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	dir := defaultDir()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("database", filepath.Join(dir, "audit.db"))
	v.SetDefault("timing", "production")
	v.SetDefault("cancel_propagation", false)

	v.SetDefault("api.base_url", "http://localhost:8080/api")
	v.SetDefault("api.token_file", filepath.Join(dir, "token.json"))
	v.SetDefault("api.rate_limit", 10.0)
	v.SetDefault("api.burst", 5)
	v.SetDefault("api.timeout", "30s")

	v.SetDefault("server.addr", "127.0.0.1:7070")
}

func addSearchPaths(v *viper.Viper) {
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, AppName))
	}
	v.AddConfigPath("/etc/" + AppName)
}

func defaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, AppName)
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, ok := integration.TimingProfile(c.TimingProfile); !ok {
		return fmt.Errorf("unknown timing profile %q", c.TimingProfile)
	}
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.Burst < 0 {
		return fmt.Errorf("api.burst must not be negative, got %d", c.API.Burst)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative, got %s", c.API.Timeout)
	}
	return nil
}

// Timing returns the polling profile named by TimingProfile.
func (c *Config) Timing() integration.Timing {
	t, _ := integration.TimingProfile(c.TimingProfile)
	return t
}
