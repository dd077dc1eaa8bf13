package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "0.0.0.0"
	defaultServerPort    = 8080
	defaultPoolSize      = 5
	defaultUploadsDir    = "assets"
)

// Config holds the process configuration. Environment variables are the
// primary source; an optional YAML file may override individual keys.
type Config struct {
	DatabaseURL     string `mapstructure:"database_url"`
	ServerAddress   string `mapstructure:"server_address"`
	ServerPort      int    `mapstructure:"server_port"`
	MaximumPoolSize int    `mapstructure:"maximum_pool_size"`
	WebClient       string `mapstructure:"web_client"`
	LogLevel        string `mapstructure:"log_level"`
	UploadsDir      string `mapstructure:"uploads_dir"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerAddress, c.ServerPort)
}

// LoadConfig reads configuration from the environment and, when file is not
// empty, from a YAML file watched for changes. Only the log level is applied
// on reload; everything else requires a restart.
func LoadConfig(file string, level *slog.LevelVar, logger *slog.Logger) (*Config, error) {
	v := viper.New()

	v.SetDefault("server_address", defaultServerAddress)
	v.SetDefault("server_port", defaultServerPort)
	v.SetDefault("maximum_pool_size", defaultPoolSize)
	v.SetDefault("log_level", "info")
	v.SetDefault("uploads_dir", defaultUploadsDir)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{
		"database_url", "server_address", "server_port",
		"maximum_pool_size", "web_client", "log_level", "uploads_dir",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
		v.OnConfigChange(func(e fsnotify.Event) {
			lvl := ParseLevel(v.GetString("log_level"))
			level.Set(lvl)
			logger.Info("config reloaded", "file", e.Name, "log_level", lvl.String())
		})
		v.WatchConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL must be set")
	}
	level.Set(ParseLevel(cfg.LogLevel))
	return &cfg, nil
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
