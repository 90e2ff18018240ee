package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

type Config struct {
	Port        int    `env:"PORT"`
	DBPath      string `env:"DATABASE_PATH"`
	FrontendURL string `env:"FRONTEND_URL"`
	CORSOrigin  string `env:"CORS_ORIGIN"`
	LogLevel    string `env:"LOG_LEVEL"`
}

// Load reads config.yaml from path (or the working directory when path is
// empty), falls back to defaults when the file is missing, and lets
// environment variables override both.
func Load(path string) (Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetDefault("server.port", 5000)
	v.SetDefault("database.path", "data.db")
	v.SetDefault("frontend.url", "http://localhost:3000")
	v.SetDefault("cors.origin", "*")
	v.SetDefault("log.level", "info")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		slog.Info("no config file found, using defaults")
	}

	cfg := Config{
		Port:        v.GetInt("server.port"),
		DBPath:      v.GetString("database.path"),
		FrontendURL: v.GetString("frontend.url"),
		CORSOrigin:  v.GetString("cors.origin"),
		LogLevel:    v.GetString("log.level"),
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}

// SlogLevel converts the configured level name, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
