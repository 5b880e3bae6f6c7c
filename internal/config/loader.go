// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override settings,
// for example MUMBLE_SERVER.
const EnvPrefix = "MUMBLE"

// Load builds configuration from defaults, an optional config file, and
// environment variables. Precedence: defaults < config file < env vars <
// caller overrides.
//
// If path is empty, no file is read. If path names a file that does not
// exist, a file with the default settings is written there.
func Load(log zerolog.Logger, path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("server", cfg.Server)
	v.SetDefault("username", cfg.Username)
	v.SetDefault("password", cfg.Password)
	v.SetDefault("insecure", cfg.Insecure)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)
	v.SetDefault("request_timeout", cfg.RequestTimeout)
	v.SetDefault("message_rate", cfg.MessageRate)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
			if err := writeDefault(path, cfg); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to write default config")
			} else {
				log.Info().Str("path", path).Msg("created default config")
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func writeDefault(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
