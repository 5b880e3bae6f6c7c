// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

// Package config loads the settings of the command-line client.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/gomumble/mumble"
)

// Config holds client settings.
type Config struct {
	Server         string        `mapstructure:"server" yaml:"server"` // host or host:port
	Username       string        `mapstructure:"username" yaml:"username"`
	Password       string        `mapstructure:"password" yaml:"password"`
	Insecure       bool          `mapstructure:"insecure" yaml:"insecure"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
	MetricsAddr    string        `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MessageRate    float64       `mapstructure:"message_rate" yaml:"message_rate"` // text messages per second, 0 for no limit
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Server:         "localhost",
		Username:       "gomumble",
		LogLevel:       "info",
		RequestTimeout: mumble.RequestTimeout,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Server != "" {
		c.Server = other.Server
	}
	if other.Username != "" {
		c.Username = other.Username
	}
	if other.Password != "" {
		c.Password = other.Password
	}
	if other.Insecure {
		c.Insecure = true
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.MetricsAddr != "" {
		c.MetricsAddr = other.MetricsAddr
	}
	if other.RequestTimeout != 0 {
		c.RequestTimeout = other.RequestTimeout
	}
	if other.MessageRate != 0 {
		c.MessageRate = other.MessageRate
	}
}

// HostPort splits the server address into a host and port. If the address
// has no port, mumble.DefaultPort is used.
func (c Config) HostPort() (string, int, error) {
	host, ps, err := net.SplitHostPort(c.Server)
	if err != nil {
		// Assume the address has no port.
		return c.Server, mumble.DefaultPort, nil
	}
	port, err := strconv.Atoi(ps)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, &net.AddrError{Err: "invalid port", Addr: c.Server}
	}
	return host, port, nil
}
