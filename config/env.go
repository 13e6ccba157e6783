// Package config reads the settings of a hangouts process from the
// environment and the player roster from a YAML file.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/luca-patrignani/hangouts/replica"
	"github.com/luca-patrignani/hangouts/signing"
)

// Config holds the settings shared by every command.
type Config struct {
	BoardWidth       int           `env:"HANGOUTS_BOARD_WIDTH" envDefault:"16"`
	BoardHeight      int           `env:"HANGOUTS_BOARD_HEIGHT" envDefault:"16"`
	KeyPolicy        string        `env:"HANGOUTS_KEY_POLICY" envDefault:"keep-first"`
	Signer           string        `env:"HANGOUTS_SIGNER" envDefault:"schnorr"`
	SendTimeout      time.Duration `env:"HANGOUTS_SEND_TIMEOUT" envDefault:"30s"`
	HandshakeTimeout time.Duration `env:"HANGOUTS_HANDSHAKE_TIMEOUT" envDefault:"10s"`
	LogLevel         string        `env:"HANGOUTS_LOG_LEVEL" envDefault:"info"`
	MetricsAddr      string        `env:"HANGOUTS_METRICS_ADDR"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates Config.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.BoardWidth <= 0 || c.BoardHeight <= 0 {
		return fmt.Errorf("invalid board size %dx%d", c.BoardWidth, c.BoardHeight)
	}
	if _, err := replica.ParseKeyPolicy(c.KeyPolicy); err != nil {
		return err
	}
	if _, err := signing.ByName(c.Signer); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.SendTimeout < 0 || c.HandshakeTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

func (c Config) Provider() (signing.Provider, error) {
	return signing.ByName(c.Signer)
}

// ReplicaOptions translates the board and key settings. Observer and logger
// are left to the caller.
func (c Config) ReplicaOptions() ([]replica.Option, error) {
	policy, err := replica.ParseKeyPolicy(c.KeyPolicy)
	if err != nil {
		return nil, err
	}
	return []replica.Option{
		replica.WithBoardSize(c.BoardWidth, c.BoardHeight),
		replica.WithKeyPolicy(policy),
	}, nil
}

func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}
