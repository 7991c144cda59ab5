package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
	// File, when set, receives a copy of every record and rotates to
	// <File>.1 once it reaches MaxMB.
	File        string `env:"LOG_FILE"`
	MaxMB       int    `env:"LOG_MAX_MB" envDefault:"10"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level))); err != nil {
		return cfg, fmt.Errorf("LOG_LEVEL %q: %w", cfg.Level, err)
	}
	if cfg.File != "" && cfg.MaxMB <= 0 {
		return cfg, fmt.Errorf("LOG_MAX_MB must be positive when LOG_FILE is set, got %d", cfg.MaxMB)
	}
	return cfg, nil
}
