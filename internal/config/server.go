package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type ServerConfig struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"file"`
	StateDir       string `env:"STATE_DIR" envDefault:"data"`
	PostgresDSN    string `env:"POSTGRES_DSN"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"stockade:"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	switch cfg.StorageBackend {
	case BackendFile, BackendRedis:
	case BackendPostgres:
		if cfg.PostgresDSN == "" {
			return cfg, fmt.Errorf("POSTGRES_DSN is required with STORAGE_BACKEND=%s", BackendPostgres)
		}
	default:
		return cfg, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	return cfg, nil
}
