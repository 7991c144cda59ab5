package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"stockade/internal/world"
)

type JailConfig struct {
	TickMS                int `env:"TICK_MS" envDefault:"50"`
	WardenPeriodTicks     int `env:"WARDEN_PERIOD_TICKS" envDefault:"20"`
	WardenJitterTicks     int `env:"WARDEN_JITTER_TICKS" envDefault:"20"`
	ReturnDelayTicks      int `env:"RETURN_DELAY_TICKS" envDefault:"5"`
	LateReleaseDelayTicks int `env:"LATE_RELEASE_DELAY_TICKS" envDefault:"10"`

	RootNamespace  string   `env:"ROOT_NAMESPACE" envDefault:"stockade"`
	RootFacility   string   `env:"ROOT_FACILITY" envDefault:"default"`
	FacilityOwners []string `env:"FACILITY_OWNERS" envSeparator:","`

	DefaultWorld string            `env:"DEFAULT_WORLD" envDefault:"world"`
	WorldSpawns  map[string]string `env:"WORLD_SPAWNS" envDefault:"world=0,64,0" envSeparator:";" envKeyValSeparator:"="`
}

// Spawns parses WORLD_SPAWNS into spawn coordinates keyed by world name.
func (c JailConfig) Spawns() (map[string]world.Coordinate, error) {
	out := make(map[string]world.Coordinate, len(c.WorldSpawns))
	for name, raw := range c.WorldSpawns {
		name = strings.TrimSpace(name)
		coord, err := world.ParseCoordinate(name, raw)
		if err != nil {
			return nil, fmt.Errorf("WORLD_SPAWNS %s: %w", name, err)
		}
		out[name] = coord
	}
	return out, nil
}

func LoadJail() (JailConfig, error) {
	var cfg JailConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if cfg.TickMS <= 0 {
		return cfg, fmt.Errorf("TICK_MS must be positive, got %d", cfg.TickMS)
	}
	if cfg.WardenPeriodTicks <= 0 {
		return cfg, fmt.Errorf("WARDEN_PERIOD_TICKS must be positive, got %d", cfg.WardenPeriodTicks)
	}
	if _, err := cfg.Spawns(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
