package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	WSURL    string `env:"WS_URL" envDefault:"ws://localhost:8080/ws"`
	UserID   string `env:"USER_ID"`
	UserName string `env:"USER_NAME" envDefault:"inmate"`

	// Steps is how many random moves the bot makes before exiting; 0 runs
	// until interrupted.
	Steps int `env:"BOT_STEPS" envDefault:"0"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
