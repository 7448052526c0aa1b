package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type SessionConfig struct {
	ControllerGrace  time.Duration `env:"CONTROLLER_GRACE" envDefault:"120s"`
	CleanupAfter     time.Duration `env:"CLEANUP_AFTER" envDefault:"300s"`
	DefaultPlayerCap int           `env:"DEFAULT_PLAYER_CAP" envDefault:"40"`
}

func LoadSession() (SessionConfig, error) {
	var cfg SessionConfig
	err := env.Parse(&cfg)
	return cfg, err
}
