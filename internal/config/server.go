package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	WSReadTimeout  time.Duration `env:"WS_READ_TIMEOUT" envDefault:"90s"`
	WSWriteTimeout time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"5s"`
	WSOutboxSize   int           `env:"WS_OUTBOX_SIZE" envDefault:"32"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
