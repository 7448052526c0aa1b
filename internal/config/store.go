package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// StoreConfig picks the result sink. An empty PostgresDSN falls back to
// logging records instead of storing them.
type StoreConfig struct {
	PostgresDSN    string        `env:"POSTGRES_DSN"`
	RecordBucket   string        `env:"RECORD_BUCKET" envDefault:"match_records"`
	PersistTimeout time.Duration `env:"PERSIST_TIMEOUT" envDefault:"10s"`
}

func LoadStore() (StoreConfig, error) {
	var cfg StoreConfig
	err := env.Parse(&cfg)
	return cfg, err
}
