package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Server  ServerConfig
	Session SessionConfig
	Store   StoreConfig
	Log     LogConfig
}

// LoadApp reads an optional .env file, then the process environment.
// Variables already set in the environment win over the file.
func LoadApp() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return AppConfig{}, err
	}

	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	sessionCfg, err := LoadSession()
	if err != nil {
		return AppConfig{}, err
	}
	storeCfg, err := LoadStore()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:  serverCfg,
		Session: sessionCfg,
		Store:   storeCfg,
		Log:     logCfg,
	}, nil
}
