// Package config loads process settings from the environment and game rules
// from an optional rules file.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/pefman/quantum-battleships/internal/logs"
)

// GameServer is the environment of cmd/game.
type GameServer struct {
	Port string `env:"GAME_PORT" envDefault:"8081"`
	// PlatformPort wins over Port when the hosting platform injects PORT.
	PlatformPort string `env:"PORT"`
	// RecordsAPIBase is where finished matches are posted; empty disables it.
	RecordsAPIBase string `env:"RECORDS_API_BASE"`
	RulesFile      string `env:"RULES_FILE"`
	Log            logs.Config
}

// Addr returns the listen address.
func (c GameServer) Addr() string {
	return listenAddr(c.PlatformPort, c.Port)
}

// RecordsAPI is the environment of cmd/api.
type RecordsAPI struct {
	Port         string `env:"API_PORT" envDefault:"8080"`
	PlatformPort string `env:"PORT"`
	DBPath       string `env:"RECORDS_DB_PATH" envDefault:"records.db"`
	Log          logs.Config
}

// Addr returns the listen address.
func (c RecordsAPI) Addr() string {
	return listenAddr(c.PlatformPort, c.Port)
}

// HotSeat is the environment of cmd/hotseat.
type HotSeat struct {
	RulesFile string `env:"RULES_FILE"`
	Log       logs.Config
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func listenAddr(platform, port string) string {
	if platform != "" {
		return ":" + platform
	}
	return ":" + port
}
