// Package config reads server settings from the environment. Every
// value has a default so the server boots with no configuration at
// all; DATABASE_URL and REDIS_ADDR are opt-in.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the complete runtime configuration.
type Config struct {
	Port        string
	DatabaseURL string
	RedisAddr   string
	RedisPass   string
	RedisDB     int

	// TurnTimeLimit bounds one player's turn before it is auto-skipped.
	TurnTimeLimit time.Duration
	// DisconnectCoalesce groups disconnects close in time into one
	// pause episode.
	DisconnectCoalesce time.Duration
	// DecisionGrace is how long the pause coordinator waits for a
	// disconnected player before asking the room what to do.
	DecisionGrace time.Duration
	// LobbyRemoval is how long a disconnected lobby member keeps their
	// seat before being dropped.
	LobbyRemoval time.Duration

	LogLevel string
}

// Load builds a Config from the environment.
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPass:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		TurnTimeLimit:      getEnvSeconds("TURN_TIME_LIMIT_SECONDS", 30),
		DisconnectCoalesce: getEnvSeconds("DISCONNECT_COALESCE_SECONDS", 10),
		DecisionGrace:      getEnvSeconds("DISCONNECT_GRACE_SECONDS", 20),
		LobbyRemoval:       getEnvSeconds("LOBBY_REMOVAL_SECONDS", 10),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}
