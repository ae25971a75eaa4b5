package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port        string
	DatabaseURL string // empty disables the run archive
	RedisURL    string // empty disables the progress cache
	JWTSecret   string
	Profile     string
	Spread      float64 // 0 = profile default
	Speed       string
}

// Load reads an optional .env file, then configuration from environment
// variables with sensible defaults.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment from .env")
	}
	return &Config{
		Port:        envOrDefault("PORT", "8010"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   envOrDefault("JWT_SECRET", "dev-secret-change-me"),
		Profile:     envOrDefault("CIV_PROFILE", "ranked"),
		Spread:      floatOrDefault("STRENGTH_SPREAD", 0),
		Speed:       envOrDefault("SIM_SPEED", "medium"),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func floatOrDefault(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-numeric config value")
		return fallback
	}
	return f
}
