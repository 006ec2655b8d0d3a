// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zarlcorp/zfill/internal/simplelogin"
)

const appName = "zfill"

// Config holds settings that do not live in the vault.
type Config struct {
	DataDir   string
	APIKey    string // overrides the key stored in the vault when set
	BaseURL   string
	LogLevel  slog.Level
	RateLimit float64 // provider requests per second
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	cfg := Config{
		DataDir: getEnv("ZFILL_DATA_DIR", DataDir()),
		APIKey:  strings.TrimSpace(os.Getenv("SIMPLELOGIN_API_KEY")),
		BaseURL: getEnv("SIMPLELOGIN_BASE_URL", simplelogin.DefaultBaseURL),
	}

	level, err := ParseLevel(getEnv("ZFILL_LOG_LEVEL", "warn"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	rate, err := strconv.ParseFloat(getEnv("ZFILL_RATE_LIMIT", "5"), 64)
	if err != nil || rate <= 0 {
		return Config{}, fmt.Errorf("ZFILL_RATE_LIMIT: want a positive number, got %q", os.Getenv("ZFILL_RATE_LIMIT"))
	}
	cfg.RateLimit = rate

	return cfg, nil
}

// DataDir returns the default data directory.
func DataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, ".local", "share", appName)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("ZFILL_LOG_LEVEL: %w", err)
	}
	return l, nil
}

// ResolveAPIKey prefers the environment key over the stored one.
func (c Config) ResolveAPIKey(stored string) string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return stored
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
