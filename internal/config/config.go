package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI string
	DBName   string
	AppEnv   string
	Port     string
	Session  SessionConfig
}

// SessionConfig carries everything the session subsystem needs. It is
// built once at startup and injected; missing or equal secrets make
// Load fail instead of surfacing at request time.
type SessionConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	CookieName    string
	// Retention controls how long expired refresh records are kept for
	// audit before the store may drop them. Zero keeps them forever.
	Retention time.Duration
}

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}

	cfg := Config{
		MongoURI: getEnvOrDefault("MONGO_URI", ""),
		DBName:   getEnvOrDefault("DB_NAME", "bajar"),
		AppEnv:   getEnvOrDefault("APP_ENV", "development"),
		Port:     getEnvOrDefault("PORT", "8080"),
		Session: SessionConfig{
			AccessSecret:  getEnvOrDefault("ACCESS_TOKEN_SECRET", ""),
			RefreshSecret: getEnvOrDefault("REFRESH_TOKEN_SECRET", ""),
			AccessTTL:     getDurationEnv("ACCESS_TOKEN_TTL", 15, time.Minute),
			RefreshTTL:    getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),
			CookieName:    getEnvOrDefault("REFRESH_COOKIE_NAME", "bajar_refresh"),
			Retention:     getDurationEnv("REFRESH_TOKEN_RETENTION", 0, 24*time.Hour),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MongoURI == "" {
		return errors.New("config: MONGO_URI is required")
	}
	return c.Session.Validate()
}

// Validate enforces the startup contract: both secrets present and
// distinct. Key separation means a leaked access secret cannot forge
// refresh tokens, and vice versa.
func (s SessionConfig) Validate() error {
	if s.AccessSecret == "" {
		return errors.New("config: ACCESS_TOKEN_SECRET is required")
	}
	if s.RefreshSecret == "" {
		return errors.New("config: REFRESH_TOKEN_SECRET is required")
	}
	if s.AccessSecret == s.RefreshSecret {
		return errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if s.AccessTTL <= 0 || s.RefreshTTL <= 0 {
		return fmt.Errorf("config: token lifetimes must be positive (access=%s refresh=%s)", s.AccessTTL, s.RefreshTTL)
	}
	return nil
}

// IsDevelopment reports whether the process runs in a local environment,
// which relaxes the refresh cookie's Secure/SameSite attributes.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}
