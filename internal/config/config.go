package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Token verification modes.
const (
	TokenModePresence = "presence"
	TokenModeJWT      = "jwt"
)

// Config holds all configuration for the application, read from the
// environment. main loads a .env file first when one exists.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Chats    ChatsConfig
	LogLevel string
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	Type            string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type AuthConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
	TokenMode   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ChatsConfig struct {
	// StrictAccess makes send_message and get_messages require the caller
	// to be a participant of the chat.
	StrictAccess bool
}

// IsProduction reports whether the server runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Type:            getEnv("DB_TYPE", "postgres"),
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			AutoMigrate:     getEnvAsBool("AUTO_MIGRATE", false),
		},
		Auth: AuthConfig{
			TokenSecret: os.Getenv("TOKEN_SECRET"),
			TokenTTL:    getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
			TokenMode:   strings.ToLower(getEnv("TOKEN_MODE", TokenModePresence)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Chats: ChatsConfig{
			StrictAccess: getEnvAsBool("STRICT_CHAT_ACCESS", false),
		},
		LogLevel: os.Getenv("LOG_LEVEL"),
	}

	if cfg.Database.URL == "" {
		// Fallback to individual connection parameters if DATABASE_URL not set
		dbHost := os.Getenv("DB_HOST")
		dbName := os.Getenv("DB_NAME")
		dbUser := os.Getenv("DB_USER")
		if dbHost == "" || dbName == "" || dbUser == "" {
			return nil, errors.New("database connection details missing: set DATABASE_URL or individual DB_* variables")
		}
		cfg.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			dbUser, os.Getenv("DB_PASSWORD"), dbHost, getEnv("DB_PORT", "5432"), dbName,
		)
	}

	switch cfg.Auth.TokenMode {
	case TokenModePresence:
	case TokenModeJWT:
		if cfg.Auth.TokenSecret == "" {
			return nil, errors.New("TOKEN_SECRET is required when TOKEN_MODE=jwt")
		}
	default:
		return nil, fmt.Errorf("unsupported TOKEN_MODE %q", cfg.Auth.TokenMode)
	}

	if cfg.Auth.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.Auth.TokenTTL)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return fallback
}
