package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/whisper/comments/internal/moderation"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Settings sources.
const (
	SettingsStatic = "static"
	SettingsRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	Editor     EditorConfig
	Moderation moderation.Settings

	// StoreBackend selects where comments live.
	StoreBackend string
	// SettingsSource selects where moderation settings are read from.
	// Moderation above is the fallback for the redis source.
	SettingsSource string
	// MigrationsPath is the directory holding SQL migrations.
	MigrationsPath string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NATSConfig holds NATS connection settings
type NATSConfig struct {
	URL   string
	Queue string // queue group for view maintainers
}

// EditorConfig tunes the comment editor
type EditorConfig struct {
	MaxEditAttempts int
	RetryBackoff    time.Duration
	SaveTimeout     time.Duration
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	mode, err := moderation.ParseMode(getEnv("MODERATION_MODE", string(moderation.ModePost)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "comments"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:   getEnv("NATS_URL", "nats://localhost:4222"),
			Queue: getEnv("NATS_QUEUE", "comment-views"),
		},
		Editor: EditorConfig{
			MaxEditAttempts: getIntEnv("MAX_EDIT_ATTEMPTS", 3),
			RetryBackoff:    getDurationEnv("EDIT_RETRY_BACKOFF", 10*time.Millisecond),
			SaveTimeout:     getDurationEnv("SAVE_TIMEOUT", 5*time.Second),
		},
		Moderation: moderation.Settings{
			Mode: mode,
			Wordlist: moderation.Wordlist{
				Banned:  getListEnv("WORDLIST_BANNED"),
				Suspect: getListEnv("WORDLIST_SUSPECT"),
			},
			PremodLinksEnable: getBoolEnv("PREMOD_LINKS_ENABLE", false),
			EditWindow:        getDurationEnv("EDIT_WINDOW", 0),
		},
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres)),
		SettingsSource: strings.ToLower(getEnv("SETTINGS_SOURCE", SettingsStatic)),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of postgres, redis, memory; got %q", c.StoreBackend)
	}

	switch c.SettingsSource {
	case SettingsStatic, SettingsRedis:
	default:
		return fmt.Errorf("SETTINGS_SOURCE must be static or redis; got %q", c.SettingsSource)
	}

	if c.Editor.MaxEditAttempts < 1 {
		return fmt.Errorf("MAX_EDIT_ATTEMPTS must be at least 1")
	}
	if c.Editor.RetryBackoff <= 0 {
		return fmt.Errorf("EDIT_RETRY_BACKOFF must be positive")
	}
	if err := c.Moderation.Validate(); err != nil {
		return err
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated value, dropping blank entries.
func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
