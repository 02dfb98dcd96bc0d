// Package config loads the classroom-proxy configuration from the
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Sternrassler/classroom-client/pkg/classroom"
	"github.com/Sternrassler/classroom-client/pkg/logging"
)

// Config holds the proxy configuration.
type Config struct {
	Port      string
	RedisURL  string
	UserAgent string

	LogLevel  logging.LogLevel
	LogPretty bool

	// ClassroomEndpoint overrides the Classroom API base URL. Empty uses the default.
	ClassroomEndpoint string
	ClassroomRetries  int
	ClassroomPageSize int64

	RequestTimeout time.Duration
}

// Load reads an optional env file and then the process environment.
// Values already present in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	level, err := logging.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	pretty, err := getEnvBool("LOG_PRETTY", false)
	if err != nil {
		return Config{}, err
	}

	retries, err := getEnvInt("CLASSROOM_RETRIES", classroom.DefaultRetries)
	if err != nil {
		return Config{}, err
	}
	if retries < 0 {
		return Config{}, fmt.Errorf("CLASSROOM_RETRIES must be >= 0 (got %d)", retries)
	}

	pageSize, err := getEnvInt("CLASSROOM_PAGE_SIZE", 0)
	if err != nil {
		return Config{}, err
	}
	if pageSize < 0 {
		return Config{}, fmt.Errorf("CLASSROOM_PAGE_SIZE must be >= 0 (got %d)", pageSize)
	}

	timeout, err := getEnvDuration("REQUEST_TIMEOUT", 60*time.Second)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Port:              getEnv("PORT", "8080"),
		RedisURL:          getEnv("REDIS_URL", "localhost:6379"),
		UserAgent:         getEnv("USER_AGENT", "classroom-client/0.1.0"),
		LogLevel:          level,
		LogPretty:         pretty,
		ClassroomEndpoint: getEnv("CLASSROOM_ENDPOINT", ""),
		ClassroomRetries:  retries,
		ClassroomPageSize: int64(pageSize),
		RequestTimeout:    timeout,
	}, nil
}

// Gateway returns the gateway configuration for one caller's credentials.
func (c Config) Gateway(accessToken, refreshToken string) classroom.Config {
	cfg := classroom.DefaultConfig(accessToken, refreshToken)
	cfg.Endpoint = c.ClassroomEndpoint
	cfg.UserAgent = c.UserAgent
	cfg.PageSize = c.ClassroomPageSize
	cfg.Retry.Retries = c.ClassroomRetries
	return cfg
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Pretty = c.LogPretty
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, raw)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive (got %s)", key, v)
	}
	return v, nil
}
