/*
Package configs is responsible for loading and parsing the application's configuration settings.

Settings come from operating system environment variables, optionally seeded from a
.env file in the working directory. Values already present in the environment win.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// DefaultGreeting is the text of the first message seeded into a new room.
	DefaultGreeting = "Hi Let's connect"

	// DefaultMaxMessageBytes bounds inbound message and edit text.
	DefaultMaxMessageBytes = 5000

	// DefaultSendQueueSize is the per-connection outbound buffer length.
	DefaultSendQueueSize = 256
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// Chat Settings
	Greeting        string
	MaxMessageBytes int
	SendQueueSize   int
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// Default returns the configuration used when the environment sets nothing.
func Default() *AppConfig {
	return &AppConfig{
		Environment:     "development",
		Port:            8080,
		AllowedOrigins:  []string{},
		Greeting:        DefaultGreeting,
		MaxMessageBytes: DefaultMaxMessageBytes,
		SendQueueSize:   DefaultSendQueueSize,
	}
}

// LoadConfig reads and parses the application configuration from environment variables.
// A missing .env file is not an error.
func LoadConfig() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := Default()

	// --- General Server Settings ---
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		cfg.Environment = env
	}

	port, err := intFromEnv("PORT", cfg.Port)
	if err != nil {
		return nil, err
	}
	if port < 1024 || port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", port, 1024, 65535)
	}
	cfg.Port = port

	// --- Security Settings ---
	if originsStr := os.Getenv("ALLOWED_ORIGINS"); originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}

	// --- Chat Settings ---
	if greeting := os.Getenv("GREETING_MESSAGE"); greeting != "" {
		cfg.Greeting = greeting
	}

	if cfg.MaxMessageBytes, err = intFromEnv("MAX_MESSAGE_BYTES", cfg.MaxMessageBytes); err != nil {
		return nil, err
	}
	if cfg.MaxMessageBytes <= 0 {
		return nil, fmt.Errorf("MAX_MESSAGE_BYTES must be positive, got %d", cfg.MaxMessageBytes)
	}

	if cfg.SendQueueSize, err = intFromEnv("SEND_QUEUE_SIZE", cfg.SendQueueSize); err != nil {
		return nil, err
	}
	if cfg.SendQueueSize <= 0 {
		return nil, fmt.Errorf("SEND_QUEUE_SIZE must be positive, got %d", cfg.SendQueueSize)
	}

	return cfg, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}
