// Package config loads the serverkit configuration from defaults, an
// optional YAML file, and environment variables, in that order of
// precedence (environment wins).
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	CORS      CORSConfig      `yaml:"cors" envconfig:"CORS"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Queue     QueueConfig     `yaml:"queue" envconfig:"QUEUE"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host    string `yaml:"host" envconfig:"HOST"`
	Port    int    `yaml:"port" envconfig:"PORT"`
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL"` // global route prefix, e.g. /api/v1
	// RoutesDir is the directory scanned for route handler modules.
	// Empty disables directory-based route loading.
	RoutesDir string `yaml:"routes_dir" envconfig:"ROUTES_DIR"`
}

// WebSocketConfig contains WebSocket server configuration
type WebSocketConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Path    string `yaml:"path" envconfig:"PATH"` // upgrade endpoint path
	// EventsDir is the directory scanned for event handler modules.
	EventsDir string `yaml:"events_dir" envconfig:"EVENTS_DIR"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" envconfig:"FORMAT"` // json, text
}

// CORSConfig contains CORS settings applied to every router
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `yaml:"allowed_methods" envconfig:"ALLOWED_METHODS"`
	AllowedHeaders   []string `yaml:"allowed_headers" envconfig:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `yaml:"exposed_headers" envconfig:"EXPOSED_HEADERS"`
	AllowCredentials bool     `yaml:"allow_credentials" envconfig:"ALLOW_CREDENTIALS"`
	MaxAge           int      `yaml:"max_age" envconfig:"MAX_AGE"` // seconds
}

// CacheConfig contains cache store configuration
type CacheConfig struct {
	Type    string        `yaml:"type" envconfig:"TYPE"` // memory, mongodb
	MongoDB MongoDBConfig `yaml:"mongodb" envconfig:"MONGODB"`
}

// MongoDBConfig contains MongoDB-specific configuration
type MongoDBConfig struct {
	URI        string `yaml:"uri" envconfig:"URI"`
	Database   string `yaml:"database" envconfig:"DATABASE"`
	Collection string `yaml:"collection" envconfig:"COLLECTION"`
	Timeout    int    `yaml:"timeout" envconfig:"TIMEOUT"` // seconds
}

// QueueConfig contains message-queue consumer configuration
type QueueConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	Broker   string `yaml:"broker" envconfig:"BROKER"` // e.g. tcp://localhost:1883
	ClientID string `yaml:"client_id" envconfig:"CLIENT_ID"`
	Username string `yaml:"username" envconfig:"USERNAME"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	QoS      int    `yaml:"qos" envconfig:"QOS"`
}

// RateLimitConfig contains per-client request rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" envconfig:"ENABLED"`
	RequestsPerMinute int  `yaml:"requests_per_minute" envconfig:"REQUESTS_PER_MINUTE"`
	BurstSize         int  `yaml:"burst_size" envconfig:"BURST_SIZE"`
}

// Address returns the host:port pair the HTTP server binds to
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	cfg := defaultConfig()

	// Load from YAML file if provided (overrides defaults)
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, that's ok - defaults and env vars apply
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("SERVERKIT", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible default values
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		WebSocket: WebSocketConfig{
			Enabled: false,
			Path:    "/ws",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
			MaxAge:         300,
		},
		Cache: CacheConfig{
			Type: "memory",
			MongoDB: MongoDBConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "serverkit",
				Collection: "cache",
				Timeout:    10,
			},
		},
		Queue: QueueConfig{
			Enabled:  false,
			Broker:   "tcp://localhost:1883",
			ClientID: "serverkit-consumer",
			QoS:      1,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerMinute: 300,
			BurstSize:         50,
		},
	}
}

// Validate validates the configuration.
// Port 0 is allowed so tests can bind an ephemeral port.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Cache.Type {
	case "memory", "mongodb":
	default:
		return fmt.Errorf("invalid cache type: %q", c.Cache.Type)
	}

	if c.Cache.Type == "mongodb" && c.Cache.MongoDB.URI == "" {
		return fmt.Errorf("mongodb URI is required for mongodb cache")
	}

	if c.WebSocket.Enabled && c.WebSocket.Path == "" {
		return fmt.Errorf("websocket path is required when websocket is enabled")
	}

	if c.Queue.Enabled && c.Queue.Broker == "" {
		return fmt.Errorf("queue broker is required when queue is enabled")
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requests_per_minute must be positive")
	}

	return nil
}
