package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate_InvalidPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"port negative", -1},
		{"port too high", 65536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Server.Port = tt.port

			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error for invalid port")
			}
		})
	}
}

func TestConfig_Validate_InvalidCacheType(t *testing.T) {
	cfg := defaultConfig()
	cfg.Cache.Type = "redis"

	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for invalid cache type")
	}
}

func TestConfig_Validate_MongoDBWithoutURI(t *testing.T) {
	cfg := defaultConfig()
	cfg.Cache.Type = "mongodb"
	cfg.Cache.MongoDB.URI = ""

	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for mongodb cache without URI")
	}
}

func TestConfig_Validate_WebSocketWithoutPath(t *testing.T) {
	cfg := defaultConfig()
	cfg.WebSocket.Enabled = true
	cfg.WebSocket.Path = ""

	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for enabled websocket without path")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Cache.Type != "memory" {
		t.Errorf("default cache type = %q, want memory", cfg.Cache.Type)
	}
	if cfg.WebSocket.Path != "/ws" {
		t.Errorf("default websocket path = %q, want /ws", cfg.WebSocket.Path)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  host: 127.0.0.1
  port: 9090
  base_url: /api/v1
websocket:
  enabled: true
  path: /socket
logging:
  level: debug
  format: text
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.BaseURL != "/api/v1" {
		t.Errorf("base url = %q, want /api/v1", cfg.Server.BaseURL)
	}
	if !cfg.WebSocket.Enabled || cfg.WebSocket.Path != "/socket" {
		t.Errorf("websocket = %+v, want enabled at /socket", cfg.WebSocket)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SERVERKIT_SERVER_PORT", "7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", cfg.Server.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}
