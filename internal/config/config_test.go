package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %q, expected 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("default driver = %q, expected sqlite", cfg.Database.Driver)
	}
	if !cfg.AI.Cache.Enabled {
		t.Error("AI cache should be enabled by default")
	}
	if !cfg.AI.CallLogEnabled {
		t.Error("AI call logging should be enabled by default")
	}
	if cfg.AI.Debug.Console {
		t.Error("AI debug console should be disabled by default")
	}
	if cfg.AI.XAI.BaseURL == "" {
		t.Error("xAI base URL should have a default")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port, got %q", cfg.Server.Port)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: 127.0.0.1
  port: "9090"
  mode: release
database:
  driver: postgres
  dsn: host=localhost user=app dbname=app
ai:
  openai:
    api_key: sk-test
  cache:
    enabled: true
    ttl_hours: 24
  call_log_enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, expected 9090", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, expected postgres", cfg.Database.Driver)
	}
	if cfg.AI.OpenAI.APIKey != "sk-test" {
		t.Errorf("openai key = %q, expected sk-test", cfg.AI.OpenAI.APIKey)
	}
	if cfg.AI.Cache.TTLHours != 24 {
		t.Errorf("cache ttl = %d, expected 24", cfg.AI.Cache.TTLHours)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "ak-env")
	t.Setenv("AI_DEBUG", "true")
	t.Setenv("AI_DEBUG_DIR", "/tmp/ai-dumps")
	t.Setenv("AI_CALL_LOG", "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AI.Anthropic.APIKey != "ak-env" {
		t.Errorf("anthropic key = %q, expected ak-env", cfg.AI.Anthropic.APIKey)
	}
	if !cfg.AI.Debug.Console {
		t.Error("AI_DEBUG=true should enable debug console")
	}
	if cfg.AI.Debug.DumpDir != "/tmp/ai-dumps" {
		t.Errorf("dump dir = %q", cfg.AI.Debug.DumpDir)
	}
	if cfg.AI.CallLogEnabled {
		t.Error("AI_CALL_LOG=false should disable call logging")
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		addr     string
		password string
		db       int
	}{
		{
			name: "plain host port",
			url:  "redis://localhost:6379",
			addr: "localhost:6379",
		},
		{
			name:     "with password and db",
			url:      "redis://:secret@redis.internal:6380/2",
			addr:     "redis.internal:6380",
			password: "secret",
			db:       2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.parseRedisURL(tt.url)

			if cfg.Redis.Addr != tt.addr {
				t.Errorf("addr = %q, expected %q", cfg.Redis.Addr, tt.addr)
			}
			if cfg.Redis.Password != tt.password {
				t.Errorf("password = %q, expected %q", cfg.Redis.Password, tt.password)
			}
			if tt.db != 0 && cfg.Redis.DB != tt.db {
				t.Errorf("db = %d, expected %d", cfg.Redis.DB, tt.db)
			}
		})
	}
}
