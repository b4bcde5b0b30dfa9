package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	AI       AIConfig       `yaml:"ai"`
	Redis    RedisConfig    `yaml:"redis"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// AIConfig holds vendor credentials and the invocation-layer toggles.
type AIConfig struct {
	OpenAI    VendorConfig  `yaml:"openai"`
	XAI       VendorConfig  `yaml:"xai"`
	Anthropic VendorConfig  `yaml:"anthropic"`
	Gemini    VendorConfig  `yaml:"gemini"`
	Ollama    VendorConfig  `yaml:"ollama"`
	Cache     AICacheConfig `yaml:"cache"`
	Debug     AIDebugConfig `yaml:"debug"`
	// CallLogEnabled controls the append-only ai_call_logs audit trail.
	CallLogEnabled bool `yaml:"call_log_enabled"`
}

type VendorConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type AICacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	TTLHours int  `yaml:"ttl_hours"`
}

type AIDebugConfig struct {
	// Console enables full prompt/response previews on the console.
	Console bool `yaml:"console"`
	// DumpDir, when set, serializes each call's request/response to a
	// timestamped JSON file in this directory.
	DumpDir string `yaml:"dump_dir"`
}

// RedisConfig for the optional async task queue and cache backend
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "outreachforge.db",
		},
		JWT: JWTConfig{
			Secret:     "outreachforge-secret-key-change-in-production",
			ExpireHour: 24,
		},
		AI: AIConfig{
			OpenAI: VendorConfig{BaseURL: "https://api.openai.com/v1"},
			XAI:    VendorConfig{BaseURL: "https://api.x.ai/v1"},
			Ollama: VendorConfig{BaseURL: "http://localhost:11434"},
			Cache: AICacheConfig{
				Enabled:  true,
				TTLHours: 72,
			},
			CallLogEnabled: true,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.AI.OpenAI.APIKey = key
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		c.AI.OpenAI.BaseURL = baseURL
	}
	if key := os.Getenv("XAI_API_KEY"); key != "" {
		c.AI.XAI.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.AI.Anthropic.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.AI.Gemini.APIKey = key
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		c.AI.Ollama.BaseURL = baseURL
	}
	if v := os.Getenv("AI_DEBUG"); v != "" {
		c.AI.Debug.Console = v == "true" || v == "1"
	}
	if dir := os.Getenv("AI_DEBUG_DIR"); dir != "" {
		c.AI.Debug.DumpDir = dir
	}
	if v := os.Getenv("AI_CALL_LOG"); v != "" {
		c.AI.CallLogEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("AI_CACHE"); v != "" {
		c.AI.Cache.Enabled = v == "true" || v == "1"
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	// Remaining is host:port
	c.Redis.Addr = url
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
