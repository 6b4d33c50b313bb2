// Package config resolves the FanWave configuration from, in order of
// increasing precedence: built-in defaults, an optional YAML file, and
// FANWAVE_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where the config file is searched, first match wins.
var DefaultConfigPaths = []string{
	"fanwave.yaml",
	"fanwave.yml",
	"/etc/fanwave/fanwave.yaml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "FANWAVE_CONFIG"

// EnvPrefix is stripped from environment variables before they are mapped
// onto config keys (FANWAVE_AUTH_CLIENT_ID -> auth.client_id).
const EnvPrefix = "FANWAVE_"

type Config struct {
	AppName string `koanf:"app_name"`
	Env     string `koanf:"env"` // DEV, STAGING, PRODUCTION
	Port    string `koanf:"port"`

	Log   LogConfig   `koanf:"log"`
	Auth  AuthConfig  `koanf:"auth"`
	API   APIConfig   `koanf:"api"`
	Cache CacheConfig `koanf:"cache"`
	Admin AdminConfig `koanf:"admin"`
	CORS  CORSConfig  `koanf:"cors"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, console
}

// AuthConfig covers the platform authentication endpoint and the credentials
// used to log in. PublicKey is the platform-supplied RSA public key (PEM)
// used to encrypt the password before it goes on the wire.
type AuthConfig struct {
	BaseURL      string `koanf:"base_url"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	PublicKey    string `koanf:"public_key"`
	Email        string `koanf:"email"`
	Password     string `koanf:"password"`
}

// APIConfig covers the platform resource API. The header values are an
// upstream contract: the platform rejects requests without them.
type APIConfig struct {
	BaseURL   string        `koanf:"base_url"`
	UserAgent string        `koanf:"user_agent"`
	Origin    string        `koanf:"origin"`
	Referer   string        `koanf:"referer"`
	Timeout   time.Duration `koanf:"timeout"`

	RateLimit float64 `koanf:"rate_limit"` // upstream requests per second, 0 = unlimited
	RateBurst int     `koanf:"rate_burst"`
}

type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// AdminConfig guards privileged boundary operations (cache flush).
type AdminConfig struct {
	Secret string `koanf:"secret"` // HMAC secret for admin JWTs; empty disables admin routes
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

func defaultConfig() *Config {
	return &Config{
		AppName: "FanWave",
		Env:     "DEV",
		Port:    "8080",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Auth: AuthConfig{
			BaseURL: "https://account.fanwave-upstream.example",
		},
		API: APIConfig{
			BaseURL:   "https://api.fanwave-upstream.example",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Origin:    "https://www.fanwave-upstream.example",
			Referer:   "https://www.fanwave-upstream.example/",
			Timeout:   10 * time.Second,
			RateLimit: 5,
			RateBurst: 10,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load resolves the configuration. path may be empty, in which case
// ConfigPathEnvVar and then DefaultConfigPaths are consulted; a missing
// config file is not an error, defaults plus environment still apply.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path == "" {
		for _, p := range DefaultConfigPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envToKey maps FANWAVE_AUTH_CLIENT_ID to auth.client_id. Only the first
// underscore becomes a section separator so multi-word keys survive.
func envToKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if i := strings.Index(s, "_"); i >= 0 && isSection(s[:i]) {
		return s[:i] + "." + s[i+1:]
	}
	return s
}

func isSection(s string) bool {
	switch s {
	case "log", "auth", "api", "cache", "admin", "cors":
		return true
	}
	return false
}

// Validate checks the fields the client core cannot run without.
func (c *Config) Validate() error {
	if c.Auth.Email == "" || c.Auth.Password == "" {
		return fmt.Errorf("config: auth.email and auth.password are required")
	}
	if c.Auth.PublicKey == "" {
		return fmt.Errorf("config: auth.public_key (PEM) is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache.ttl must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in a production environment.
// Privileged boundary operations are rejected when it returns true.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "PRODUCTION")
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
