// Package config provides YAML configuration parsing for railpulse.
//
// This package enables running railpulse as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Acme on Railway
//	port: 8080
//	token: ${RAILWAY_TOKEN:-}
//	request_timeout: 15s
//
//	token_store:
//	  type: file
//	  path: ~/.config/railpulse/token
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is the dashboard port when none is configured.
	DefaultPort = 8080

	// DefaultAPIURL is Railway's public GraphQL endpoint.
	DefaultAPIURL = "https://backboard.railway.app/graphql/v2"

	// DefaultRequestTimeout bounds a single GraphQL HTTP attempt.
	DefaultRequestTimeout = 15 * time.Second

	// DefaultTokenPath is where the file token store lives by default.
	DefaultTokenPath = "~/.config/railpulse/token"

	// DefaultRedisKey is the key the redis token store uses by default.
	DefaultRedisKey = "railpulse:token"

	// minRequestTimeout prevents configs that can never complete a request.
	minRequestTimeout = 1 * time.Second
)

// Token store types accepted in token_store.type.
const (
	TokenStoreFile   = "file"
	TokenStoreRedis  = "redis"
	TokenStoreStatic = "static"
)

// Config is the root configuration structure for railpulse.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Railway" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// APIURL is the GraphQL endpoint. Defaults to Railway's v2 API.
	// Supports environment variable substitution.
	APIURL string `yaml:"api_url"`

	// Token is a Railway API token. When set, it takes precedence over any
	// token store and token_store.type defaults to "static".
	// Supports environment variable substitution.
	Token string `yaml:"token"`

	// RequestTimeout bounds each GraphQL HTTP attempt. Defaults to 15s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// TokenStore selects where the token is loaded from and saved to.
	TokenStore TokenStoreConfig `yaml:"token_store"`
}

// TokenStoreConfig configures the token store backend.
type TokenStoreConfig struct {
	// Type is "file", "redis" or "static".
	Type string `yaml:"type"`

	// Path is the token file (type: file). A leading "~/" is expanded.
	Path string `yaml:"path"`

	// Addr is the redis host:port (type: redis).
	Addr string `yaml:"addr"`

	// Password authenticates to redis. Supports environment variable substitution.
	Password string `yaml:"password"`

	// DB is the redis logical database.
	DB int `yaml:"db"`

	// Key is the redis key holding the token.
	Key string `yaml:"key"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in api_url, token and the token store
// connection fields. Defaults are applied before validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expand(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Token: strings.TrimSpace(os.Getenv("RAILWAY_TOKEN"))}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) expand() error {
	fields := []struct {
		name string
		val  *string
	}{
		{"api_url", &c.APIURL},
		{"token", &c.Token},
		{"token_store.path", &c.TokenStore.Path},
		{"token_store.addr", &c.TokenStore.Addr},
		{"token_store.password", &c.TokenStore.Password},
		{"token_store.key", &c.TokenStore.Key},
	}
	for _, f := range fields {
		expanded, err := expandEnvVars(*f.val)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.val = expanded
	}
	c.Token = strings.TrimSpace(c.Token)
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = Duration(DefaultRequestTimeout)
	}

	ts := &c.TokenStore
	if ts.Type == "" {
		if c.Token != "" {
			ts.Type = TokenStoreStatic
		} else {
			ts.Type = TokenStoreFile
		}
	}
	if ts.Type == TokenStoreFile && ts.Path == "" {
		ts.Path = DefaultTokenPath
	}
	if ts.Type == TokenStoreRedis && ts.Key == "" {
		ts.Key = DefaultRedisKey
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	parsedURL, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("api_url: invalid url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("api_url: scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("api_url: host is required")
	}

	if c.RequestTimeout.Duration() < minRequestTimeout {
		return fmt.Errorf("request_timeout must be at least %s, got %s", minRequestTimeout, c.RequestTimeout.Duration())
	}

	ts := c.TokenStore
	switch ts.Type {
	case TokenStoreFile:
		if strings.TrimSpace(ts.Path) == "" {
			return fmt.Errorf("token_store: type %q requires a path", ts.Type)
		}
	case TokenStoreRedis:
		if strings.TrimSpace(ts.Addr) == "" {
			return fmt.Errorf("token_store: type %q requires an addr", ts.Type)
		}
		if ts.DB < 0 {
			return fmt.Errorf("token_store: db cannot be negative, got %d", ts.DB)
		}
	case TokenStoreStatic:
		// an empty static token is allowed; the monitor reports unconfigured
	default:
		return fmt.Errorf("token_store: unknown type %q (expected file, redis or static)", ts.Type)
	}

	return nil
}
