// Package config loads service settings from defaults, an optional YAML file
// and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Completion policies decide who may mark an agreement completed.
const (
	CompletionByParty    = "party"
	CompletionBySender   = "sender"
	CompletionByReceiver = "receiver"
	CompletionByAnyone   = "anyone"
)

type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	DatabaseURL string `yaml:"database_url"`
	JWTSecret   string `yaml:"jwt_secret"`
	LogLevel    string `yaml:"log_level"`

	Gemini struct {
		APIKey  string        `yaml:"api_key"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"gemini"`

	Policy struct {
		Completion            string `yaml:"completion"`
		RejectPendingRequests bool   `yaml:"reject_pending_requests"`
	} `yaml:"policy"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	var cfg Config
	cfg.HTTPAddr = ":8080"
	cfg.LogLevel = "info"
	cfg.Gemini.Model = "gemini-2.5-flash"
	cfg.Gemini.Timeout = 60 * time.Second
	cfg.Policy.Completion = CompletionByParty
	return cfg
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("HTTP_ADDR", &c.HTTPAddr)
	str("DATABASE_URL", &c.DatabaseURL)
	str("JWT_SECRET", &c.JWTSecret)
	str("LOG_LEVEL", &c.LogLevel)
	str("GEMINI_API_KEY", &c.Gemini.APIKey)
	str("GEMINI_MODEL", &c.Gemini.Model)
	str("COMPLETION_POLICY", &c.Policy.Completion)

	if v, ok := lookup("ANALYSIS_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: ANALYSIS_TIMEOUT: %w", err)
		}
		c.Gemini.Timeout = d
	}
	if v, ok := lookup("REJECT_PENDING_REQUESTS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: REJECT_PENDING_REQUESTS: %w", err)
		}
		c.Policy.RejectPendingRequests = b
	}
	return nil
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("config: database url required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("config: jwt secret required"))
	}
	switch strings.ToLower(c.Policy.Completion) {
	case CompletionByParty, CompletionBySender, CompletionByReceiver, CompletionByAnyone:
	default:
		errs = append(errs, fmt.Errorf("config: unknown completion policy %q", c.Policy.Completion))
	}
	if c.Gemini.Timeout <= 0 {
		errs = append(errs, errors.New("config: analysis timeout must be positive"))
	}
	return errors.Join(errs...)
}
