// Package config handles application configuration from environment variables.
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

// Default upstream endpoints. These are fixed contracts with third-party services.
const (
	DefaultTargetURL     = "https://zoo0.pages.dev"
	DefaultUserAgent     = "Dart/3.8 (dart:io)"
	DefaultXORKey        = "k6kW8r#Tz3f;"
	DefaultNanoFirstHop  = "https://nano.tackledsoul.com/includes/open.php"
	DefaultNanoSecondHop = "https://vi-music.app/includes/open.php"
	DefaultLksfyBase     = "https://lksfy.com"
)

// Config holds all application configuration.
type Config struct {
	// Probe settings
	TargetURL string `yaml:"target_url"`
	UserAgent string `yaml:"user_agent"`
	XORKey    string `yaml:"xor_key"`

	// Transport settings
	InsecureSkipVerify bool          `yaml:"ssl_bypass"`
	ProbeTimeout       time.Duration `yaml:"probe_timeout"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	GlobalProxy        string        `yaml:"global_proxy"`
	UTLSDomains        []string      `yaml:"utls_domains"`

	// Lksfy asks for a pause before the form submission
	SubmitDelay time.Duration `yaml:"submit_delay"`

	// Upstream endpoints
	Endpoints Endpoints `yaml:"endpoints"`

	// FlareSolverr settings (Arolinks challenge fallback)
	FlareSolverrURL     string        `yaml:"flaresolverr_url"`
	FlareSolverrTimeout time.Duration `yaml:"flaresolverr_timeout"`

	// Logging
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Endpoints holds the hosts the resolvers talk to.
type Endpoints struct {
	NanoFirstHop  string `yaml:"nano_first_hop"`
	NanoSecondHop string `yaml:"nano_second_hop"`
	LksfyBase     string `yaml:"lksfy_base"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		TargetURL:           DefaultTargetURL,
		UserAgent:           DefaultUserAgent,
		XORKey:              DefaultXORKey,
		ProbeTimeout:        25 * time.Second,
		RequestTimeout:      30 * time.Second,
		SubmitDelay:         5 * time.Second,
		FlareSolverrTimeout: 60 * time.Second,
		LogLevel:            "info",
		Endpoints: Endpoints{
			NanoFirstHop:  DefaultNanoFirstHop,
			NanoSecondHop: DefaultNanoSecondHop,
			LksfyBase:     DefaultLksfyBase,
		},
	}
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and then
// environment variables, with sensible defaults.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.TargetURL = getEnvString("TARGET_URL", cfg.TargetURL)
	cfg.UserAgent = getEnvString("USER_AGENT", cfg.UserAgent)
	cfg.XORKey = getEnvString("XOR_KEY", cfg.XORKey)
	cfg.InsecureSkipVerify = getEnvBool("SSL_BYPASS", cfg.InsecureSkipVerify)
	cfg.ProbeTimeout = getEnvDuration("PROBE_TIMEOUT", cfg.ProbeTimeout)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.SubmitDelay = getEnvDuration("SUBMIT_DELAY", cfg.SubmitDelay)
	cfg.GlobalProxy = getEnvString("GLOBAL_PROXY", cfg.GlobalProxy)
	cfg.UTLSDomains = getEnvStringSlice("UTLS_DOMAINS", cfg.UTLSDomains)
	cfg.Endpoints.NanoFirstHop = getEnvString("NANO_FIRST_HOP", cfg.Endpoints.NanoFirstHop)
	cfg.Endpoints.NanoSecondHop = getEnvString("NANO_SECOND_HOP", cfg.Endpoints.NanoSecondHop)
	cfg.Endpoints.LksfyBase = getEnvString("LKSFY_BASE", cfg.Endpoints.LksfyBase)
	cfg.FlareSolverrURL = getEnvString("FLARESOLVERR_URL", cfg.FlareSolverrURL)
	cfg.FlareSolverrTimeout = getEnvDuration("FLARESOLVERR_TIMEOUT", cfg.FlareSolverrTimeout)
	cfg.Debug = getEnvBool("DEBUG", cfg.Debug)
	cfg.LogLevel = getEnvString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogJSON = getEnvBool("LOG_JSON", cfg.LogJSON)

	return cfg, nil
}

// loadFile overlays values from a YAML file. Durations are written as Go
// duration strings ("30s").
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// EffectiveLogLevel returns "debug" when debug tracing is on.
func (c *Config) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

// Validate checks the values the pipeline cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.TargetURL) == "" {
		errs = append(errs, errors.New("target URL is empty"))
	}
	if c.XORKey == "" {
		errs = append(errs, errors.New("XOR key is empty"))
	}
	if c.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("probe timeout must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.SubmitDelay < 0 {
		errs = append(errs, errors.New("submit delay must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return strings.ToLower(val) == "true" || val == "1"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		// Try parsing as seconds first
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultVal
}
