package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TARGET_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.TargetURL != DefaultTargetURL {
		t.Errorf("TargetURL = %q, want %q", cfg.TargetURL, DefaultTargetURL)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, DefaultUserAgent)
	}
	if cfg.ProbeTimeout != 25*time.Second {
		t.Errorf("ProbeTimeout = %v, want 25s", cfg.ProbeTimeout)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.SubmitDelay != 5*time.Second {
		t.Errorf("SubmitDelay = %v, want 5s", cfg.SubmitDelay)
	}
	if cfg.Endpoints.LksfyBase != DefaultLksfyBase {
		t.Errorf("LksfyBase = %q, want %q", cfg.Endpoints.LksfyBase, DefaultLksfyBase)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TARGET_URL", "https://probe.example")
	t.Setenv("SSL_BYPASS", "1")
	t.Setenv("REQUEST_TIMEOUT", "10")
	t.Setenv("SUBMIT_DELAY", "250ms")
	t.Setenv("UTLS_DOMAINS", "lksfy.com, arolinks.com,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.TargetURL != "https://probe.example" {
		t.Errorf("TargetURL = %q", cfg.TargetURL)
	}
	if !cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify should be true")
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.SubmitDelay != 250*time.Millisecond {
		t.Errorf("SubmitDelay = %v, want 250ms", cfg.SubmitDelay)
	}
	if len(cfg.UTLSDomains) != 2 || cfg.UTLSDomains[1] != "arolinks.com" {
		t.Errorf("UTLSDomains = %v", cfg.UTLSDomains)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
target_url: https://from-file.example
request_timeout: 12s
endpoints:
  lksfy_base: http://127.0.0.1:9999
log_level: warn
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TARGET_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.TargetURL != "https://from-file.example" {
		t.Errorf("TargetURL = %q, want file value", cfg.TargetURL)
	}
	if cfg.RequestTimeout != 12*time.Second {
		t.Errorf("RequestTimeout = %v, want 12s", cfg.RequestTimeout)
	}
	if cfg.Endpoints.LksfyBase != "http://127.0.0.1:9999" {
		t.Errorf("LksfyBase = %q", cfg.Endpoints.LksfyBase)
	}
	if cfg.Endpoints.NanoFirstHop != DefaultNanoFirstHop {
		t.Errorf("NanoFirstHop should keep default, got %q", cfg.Endpoints.NanoFirstHop)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, env should win over file", cfg.LogLevel)
	}
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty target", func(c *Config) { c.TargetURL = " " }, true},
		{"empty xor key", func(c *Config) { c.XORKey = "" }, true},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, true},
		{"zero submit delay allowed", func(c *Config) { c.SubmitDelay = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEffectiveLogLevel(t *testing.T) {
	cfg := Default()
	if cfg.EffectiveLogLevel() != "info" {
		t.Errorf("EffectiveLogLevel() = %q, want info", cfg.EffectiveLogLevel())
	}
	cfg.Debug = true
	if cfg.EffectiveLogLevel() != "debug" {
		t.Errorf("EffectiveLogLevel() = %q, want debug", cfg.EffectiveLogLevel())
	}
}
