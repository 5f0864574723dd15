package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "mirror.yaml")

	yaml := `
server:
  url: "wss://relay.example.com/create"
  insecure_skip_verify: true
transport:
  send_queue: 16
  ping_interval: 5s
log:
  file: "/tmp/mirror-test.log"
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.URL != "wss://relay.example.com/create" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
	if !cfg.Server.InsecureSkipVerify {
		t.Error("Server.InsecureSkipVerify = false, want true")
	}
	if cfg.Transport.SendQueue != 16 {
		t.Errorf("Transport.SendQueue = %d, want 16", cfg.Transport.SendQueue)
	}
	if cfg.Transport.PingInterval != 5*time.Second {
		t.Errorf("Transport.PingInterval = %v, want 5s", cfg.Transport.PingInterval)
	}
	if cfg.Log.File != "/tmp/mirror-test.log" {
		t.Errorf("Log.File = %q", cfg.Log.File)
	}

	// Defaults should still be applied for unspecified fields.
	if cfg.Transport.PongTimeout != 0 {
		t.Errorf("Transport.PongTimeout = %v, want default 0 (no read deadline)", cfg.Transport.PongTimeout)
	}
	if cfg.Session.InboxSize != 256 {
		t.Errorf("Session.InboxSize = %d, want default 256", cfg.Session.InboxSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/mirror.yaml")
	if err == nil {
		t.Fatal("Load() on missing file should return error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault("/nonexistent/path/mirror.yaml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}

	if cfg.Server.URL != DefaultURL {
		t.Errorf("Server.URL = %q, want default %q", cfg.Server.URL, DefaultURL)
	}
	if cfg.Server.InsecureSkipVerify {
		t.Error("certificate verification must be on by default")
	}
	if cfg.Metrics.Addr != "" {
		t.Errorf("Metrics.Addr = %q, want disabled by default", cfg.Metrics.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte(":::not valid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Fatal("Load() with invalid YAML should return error")
	}
	if _, err := LoadOrDefault(cfgPath); err == nil {
		t.Fatal("LoadOrDefault() with invalid YAML should return error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MIRROR_URL":                  "ws://localhost:7654/create",
		"MIRROR_INSECURE_SKIP_VERIFY": "true",
		"MIRROR_LOG_FILE":             "env.log",
		"MIRROR_METRICS_ADDR":         "127.0.0.1:9100",
	}
	cfg := defaultConfig()
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv() error: %v", err)
	}

	if cfg.Server.URL != "ws://localhost:7654/create" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
	if !cfg.Server.InsecureSkipVerify {
		t.Error("Server.InsecureSkipVerify not applied")
	}
	if cfg.Log.File != "env.log" {
		t.Errorf("Log.File = %q", cfg.Log.File)
	}
	if cfg.Metrics.Addr != "127.0.0.1:9100" {
		t.Errorf("Metrics.Addr = %q", cfg.Metrics.Addr)
	}
}

func TestApplyEnvBadBool(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.ApplyEnv(func(k string) string {
		if k == "MIRROR_INSECURE_SKIP_VERIFY" {
			return "sometimes"
		}
		return ""
	})
	if err == nil {
		t.Fatal("ApplyEnv() accepted a non-boolean")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("MIRROR_TEST_DOTENV=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MIRROR_TEST_DOTENV", "")
	os.Unsetenv("MIRROR_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error: %v", err)
	}
	if got := os.Getenv("MIRROR_TEST_DOTENV"); got != "from-file" {
		t.Errorf("MIRROR_TEST_DOTENV = %q, want from-file", got)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadDotEnv() on missing file: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"plain ws", func(c *Config) { c.Server.URL = "ws://localhost:7654/create" }, false},
		{"http scheme", func(c *Config) { c.Server.URL = "https://mirror.example.com/create" }, true},
		{"no host", func(c *Config) { c.Server.URL = "wss:///create" }, true},
		{"zero queue", func(c *Config) { c.Transport.SendQueue = 0 }, true},
		{"zero inbox", func(c *Config) { c.Session.InboxSize = 0 }, true},
		{"keepalive off by default", func(c *Config) {
			if c.Transport.PingInterval != 0 || c.Transport.PongTimeout != 0 {
				t.Errorf("keepalive defaults = %v/%v, want off", c.Transport.PingInterval, c.Transport.PongTimeout)
			}
		}, false},
		{"keepalive on", func(c *Config) {
			c.Transport.PingInterval = 30 * time.Second
			c.Transport.PongTimeout = time.Minute
		}, false},
		{"pings without deadline", func(c *Config) { c.Transport.PingInterval = 30 * time.Second }, false},
		{"pong timeout without pings", func(c *Config) { c.Transport.PongTimeout = time.Minute }, true},
		{"ping after pong timeout", func(c *Config) {
			c.Transport.PingInterval = 2 * time.Minute
			c.Transport.PongTimeout = time.Minute
		}, true},
		{"negative ping", func(c *Config) { c.Transport.PingInterval = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransportOptions(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.InsecureSkipVerify = true

	opts := cfg.TransportOptions()
	if !opts.TLS.InsecureSkipVerify {
		t.Error("TLS policy not carried over")
	}
	if opts.SendQueue != cfg.Transport.SendQueue || opts.PongTimeout != cfg.Transport.PongTimeout {
		t.Errorf("options = %+v", opts)
	}
}
