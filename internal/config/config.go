package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/code-mirror/mirror/internal/transport"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultURL is the public relay's session creation endpoint.
const DefaultURL = "wss://mirror.chmod4.com/create"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Session   SessionConfig   `yaml:"session"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	URL string `yaml:"url"`
	// InsecureSkipVerify turns off certificate verification for the relay.
	// Off unless set explicitly.
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
}

type TransportConfig struct {
	SendQueue    int           `yaml:"send_queue"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PingInterval time.Duration `yaml:"ping_interval"`
	PongTimeout  time.Duration `yaml:"pong_timeout"`
}

type SessionConfig struct {
	InboxSize int `yaml:"inbox_size"`
}

type LogConfig struct {
	File string `yaml:"file"`
}

type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the listener.
	Addr string `yaml:"addr"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:              DefaultURL,
			HandshakeTimeout: 10 * time.Second,
		},
		Transport: TransportConfig{
			SendQueue:    64,
			WriteTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			InboxSize: 256,
		},
		Log: LogConfig{
			File: "mirror.log",
		},
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// LoadDotEnv loads a .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from MIRROR_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("MIRROR_URL"); v != "" {
		c.Server.URL = v
	}
	if v := getenv("MIRROR_INSECURE_SKIP_VERIFY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MIRROR_INSECURE_SKIP_VERIFY: %w", err)
		}
		c.Server.InsecureSkipVerify = b
	}
	if v := getenv("MIRROR_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := getenv("MIRROR_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server.url: scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server.url: missing host")
	}
	if c.Transport.SendQueue <= 0 {
		return fmt.Errorf("transport.send_queue must be positive")
	}
	if c.Session.InboxSize <= 0 {
		return fmt.Errorf("session.inbox_size must be positive")
	}
	if c.Transport.PingInterval < 0 || c.Transport.PongTimeout < 0 {
		return fmt.Errorf("transport keepalive durations must not be negative")
	}
	// A pong deadline without pings would drop every quiet connection.
	if c.Transport.PongTimeout > 0 && (c.Transport.PingInterval == 0 || c.Transport.PingInterval >= c.Transport.PongTimeout) {
		return fmt.Errorf("transport.pong_timeout needs a shorter, non-zero transport.ping_interval")
	}
	return nil
}

// TransportOptions converts the connection settings for transport.Dial.
func (c *Config) TransportOptions() transport.Options {
	return transport.Options{
		TLS:              transport.TLSPolicy{InsecureSkipVerify: c.Server.InsecureSkipVerify},
		HandshakeTimeout: c.Server.HandshakeTimeout,
		SendQueue:        c.Transport.SendQueue,
		WriteTimeout:     c.Transport.WriteTimeout,
		PingInterval:     c.Transport.PingInterval,
		PongTimeout:      c.Transport.PongTimeout,
	}
}
