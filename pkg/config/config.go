// Package config loads client configuration from YAML files.
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML client configuration.
//
//	server:
//	  url: https://api.example.com
//	  timeout: 30s
//	auth:
//	  token: <bearer token>
//	realtime:
//	  stream_path: /api/realtime
//	  handshake_timeout: 10s
//	  reconnect:
//	    interval: 3s
//	    max_attempts: 8
//	log:
//	  file: ./strata-events.cbor
type Config struct {
	Server   Server   `yaml:"server"`
	Auth     Auth     `yaml:"auth"`
	Realtime Realtime `yaml:"realtime"`
	Log      Log      `yaml:"log"`
}

// Server configures the HTTP transport.
type Server struct {
	// URL is the server base URL (required).
	URL string `yaml:"url"`

	// Timeout bounds a single request (default 30s).
	Timeout time.Duration `yaml:"timeout"`
}

// Auth configures authentication.
type Auth struct {
	// Token is a pre-issued bearer token (optional).
	Token string `yaml:"token"`
}

// Realtime configures the subscription stream.
type Realtime struct {
	// StreamPath is the SSE endpoint path (default /api/realtime).
	StreamPath string `yaml:"stream_path"`

	// HandshakeTimeout bounds the wait for the identity frame (default 10s).
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	Reconnect Reconnect `yaml:"reconnect"`
}

// Reconnect configures the retry policy after a dropped stream.
type Reconnect struct {
	// Interval is the fixed delay between attempts (default 3s).
	Interval time.Duration `yaml:"interval"`

	// MaxAttempts bounds the retry loop (default 8).
	MaxAttempts int `yaml:"max_attempts"`
}

// Log configures event capture.
type Log struct {
	// File receives the CBOR event capture; empty disables it.
	File string `yaml:"file"`
}

// Default returns the configuration defaults applied by Load.
func Default() Config {
	return Config{
		Server: Server{Timeout: 30 * time.Second},
		Realtime: Realtime{
			StreamPath:       "/api/realtime",
			HandshakeTimeout: 10 * time.Second,
			Reconnect: Reconnect{
				Interval:    3 * time.Second,
				MaxAttempts: 8,
			},
		},
	}
}

// Load reads and validates a YAML configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Timeout <= 0 {
		c.Server.Timeout = def.Server.Timeout
	}
	if c.Realtime.StreamPath == "" {
		c.Realtime.StreamPath = def.Realtime.StreamPath
	}
	if c.Realtime.HandshakeTimeout <= 0 {
		c.Realtime.HandshakeTimeout = def.Realtime.HandshakeTimeout
	}
	if c.Realtime.Reconnect.Interval <= 0 {
		c.Realtime.Reconnect.Interval = def.Realtime.Reconnect.Interval
	}
	if c.Realtime.Reconnect.MaxAttempts == 0 {
		c.Realtime.Reconnect.MaxAttempts = def.Realtime.Reconnect.MaxAttempts
	}
}

func (c *Config) validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("config: server.url is required")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("config: invalid server.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: server.url must be http or https, got %q", u.Scheme)
	}
	if c.Realtime.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("config: realtime.reconnect.max_attempts must not be negative")
	}
	return nil
}
