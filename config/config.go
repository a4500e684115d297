// Package config loads the YAML configuration of the calldata binary.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"calldata-rpc/codec"
	"calldata-rpc/loadbalance"
	"calldata-rpc/protocol"
	"calldata-rpc/registry"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Registry RegistryConfig `yaml:"registry"`
	Client   ClientConfig   `yaml:"client"`
	Limits   LimitsConfig   `yaml:"limits"`
	Codec    CodecConfig    `yaml:"codec"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Network         string        `yaml:"network"`
	Listen          string        `yaml:"listen"`
	Advertise       string        `yaml:"advertise"` // defaults to the listener address
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    uint32        `yaml:"max_body_bytes"`
}

// GatewayConfig enables the HTTP gateway when Listen is set.
type GatewayConfig struct {
	Listen string `yaml:"listen"`
}

// RegistryConfig selects etcd when EtcdEndpoints is non-empty.
type RegistryConfig struct {
	EtcdEndpoints []string      `yaml:"etcd_endpoints"`
	Prefix        string        `yaml:"prefix"`
	TTLSeconds    int64         `yaml:"ttl_seconds"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
}

type ClientConfig struct {
	Addrs      []string      `yaml:"addrs"` // static servers, used without etcd
	Balancer   string        `yaml:"balancer"`
	PoolSize   int           `yaml:"pool_size"`
	Codec      string        `yaml:"codec"`
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
}

// LimitsConfig rate-limits the server. Rate 0 disables the limiter.
type LimitsConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

type CodecConfig struct {
	StrictTags bool `yaml:"strict_tags"`
}

type LogConfig struct {
	Level      string `yaml:"level"`    // debug, info, warn, error
	Encoding   string `yaml:"encoding"` // console or json
	File       string `yaml:"file"`     // empty logs to stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Network:         "tcp",
			Listen:          ":7070",
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    protocol.DefaultMaxBodyLen,
		},
		Registry: RegistryConfig{
			Prefix:      registry.DefaultPrefix,
			TTLSeconds:  10,
			DialTimeout: 5 * time.Second,
		},
		Client: ClientConfig{
			Addrs:      []string{"127.0.0.1:7070"},
			Balancer:   "round_robin",
			PoolSize:   1,
			Codec:      "json",
			Timeout:    5 * time.Second,
			Retries:    2,
			RetryDelay: 50 * time.Millisecond,
			Heartbeat:  30 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			Encoding:   "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the file at path over the defaults. An empty path or a missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := loadbalance.New(c.Client.Balancer); err != nil {
		return err
	}
	if _, err := codec.ParseType(c.Client.Codec); err != nil {
		return err
	}
	if c.Client.PoolSize <= 0 {
		return fmt.Errorf("client.pool_size must be positive, got %d", c.Client.PoolSize)
	}
	if c.Client.Retries < 0 {
		return fmt.Errorf("client.retries must not be negative, got %d", c.Client.Retries)
	}
	if c.Limits.Rate < 0 || (c.Limits.Rate > 0 && c.Limits.Burst <= 0) {
		return fmt.Errorf("limits: rate %v needs a positive burst", c.Limits.Rate)
	}
	switch c.Log.Encoding {
	case "console", "json":
	default:
		return fmt.Errorf("log.encoding must be console or json, got %q", c.Log.Encoding)
	}
	return nil
}
