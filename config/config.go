// Package config loads the YAML configuration shared by xdao-rcfd and the
// store-backed xdao-rcf subcommands.
//
// Example:
//
//	canonical:
//	  algorithm: sha2-256
//	  fixed_decimal_parameters: false
//	store:
//	  write_policy: all
//	  backends:
//	    - kind: localfs
//	      dir: ${HOME}/.xdao-rcf/cas
//	    - kind: grpc
//	      id: mirror
//	      target: rcf.internal:7443
//	    - kind: ipfs
//	      ipfs_path: /var/lib/ipfs
//	server:
//	  listen: 127.0.0.1:7443
//	  require_canonical: true
//	  admin_listen: 127.0.0.1:9464
//	log:
//	  level: info
//	  format: console
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"xdao.co/rcf/rcf"
)

type Config struct {
	Canonical CanonicalConfig `yaml:"canonical"`
	Store     StoreConfig     `yaml:"store"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

type CanonicalConfig struct {
	Algorithm              string `yaml:"algorithm"` // "sha2-256", "sha3-256" or "blake3"
	FixedDecimalParameters bool   `yaml:"fixed_decimal_parameters"`
}

// StoreConfig selects one or more CAS backends.
//
// WritePolicy values:
// - "first" (default): write only to the first backend; reads fall back in order
// - "all": write to all backends and require CID equality
type StoreConfig struct {
	WritePolicy string          `yaml:"write_policy"`
	Backends    []BackendConfig `yaml:"backends"`
}

type BackendConfig struct {
	Kind string `yaml:"kind"` // "memory", "localfs", "ipfs" or "grpc"
	// ID is an optional stable alias used in logs and per-backend CID maps.
	// If empty, Kind is used.
	ID string `yaml:"id,omitempty"`

	Dir string `yaml:"dir,omitempty"` // localfs

	Bin      string `yaml:"bin,omitempty"` // ipfs
	IPFSPath string `yaml:"ipfs_path,omitempty"`

	Target      string        `yaml:"target,omitempty"` // grpc
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	MaxMsgBytes int           `yaml:"max_msg_bytes,omitempty"`
}

type ServerConfig struct {
	Listen           string `yaml:"listen"`
	MaxMsgBytes      int    `yaml:"max_msg_bytes"`
	RequireCanonical bool   `yaml:"require_canonical"`

	// AdminListen serves /metrics and /healthz over HTTP. Empty disables it.
	AdminListen string `yaml:"admin_listen,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// Load reads path, expands ${VAR} references, applies XDAO_RCF_* overrides
// and defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return finish(&cfg)
}

// Default returns the configuration used when no file is given: SHA-256, an
// in-memory store, info-level console logging. Env overrides still apply.
func Default() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	setDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("XDAO_RCF_ALGORITHM"); v != "" {
		cfg.Canonical.Algorithm = v
	}
	if v := os.Getenv("XDAO_RCF_FIXED_DECIMAL_PARAMETERS"); v != "" {
		cfg.Canonical.FixedDecimalParameters = parseBool(v)
	}

	// A directory or target override replaces the backend list with a single backend.
	if v := os.Getenv("XDAO_RCF_STORE_DIR"); v != "" {
		cfg.Store.Backends = []BackendConfig{{Kind: "localfs", Dir: v}}
	}
	if v := os.Getenv("XDAO_RCF_STORE_TARGET"); v != "" {
		cfg.Store.Backends = []BackendConfig{{Kind: "grpc", Target: v}}
	}
	if v := os.Getenv("XDAO_RCF_STORE_WRITE_POLICY"); v != "" {
		cfg.Store.WritePolicy = v
	}

	if v := os.Getenv("XDAO_RCF_SERVER_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("XDAO_RCF_SERVER_MAX_MSG_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxMsgBytes = n
		}
	}
	if v := os.Getenv("XDAO_RCF_SERVER_REQUIRE_CANONICAL"); v != "" {
		cfg.Server.RequireCanonical = parseBool(v)
	}
	if v := os.Getenv("XDAO_RCF_SERVER_ADMIN_LISTEN"); v != "" {
		cfg.Server.AdminListen = v
	}

	if v := os.Getenv("XDAO_RCF_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("XDAO_RCF_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Canonical.Algorithm == "" {
		cfg.Canonical.Algorithm = rcf.SHA256.String()
	}
	if cfg.Store.WritePolicy == "" {
		cfg.Store.WritePolicy = "first"
	}
	if len(cfg.Store.Backends) == 0 {
		cfg.Store.Backends = []BackendConfig{{Kind: "memory"}}
	}
	for i := range cfg.Store.Backends {
		b := &cfg.Store.Backends[i]
		if b.Kind == "grpc" && b.Timeout == 0 {
			b.Timeout = 10 * time.Second
		}
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = "127.0.0.1:7443"
	}
	if cfg.Server.MaxMsgBytes == 0 {
		cfg.Server.MaxMsgBytes = 4 << 20
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if _, err := c.Canonicalizer(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if c.Server.MaxMsgBytes < 0 {
		return errors.New("server.max_msg_bytes must not be negative")
	}
	if c.Server.AdminListen != "" && c.Server.AdminListen == c.Server.Listen {
		return errors.New("server.admin_listen must differ from server.listen")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// Canonicalizer returns the canonicalizer described by the canonical section.
func (c *Config) Canonicalizer() (rcf.Canonicalizer, error) {
	alg, err := rcf.ParseAlgorithm(c.Canonical.Algorithm)
	if err != nil {
		return rcf.Canonicalizer{}, fmt.Errorf("canonical.algorithm: %w", err)
	}
	return rcf.Canonicalizer{Options: rcf.Options{
		Algorithm:              alg,
		FixedDecimalParameters: c.Canonical.FixedDecimalParameters,
	}}, nil
}

// Logger builds a zerolog logger writing to w.
func (l LogConfig) Logger(w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(l.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if l.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
