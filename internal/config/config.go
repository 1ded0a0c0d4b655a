// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the gateway configuration from a YAML file, .env files and
// A2A_GATEWAY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/go-a2a/a2a-gateway"
)

// EnvPrefix prefixes the environment variables overriding the configuration.
const EnvPrefix = "A2A_GATEWAY_"

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds the gateway configuration.
type Config struct {
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
	Store   Store   `yaml:"store"`
	Metrics Metrics `yaml:"metrics"`
	Agent   Agent   `yaml:"agent"`
}

// Server configures the HTTP endpoints.
type Server struct {
	Addr            string        `yaml:"addr"`
	RPCPath         string        `yaml:"rpc_path"`
	StreamPath      string        `yaml:"stream_path"`
	StreamTimeout   time.Duration `yaml:"stream_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigin   string        `yaml:"allowed_origin"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	H2C             bool          `yaml:"h2c"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Store configures where tasks are kept.
type Store struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

// Agent describes the agent advertised on the agent card endpoints.
type Agent struct {
	Name             string   `yaml:"name"`
	Description      string   `yaml:"description"`
	URL              string   `yaml:"url"`
	Version          string   `yaml:"version"`
	DocumentationURL string   `yaml:"documentation_url"`
	Organization     string   `yaml:"organization"`
	Streaming        bool     `yaml:"streaming"`
	InputModes       []string `yaml:"input_modes"`
	OutputModes      []string `yaml:"output_modes"`
	Skills           []Skill  `yaml:"skills"`
}

// Skill describes one skill of the agent.
type Skill struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	Examples    []string `yaml:"examples"`
}

// Card returns the agent card describing a.
func (a Agent) Card() *a2a.AgentCard {
	card := &a2a.AgentCard{
		Name:             a.Name,
		Description:      a.Description,
		URL:              a.URL,
		Version:          a.Version,
		DocumentationURL: a.DocumentationURL,
		Capabilities: a2a.AgentCapabilities{
			Streaming: a.Streaming,
		},
		DefaultInputModes:  a.InputModes,
		DefaultOutputModes: a.OutputModes,
	}
	if a.Organization != "" {
		card.Provider = &a2a.AgentProvider{Organization: a.Organization}
	}
	for _, s := range a.Skills {
		card.Skills = append(card.Skills, a2a.AgentSkill{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Tags:        s.Tags,
			Examples:    s.Examples,
		})
	}
	return card
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:            ":8080",
			RPCPath:         "/a2a",
			StreamPath:      "/a2a/stream",
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigin:   "*",
			MaxBodyBytes:    4 << 20,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Store: Store{
			Driver: StoreMemory,
		},
		Metrics: Metrics{
			Enabled: true,
		},
		Agent: Agent{
			Name:        "echo",
			Description: "Echoes the text of every message it receives.",
			URL:         "http://localhost:8080/a2a",
			Version:     "0.1.0",
			Streaming:   true,
			InputModes:  []string{"text"},
			OutputModes: []string{"text"},
			Skills: []Skill{
				{ID: "echo", Name: "Echo", Description: "Replies with the received text."},
			},
		},
	}
}

// Load returns the configuration read from path, layered over [Default].
//
// A .env file next to path, or in the working directory when path is empty, is loaded
// first without overriding variables already set. ${VAR} references in the file are
// expanded, then A2A_GATEWAY_* variables override individual fields.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDotEnv(configPath string) error {
	envPath := ".env"
	if configPath != "" {
		envPath = filepath.Join(filepath.Dir(configPath), ".env")
	}
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envPath, err)
	}
	return nil
}

// applyEnv overrides the fields of cfg from the variables found by lookup.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("ADDR", &cfg.Server.Addr)
	str("RPC_PATH", &cfg.Server.RPCPath)
	str("STREAM_PATH", &cfg.Server.StreamPath)
	str("ALLOWED_ORIGIN", &cfg.Server.AllowedOrigin)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("STORE_DRIVER", &cfg.Store.Driver)
	str("STORE_DSN", &cfg.Store.DSN)
	str("AGENT_NAME", &cfg.Agent.Name)
	str("AGENT_URL", &cfg.Agent.URL)

	if v, ok := lookup(EnvPrefix + "STREAM_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sSTREAM_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.Server.StreamTimeout = d
	}
	if v, ok := lookup(EnvPrefix + "H2C"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sH2C: %w", EnvPrefix, err)
		}
		cfg.Server.H2C = b
	}
	if v, ok := lookup(EnvPrefix + "METRICS_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sMETRICS_ENABLED: %w", EnvPrefix, err)
		}
		cfg.Metrics.Enabled = b
	}

	return nil
}

// Validate reports whether c can be served.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	paths := []struct{ name, path string }{
		{"server.rpc_path", c.Server.RPCPath},
		{"server.stream_path", c.Server.StreamPath},
	}
	for _, p := range paths {
		if !strings.HasPrefix(p.path, "/") {
			errs = append(errs, fmt.Errorf("%s must start with /", p.name))
		}
	}
	if c.Server.RPCPath == c.Server.StreamPath {
		errs = append(errs, errors.New("server.rpc_path and server.stream_path must differ"))
	}
	if c.Server.StreamTimeout < 0 {
		errs = append(errs, errors.New("server.stream_timeout must not be negative"))
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	if c.Agent.Name == "" {
		errs = append(errs, errors.New("agent.name is required"))
	}
	if c.Agent.URL == "" {
		errs = append(errs, errors.New("agent.url is required"))
	}
	if c.Agent.Version == "" {
		errs = append(errs, errors.New("agent.version is required"))
	}
	return errors.Join(errs...)
}
