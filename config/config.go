// Package config loads the sidecar's YAML configuration.
//
// Every field has a default, so an absent file is the same as an empty one.
// Command-line flags are applied on top by main.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nstehr/saltbot/saltbot-core/model"
	"github.com/nstehr/saltbot/saltbot-core/rules"
)

// Transport names.
const (
	TransportUnix      = "unix"
	TransportWebsocket = "websocket"
)

const defaultConfigYAML = `# saltbot sidecar configuration
transport: unix
socket_path: /tmp/saltbot.sock
listen_addr: 127.0.0.1:8765
log_level: info

# Agent version: mine-minerals, build-order or macro.
profile: macro
# Steps per phase window after the first; 0 keeps the profile default.
count_max: 0
reserve_threshold: 0

# Pause before answering each observation so a human can follow the bot.
step_delay: 0s
validate_messages: true

# Leave empty to disable step traces and the episode index.
trace_dir: ""
index_path: ""
`

// Config models the sidecar configuration file.
type Config struct {
	Transport        string         `yaml:"transport"`
	SocketPath       string         `yaml:"socket_path"`
	ListenAddr       string         `yaml:"listen_addr"`
	LogLevel         string         `yaml:"log_level"`
	Profile          string         `yaml:"profile"`
	CountMax         int            `yaml:"count_max"`
	ReserveThreshold int            `yaml:"reserve_threshold"`
	StepDelay        time.Duration  `yaml:"step_delay"`
	ValidateMessages bool           `yaml:"validate_messages"`
	TraceDir         string         `yaml:"trace_dir"`
	IndexPath        string         `yaml:"index_path"`
	Registry         model.Registry `yaml:"registry,omitempty"`
	// ProfileOverrides is decoded over the selected built-in profile, using
	// the profile's own keys (detect_owner, seed, placement_spread, ...).
	ProfileOverrides yaml.Node `yaml:"profile_overrides,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	if err := yaml.Unmarshal([]byte(defaultConfigYAML), &c); err != nil {
		panic(fmt.Sprintf("config: default yaml: %v", err))
	}
	return c
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	c := Default()
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(raw []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate rejects settings the sidecar cannot run with.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportUnix:
		if c.SocketPath == "" {
			return fmt.Errorf("config: socket_path required for unix transport")
		}
	case TransportWebsocket:
		if c.ListenAddr == "" {
			return fmt.Errorf("config: listen_addr required for websocket transport")
		}
	default:
		return fmt.Errorf("config: unknown transport %q", c.Transport)
	}
	if _, err := c.AgentProfile(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.StepDelay < 0 {
		return fmt.Errorf("config: step_delay must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if err := c.AgentRegistry().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// AgentProfile resolves the configured profile with overrides applied.
// count_max and reserve_threshold win over the same keys in
// profile_overrides.
func (c Config) AgentProfile() (rules.Profile, error) {
	p, err := rules.ProfileByName(c.Profile)
	if err != nil {
		return p, err
	}
	if !c.ProfileOverrides.IsZero() {
		name := p.Name
		if err := c.ProfileOverrides.Decode(&p); err != nil {
			return p, fmt.Errorf("profile_overrides: %w", err)
		}
		p.Name = name
	}
	if _, ok := c.AgentRegistry().Owner(p.DetectOwner); !ok {
		return p, fmt.Errorf("profile_overrides: unknown detect_owner %q", p.DetectOwner)
	}
	if c.CountMax > 0 {
		p.CountMax = c.CountMax
	}
	if c.ReserveThreshold > 0 {
		p.ReserveThreshold = c.ReserveThreshold
	}
	p.Validate()
	return p, nil
}

// AgentRegistry returns the stock registry with configured overrides.
func (c Config) AgentRegistry() model.Registry {
	return model.DefaultRegistry().Merge(c.Registry)
}

// ParseLevel maps a config log level to slog.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log_level %q", s)
}
