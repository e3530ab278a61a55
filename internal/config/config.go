// Package config provides configuration management for forcegraph.
//
// Config file locations (priority order):
//  1. $FORCEGRAPH_CONFIG
//  2. ./forcegraph.yaml (or ./forcegraph.toml)
//  3. ~/.config/forcegraph/config.yaml
//  4. /etc/forcegraph/config.yaml
//
// A .env file in the working directory is loaded first, so it may set
// FORCEGRAPH_CONFIG as well as the individual overrides below. Files ending
// in .toml are parsed as TOML, everything else as YAML.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"forcegraph/internal/domain"
	"forcegraph/internal/engine"
)

// Environment overrides, applied after the config file is read
const (
	EnvAddr     = "FORCEGRAPH_ADDR"
	EnvDatabase = "FORCEGRAPH_DB"
	EnvDataURL  = "FORCEGRAPH_DATA_URL"
	EnvWatch    = "FORCEGRAPH_WATCH"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	if err := LoadEnvFile(EnvFileName); err != nil {
		return nil, "", err
	}

	path := FindConfigPath()

	if path == "" {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadEnvFile loads a dotenv file without overriding variables that are
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if !fileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if isTOML(path) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, path, fmt.Errorf("parse config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{Version: 1}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}

	g := &c.Graph
	if g.Dimensions == 0 {
		g.Dimensions = engine.DefaultDimensions
	}
	if g.NodeRelSize == 0 {
		g.NodeRelSize = engine.DefaultNodeRelSize
	}
	if g.LineOpacity == 0 {
		g.LineOpacity = engine.DefaultLineOpacity
	}
	if g.CooldownTime == 0 {
		g.CooldownTime = Duration(engine.DefaultCooldownTime)
	}
	fields := g.Fields.mapping().WithDefaults()
	g.Fields = FieldsConfig{
		ID:         fields.ID,
		Value:      fields.Value,
		Name:       fields.Name,
		Color:      fields.Color,
		LinkSource: fields.LinkSource,
		LinkTarget: fields.LinkTarget,
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.FrameRate == 0 {
		c.Server.FrameRate = 60
	}
	if c.Database.Path == "" {
		c.Database.Path = "./forcegraph.db"
	}
	if c.Database.KeepSnapshots == 0 {
		c.Database.KeepSnapshots = 20
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = Duration(30 * time.Second)
	}
	if c.Fetch.RequestsPerSecond == 0 {
		c.Fetch.RequestsPerSecond = 2
	}
	if c.Fetch.Burst == 0 {
		c.Fetch.Burst = 1
	}
	if c.Fetch.MaxBytes == 0 {
		c.Fetch.MaxBytes = 64 << 20
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = Duration(250 * time.Millisecond)
	}
}

// applyEnv applies environment overrides
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvDataURL); v != "" {
		c.Graph.DataURL = v
	}
	if v := os.Getenv(EnvWatch); v != "" {
		c.Watch.Path = v
	}
}

// FrameInterval returns the frame loop period
func (c *Config) FrameInterval() time.Duration {
	if c.Server.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.Server.FrameRate)
}

// Engine converts the graph section to an engine configuration. The payload
// is left empty.
func (g GraphConfig) Engine() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.DataURL = g.DataURL
	cfg.Dimensions = g.Dimensions
	cfg.NodeRelSize = g.NodeRelSize
	cfg.LineOpacity = g.LineOpacity
	cfg.AutoColorBy = g.AutoColorBy
	cfg.Fields = g.Fields.mapping().WithDefaults()
	cfg.WarmupTicks = g.WarmupTicks
	if g.CooldownTicks != nil {
		cfg.CooldownTicks = *g.CooldownTicks
	}
	if g.CooldownTime > 0 {
		cfg.CooldownTime = g.CooldownTime.Duration()
	}
	return cfg
}

func (f FieldsConfig) mapping() domain.FieldMapping {
	return domain.FieldMapping{
		ID:         f.ID,
		Value:      f.Value,
		Name:       f.Name,
		Color:      f.Color,
		LinkSource: f.LinkSource,
		LinkTarget: f.LinkTarget,
	}
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	g := c.Graph
	cooldown := "unbounded"
	if g.CooldownTicks != nil {
		cooldown = strconv.Itoa(*g.CooldownTicks)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Layout: %dD, warmup %d ticks, cooldown %s ticks / %s\n",
		g.Dimensions, g.WarmupTicks, cooldown, g.CooldownTime.Duration())
	fmt.Fprintf(&b, "Server: %s at %d fps, database %s\n",
		c.Server.Addr, c.Server.FrameRate, c.Database.Path)
	if g.DataURL != "" {
		fmt.Fprintf(&b, "Data: %s\n", g.DataURL)
	}
	if c.Watch.Path != "" {
		fmt.Fprintf(&b, "Watching: %s (debounce %s)\n", c.Watch.Path, c.Watch.Debounce.Duration())
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
