package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version" toml:"version" json:"version"`
	Graph    GraphConfig    `yaml:"graph" toml:"graph" json:"graph"`
	Server   ServerConfig   `yaml:"server" toml:"server" json:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database" json:"database"`
	Fetch    FetchConfig    `yaml:"fetch" toml:"fetch" json:"fetch"`
	Watch    WatchConfig    `yaml:"watch" toml:"watch" json:"watch"`
}

// GraphConfig holds the layout engine options
type GraphConfig struct {
	DataURL     string       `yaml:"data_url,omitempty" toml:"data_url,omitempty" json:"data_url,omitempty"`
	Dimensions  int          `yaml:"dimensions" toml:"dimensions" json:"dimensions"`
	NodeRelSize float64      `yaml:"node_rel_size" toml:"node_rel_size" json:"node_rel_size"`
	LineOpacity float64      `yaml:"line_opacity" toml:"line_opacity" json:"line_opacity"`
	AutoColorBy string       `yaml:"auto_color_by,omitempty" toml:"auto_color_by,omitempty" json:"auto_color_by,omitempty"`
	Fields      FieldsConfig `yaml:"fields" toml:"fields" json:"fields"`
	WarmupTicks int          `yaml:"warmup_ticks" toml:"warmup_ticks" json:"warmup_ticks"`
	// CooldownTicks is unbounded when nil
	CooldownTicks *int     `yaml:"cooldown_ticks,omitempty" toml:"cooldown_ticks,omitempty" json:"cooldown_ticks,omitempty"`
	CooldownTime  Duration `yaml:"cooldown_time" toml:"cooldown_time" json:"cooldown_time"`
}

// FieldsConfig names the record keys read during normalization
type FieldsConfig struct {
	ID         string `yaml:"id" toml:"id" json:"id"`
	Value      string `yaml:"value" toml:"value" json:"value"`
	Name       string `yaml:"name" toml:"name" json:"name"`
	Color      string `yaml:"color" toml:"color" json:"color"`
	LinkSource string `yaml:"link_source" toml:"link_source" json:"link_source"`
	LinkTarget string `yaml:"link_target" toml:"link_target" json:"link_target"`
}

// ServerConfig holds HTTP server and frame loop settings
type ServerConfig struct {
	Addr      string `yaml:"addr" toml:"addr" json:"addr"`
	FrameRate int    `yaml:"frame_rate" toml:"frame_rate" json:"frame_rate"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path" json:"path"`
	// KeepSnapshots bounds stored snapshots; negative keeps all of them
	KeepSnapshots int `yaml:"keep_snapshots" toml:"keep_snapshots" json:"keep_snapshots"`
}

// FetchConfig holds payload client settings
type FetchConfig struct {
	Timeout           Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
	RequestsPerSecond float64  `yaml:"requests_per_second" toml:"requests_per_second" json:"requests_per_second"`
	Burst             int      `yaml:"burst" toml:"burst" json:"burst"`
	BaseURL           string   `yaml:"base_url,omitempty" toml:"base_url,omitempty" json:"base_url,omitempty"`
	MaxBytes          int64    `yaml:"max_bytes" toml:"max_bytes" json:"max_bytes"`
}

// WatchConfig holds payload file watching settings
type WatchConfig struct {
	Path     string   `yaml:"path,omitempty" toml:"path,omitempty" json:"path,omitempty"`
	Debounce Duration `yaml:"debounce" toml:"debounce" json:"debounce"`
}

// Duration wraps time.Duration for config unmarshaling. Strings are parsed
// with time.ParseDuration; bare integers are milliseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalJSON accepts a duration string or a number of milliseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var ms float64
		if err := json.Unmarshal(data, &ms); err != nil {
			return fmt.Errorf("invalid duration %s", data)
		}
		*d = Duration(time.Duration(ms * float64(time.Millisecond)))
		return nil
	}
	return d.UnmarshalText([]byte(s))
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return parsed, nil
}
