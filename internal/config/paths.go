package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file.
	EnvConfigPath = "FORCEGRAPH_CONFIG"
	// ConfigFileName is looked up in the working directory.
	ConfigFileName = "forcegraph.yaml"
	// ConfigDirName is the per-user and system config directory.
	ConfigDirName = "forcegraph"
	// EnvFileName is the dotenv file loaded before discovery.
	EnvFileName = ".env"
)

// Both formats are accepted at every location; YAML wins when both exist.
var configNames = []string{"config.yaml", "config.toml"}

// SearchPaths lists the config file candidates, most specific first:
// $FORCEGRAPH_CONFIG, the working directory, $XDG_CONFIG_HOME,
// ~/.config and /etc.
func SearchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, ConfigFileName, "forcegraph.toml")

	for _, dir := range configDirs() {
		for _, name := range configNames {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

// FindConfigPath returns the first existing candidate from SearchPaths, or
// "" when there is none. Working directory hits are made absolute.
func FindConfigPath() string {
	for _, p := range SearchPaths() {
		if !fileExists(p) {
			continue
		}
		if !filepath.IsAbs(p) {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
		}
		return p
	}
	return ""
}

// DefaultConfigPath is where `config init` writes when no path is given.
func DefaultConfigPath() string {
	if dirs := configDirs(); len(dirs) > 1 {
		return filepath.Join(dirs[0], configNames[0])
	}
	return ConfigFileName
}

// configDirs returns the user config directory (when known) followed by
// the system one.
func configDirs() []string {
	var dirs []string
	switch {
	case os.Getenv("XDG_CONFIG_HOME") != "":
		dirs = append(dirs, filepath.Join(os.Getenv("XDG_CONFIG_HOME"), ConfigDirName))
	case os.Getenv("HOME") != "":
		dirs = append(dirs, filepath.Join(os.Getenv("HOME"), ".config", ConfigDirName))
	}
	return append(dirs, filepath.Join("/etc", ConfigDirName))
}

// EnsureConfigDir creates the parent directory of configPath.
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
