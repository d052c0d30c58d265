package config

import (
	"os"
	"path/filepath"
)

// File and directory names the config search uses
const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "IYP_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "iyp.yaml"
	// ConfigDirName is the per-user and system config directory
	ConfigDirName = "iyp"
	// EnvFileName holds environment overrides
	EnvFileName = ".env"
)

// configDirs lists config directories, most specific first:
// $XDG_CONFIG_HOME/iyp, ~/.config/iyp, /etc/iyp
func configDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, ConfigDirName))
	}
	if home := os.Getenv("HOME"); home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", ConfigDirName))
	}
	return append(dirs, filepath.Join("/etc", ConfigDirName))
}

// SearchPaths returns the config file candidates in priority order:
// $IYP_CONFIG, ./iyp.yaml, then config.yaml in each config directory
func SearchPaths() []string {
	var paths []string
	if path := os.Getenv(EnvConfigPath); path != "" {
		paths = append(paths, path)
	}
	paths = append(paths, ConfigFileName)
	for _, dir := range configDirs() {
		paths = append(paths, filepath.Join(dir, "config.yaml"))
	}
	return paths
}

// FindConfigPath returns the first SearchPaths entry that exists, made
// absolute, or "" when there is none
func FindConfigPath() string {
	for _, path := range SearchPaths() {
		if !fileExists(path) {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// EnvFiles returns the .env files that exist, working directory first,
// then the one beside configPath. Earlier files win.
func EnvFiles(configPath string) []string {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil || seen[abs] || !fileExists(abs) {
			return
		}
		seen[abs] = true
		files = append(files, abs)
	}

	add(EnvFileName)
	if configPath != "" {
		add(filepath.Join(filepath.Dir(configPath), EnvFileName))
	}
	return files
}

// EnsureConfigDir creates the directory of configPath if it doesn't exist
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
