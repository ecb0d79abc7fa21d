package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// ProjectDir is the per-project configuration directory.
	ProjectDir = ".kgview"
	// ConfigFile is the configuration file name inside ProjectDir and the
	// user config directory.
	ConfigFile = "config.yaml"
)

// FindProjectConfig walks up from dir looking for .kgview/config.yaml and
// returns its path. The walk stops at the filesystem root or the user's
// home directory, whichever comes first.
func FindProjectConfig(dir string) (string, bool) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", false
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	home, _ := os.UserHomeDir()

	for {
		candidate := filepath.Join(dir, ProjectDir, ConfigFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		// Don't go above home directory
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}

// UserConfigPath returns the user-level config file path. It respects
// XDG_CONFIG_HOME and defaults to ~/.config/kgview/config.yaml.
func UserConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "kgview", ConfigFile)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
