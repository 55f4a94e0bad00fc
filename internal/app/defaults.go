package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the filesystem locations ta falls back to when the user has
// not configured anything yet.
type Defaults struct {
	ConfigPath string // TA_CONFIG_PATH, else ~/.config/ta.toml
	BaseDir    string // TA_HOME, else ~/.local/share/ta
	LogDir     string // BaseDir/log
}

// GetDefaults resolves the default paths. The TA_CONFIG_PATH and TA_HOME
// environment variables take precedence over the home-relative defaults.
func GetDefaults() (Defaults, error) {
	configPath := os.Getenv("TA_CONFIG_PATH")
	baseDir := os.Getenv("TA_HOME")

	if configPath == "" || baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Defaults{}, fmt.Errorf("cannot determine home directory: %w", err)
		}
		if configPath == "" {
			configPath = filepath.Join(home, ".config", "ta.toml")
		}
		if baseDir == "" {
			baseDir = filepath.Join(home, ".local", "share", "ta")
		}
	}

	return Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}
