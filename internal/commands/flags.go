package commands

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/colonyops/backlog/internal/core/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	Backend    string
	User       string
	Project    string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "backlog", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "backlog")
}

// DefaultLogFile returns the default log file path using the system's state directory.
// On macOS: ~/Library/Logs/backlog/backlog.log
// On Linux: $XDG_STATE_HOME/backlog/backlog.log (defaults to ~/.local/state/backlog/backlog.log)
func DefaultLogFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome != "" {
		return filepath.Join(stateHome, "backlog", "backlog.log")
	}

	home, _ := os.UserHomeDir()

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "backlog", "backlog.log")
	}

	return filepath.Join(home, ".local", "state", "backlog", "backlog.log")
}

// ConfigOptions returns the config overrides given as global flags.
func (f *Flags) ConfigOptions() []config.Option {
	return []config.Option{
		config.WithBackend(f.Backend),
		config.WithUser(f.User),
		config.WithProject(f.Project),
	}
}
