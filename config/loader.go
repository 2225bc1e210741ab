package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "pgrooms.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/pgrooms"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
	// CredentialFile is the default token file name inside UserConfigDir
	CredentialFile = "credential"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
	home   string
	getenv func(string) string
	getwd  func() (string, error)

	overrides []func(*Config)
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	home, _ := os.UserHomeDir()
	return &Loader{
		logger: logger,
		home:   home,
		getenv: os.Getenv,
		getwd:  os.Getwd,
	}
}

// Override registers fn to run after environment overrides and before
// validation. Command line flags use it.
func (l *Loader) Override(fn func(*Config)) {
	l.overrides = append(l.overrides, fn)
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/pgrooms/config.yaml)
// 3. Project config (pgrooms.yaml in current or parent directories)
// 4. Environment variables (PGROOMS_API_BASE_URL)
// 5. Registered overrides
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfigPath != "" {
		if userConfig, err := loadLayer(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
			config.Merge(userConfig)
		} else if !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if projectConfig, err := loadLayer(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	return l.finish(config)
}

// LoadFile loads defaults, then path, then environment overrides. It is
// used when a config file is named explicitly and skips the layered search.
func (l *Loader) LoadFile(path string) (*Config, error) {
	fileConfig, err := loadLayer(path)
	if err != nil {
		return nil, err
	}
	config := DefaultConfig()
	config.Merge(fileConfig)
	l.logger.Debug("Loaded config", slog.String("path", path))
	return l.finish(config)
}

func (l *Loader) finish(config *Config) (*Config, error) {
	config.ApplyEnv(l.getenv)
	for _, fn := range l.overrides {
		fn(config)
	}

	if config.Credential.Path == "" && l.home != "" {
		config.Credential.Path = filepath.Join(l.home, UserConfigDir, CredentialFile)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()

	if _, err := os.Stat(userConfigPath); err == nil {
		return nil
	}

	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	if l.home == "" {
		return ""
	}
	return filepath.Join(l.home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for pgrooms.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	cwd, err := l.getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
