package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName     = ".sonarprep"
	configFileName = configName + ".yaml"
	envPrefix      = "SONARPREP"
	systemDir      = "/etc/sonarprep"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return newLoader(viper.New())
}

// NewLoaderWithViper creates a loader on an existing viper instance, so
// flags bound to it take part in loading.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return newLoader(v)
}

func newLoader(v *viper.Viper) *Loader {
	v.SetConfigName(configName)
	v.SetConfigType("yaml")

	// Search paths in order of priority
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(systemDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// SetConfigFile sets a specific config file to use.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
	l.v.SetConfigFile(path)
}

// Load loads the configuration from all sources.
// Priority (highest to lowest):
// 1. Explicit config file (if set via SetConfigFile)
// 2. Environment variables (SONARPREP_*)
// 3. Config file from search paths (.sonarprep.yaml)
// 4. Default values
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	l.setDefaults(cfg)

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers every default so environment variables can
// override keys absent from the config file.
func (l *Loader) setDefaults(cfg *Config) {
	l.v.SetDefault("config_dir", cfg.ConfigDir)
	l.v.SetDefault("languages", cfg.Languages)
	l.v.SetDefault("profiles", cfg.Profiles)
	l.v.SetDefault("workers", cfg.Workers)
	l.v.SetDefault("log_level", cfg.LogLevel)

	l.v.SetDefault("installer.cache_dir", cfg.Installer.CacheDir)
	l.v.SetDefault("installer.source_dir", cfg.Installer.SourceDir)
	l.v.SetDefault("installer.ttl", cfg.Installer.TTL)

	l.v.SetDefault("scanner.tool_path", cfg.Scanner.ToolPath)
	l.v.SetDefault("scanner.host_url", cfg.Scanner.HostURL)
	l.v.SetDefault("scanner.token", cfg.Scanner.Token)
	l.v.SetDefault("scanner.project_key", cfg.Scanner.ProjectKey)
	l.v.SetDefault("scanner.project_name", cfg.Scanner.ProjectName)
	l.v.SetDefault("scanner.project_version", cfg.Scanner.ProjectVersion)
	l.v.SetDefault("scanner.sources", cfg.Scanner.Sources)
	l.v.SetDefault("scanner.project_base_dir", cfg.Scanner.ProjectBaseDir)
	l.v.SetDefault("scanner.settings_file", cfg.Scanner.SettingsFile)
	l.v.SetDefault("scanner.repository_provider", cfg.Scanner.RepositoryProvider)
	l.v.SetDefault("scanner.source_branch", cfg.Scanner.SourceBranch)

	l.v.SetDefault("output.format", cfg.Output.Format)
	l.v.SetDefault("output.file", cfg.Output.File)

	l.v.SetDefault("history.enabled", cfg.History.Enabled)
	l.v.SetDefault("history.path", cfg.History.Path)
	l.v.SetDefault("history.retention", cfg.History.Retention)
}

// ConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration with default search paths.
func LoadDefault() (*Config, error) {
	return NewLoader().Load()
}

// FindConfigFile searches for a config file and returns its path.
// Returns empty string if no config file is found.
func FindConfigFile() string {
	if _, err := os.Stat(configFileName); err == nil {
		if abs, err := filepath.Abs(configFileName); err == nil {
			return abs
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, configFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	etcPath := filepath.Join(systemDir, configFileName)
	if _, err := os.Stat(etcPath); err == nil {
		return etcPath
	}

	return ""
}
