// Package config handles all configuration management for sonarprep.
//
// Configuration is loaded from multiple sources in order of precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables (SONARPREP_*)
// 3. Configuration file (.sonarprep.yaml)
// 4. Default values (lowest priority)
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/JNZader/sonarprep/internal/logger"
	"github.com/JNZader/sonarprep/internal/report"
)

// Config is the main configuration structure for sonarprep.
type Config struct {
	// ConfigDir receives the generated rulesets and SonarLint.xml files
	ConfigDir string `mapstructure:"config_dir" yaml:"config_dir"`

	// Languages to provision; empty means every language in the profiles
	Languages []string `mapstructure:"languages" yaml:"languages"`

	// Profiles are quality profile exports, files or directories, merged in order
	Profiles []string `mapstructure:"profiles" yaml:"profiles"`

	// Workers is the number of languages provisioned in parallel (0 = auto)
	Workers int `mapstructure:"workers" yaml:"workers"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// Installer configures plugin unpacking
	Installer InstallerConfig `mapstructure:"installer" yaml:"installer"`

	// Scanner configures the scanner CLI invocation
	Scanner ScannerConfig `mapstructure:"scanner" yaml:"scanner"`

	// Output configures the run report
	Output OutputConfig `mapstructure:"output" yaml:"output"`

	// History configures the run history database
	History HistoryConfig `mapstructure:"history" yaml:"history"`
}

// HistoryConfig configures run history.
type HistoryConfig struct {
	// Enabled records every prepare run
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Path is the SQLite database file
	Path string `mapstructure:"path" yaml:"path"`

	// Retention prunes runs older than this after each recorded run (0 = keep all)
	Retention time.Duration `mapstructure:"retention" yaml:"retention"`
}

// InstallerConfig configures the local plugin installer.
type InstallerConfig struct {
	// CacheDir holds unpacked plugins
	CacheDir string `mapstructure:"cache_dir" yaml:"cache_dir"`

	// SourceDir holds plugin archives as <key>/<version>/<resource>
	SourceDir string `mapstructure:"source_dir" yaml:"source_dir"`

	// TTL expires unpacked plugins (0 = never)
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// ScannerConfig configures the SonarQube Scanner CLI run.
type ScannerConfig struct {
	ToolPath       string `mapstructure:"tool_path" yaml:"tool_path"`
	HostURL        string `mapstructure:"host_url" yaml:"host_url"`
	Token          string `mapstructure:"token" yaml:"token"`
	ProjectKey     string `mapstructure:"project_key" yaml:"project_key"`
	ProjectName    string `mapstructure:"project_name" yaml:"project_name"`
	ProjectVersion string `mapstructure:"project_version" yaml:"project_version"`
	Sources        string `mapstructure:"sources" yaml:"sources"`
	ProjectBaseDir string `mapstructure:"project_base_dir" yaml:"project_base_dir"`
	SettingsFile   string `mapstructure:"settings_file" yaml:"settings_file"`

	// RepositoryProvider and SourceBranch describe the CI build
	RepositoryProvider string `mapstructure:"repository_provider" yaml:"repository_provider"`
	SourceBranch       string `mapstructure:"source_branch" yaml:"source_branch"`

	// Features are boolean build feature flags, e.g. SQPullRequestBot
	Features map[string]string `mapstructure:"features" yaml:"features"`
}

// OutputConfig configures output formatting.
type OutputConfig struct {
	// Format is the report format: "markdown", "json", "yaml"
	Format string `mapstructure:"format" yaml:"format"`

	// File is the output file path (empty = stdout)
	File string `mapstructure:"file" yaml:"file"`
}

// ConfigDirectory returns where generated analyzer configuration goes.
func (c *Config) ConfigDirectory() string {
	return c.ConfigDir
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.ConfigDir == "" {
		return &ValidationError{Field: "config_dir", Message: "config directory is required"}
	}

	if c.Workers < 0 {
		return &ValidationError{Field: "workers", Message: "must not be negative"}
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return &ValidationError{Field: "log_level", Message: err.Error()}
	}

	for _, lang := range c.Languages {
		if strings.TrimSpace(lang) == "" {
			return &ValidationError{Field: "languages", Message: "language must not be blank"}
		}
	}

	if c.Installer.CacheDir == "" {
		return &ValidationError{Field: "installer.cache_dir", Message: "cache directory is required"}
	}

	if c.Installer.TTL < 0 {
		return &ValidationError{Field: "installer.ttl", Message: "must not be negative"}
	}

	if c.History.Enabled && c.History.Path == "" {
		return &ValidationError{Field: "history.path", Message: "required when history is enabled"}
	}

	if c.History.Retention < 0 {
		return &ValidationError{Field: "history.retention", Message: "must not be negative"}
	}

	if _, err := report.NewReporter(c.Output.Format); err != nil {
		return &ValidationError{
			Field:   "output.format",
			Message: fmt.Sprintf("invalid format, must be one of: %s", strings.Join(report.AvailableFormats(), ", ")),
		}
	}

	return nil
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "config validation error: " + e.Field + ": " + e.Message
}
