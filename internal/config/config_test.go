package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if diff := cmp.Diff([]string{"cs", "vbnet"}, cfg.Languages); diff != "" {
		t.Errorf("Languages mismatch (-want +got):\n%s", diff)
	}

	if cfg.ConfigDirectory() != filepath.Join(".sonarqube", "conf") {
		t.Errorf("ConfigDirectory() = %v", cfg.ConfigDirectory())
	}

	if cfg.Installer.TTL != 7*24*time.Hour {
		t.Errorf("Installer.TTL = %v, want 168h", cfg.Installer.TTL)
	}

	if cfg.Output.Format != "markdown" {
		t.Errorf("Output.Format = %v, want markdown", cfg.Output.Format)
	}

	if cfg.History.Enabled || filepath.Base(cfg.History.Path) != "history.db" {
		t.Errorf("History = %+v, want disabled with history.db path", cfg.History)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name:    "missing config dir",
			modify:  func(c *Config) { c.ConfigDir = "" },
			wantErr: true,
			errMsg:  "config_dir",
		},
		{
			name:    "negative workers",
			modify:  func(c *Config) { c.Workers = -1 },
			wantErr: true,
			errMsg:  "workers",
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.LogLevel = "trace" },
			wantErr: true,
			errMsg:  "log_level",
		},
		{
			name:    "blank language",
			modify:  func(c *Config) { c.Languages = []string{"cs", " "} },
			wantErr: true,
			errMsg:  "languages",
		},
		{
			name:    "missing cache dir",
			modify:  func(c *Config) { c.Installer.CacheDir = "" },
			wantErr: true,
			errMsg:  "installer.cache_dir",
		},
		{
			name:    "negative ttl",
			modify:  func(c *Config) { c.Installer.TTL = -time.Second },
			wantErr: true,
			errMsg:  "installer.ttl",
		},
		{
			name:    "invalid output format",
			modify:  func(c *Config) { c.Output.Format = "sarif" },
			wantErr: true,
			errMsg:  "output.format",
		},
		{
			name: "history enabled without path",
			modify: func(c *Config) {
				c.History.Enabled = true
				c.History.Path = ""
			},
			wantErr: true,
			errMsg:  "history.path",
		},
		{
			name:    "negative history retention",
			modify:  func(c *Config) { c.History.Retention = -time.Hour },
			wantErr: true,
			errMsg:  "history.retention",
		},
		{
			name:   "yaml output format",
			modify: func(c *Config) { c.Output.Format = "yaml" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()

			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("Validate() error = %T, want *ValidationError", err)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %v, want error containing %q", err, tt.errMsg)
				}
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sonarprep.yaml")
	content := `config_dir: /build/conf
languages: [cs]
workers: 2
installer:
  cache_dir: /tmp/plugins
  ttl: 1h
scanner:
  project_key: acme:app
  repository_provider: TfsGit
  source_branch: refs/pull/12/merge
  features:
    SQPullRequestBot: "false"
output:
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.ConfigDir != "/build/conf" {
		t.Errorf("ConfigDir = %v", cfg.ConfigDir)
	}
	if diff := cmp.Diff([]string{"cs"}, cfg.Languages); diff != "" {
		t.Errorf("Languages mismatch (-want +got):\n%s", diff)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
	if cfg.Installer.TTL != time.Hour {
		t.Errorf("Installer.TTL = %v, want 1h", cfg.Installer.TTL)
	}
	if cfg.Scanner.ProjectKey != "acme:app" {
		t.Errorf("Scanner.ProjectKey = %v", cfg.Scanner.ProjectKey)
	}
	// Defaults survive for keys the file leaves out.
	if cfg.Scanner.ToolPath != "sonar-scanner" {
		t.Errorf("Scanner.ToolPath = %v, want default", cfg.Scanner.ToolPath)
	}
	if v := cfg.Scanner.Features["sqpullrequestbot"]; v != "false" {
		t.Errorf("Scanner.Features = %v", cfg.Scanner.Features)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %v, want json", cfg.Output.Format)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("output:\n  format: pdf\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromFile(path); err == nil {
		t.Error("LoadFromFile() should reject an unknown output format")
	}
}

func TestLoaderEnvOverride(t *testing.T) {
	t.Setenv("SONARPREP_CONFIG_DIR", "/env/conf")
	t.Setenv("SONARPREP_SCANNER_HOST_URL", "https://sonar.example.com")
	t.Setenv("SONARPREP_INSTALLER_TTL", "30m")
	t.Setenv("SONARPREP_HISTORY_ENABLED", "true")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ConfigDir != "/env/conf" {
		t.Errorf("ConfigDir = %v, want /env/conf", cfg.ConfigDir)
	}
	if cfg.Scanner.HostURL != "https://sonar.example.com" {
		t.Errorf("Scanner.HostURL = %v", cfg.Scanner.HostURL)
	}
	if cfg.Installer.TTL != 30*time.Minute {
		t.Errorf("Installer.TTL = %v, want 30m", cfg.Installer.TTL)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled should be set from the environment")
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:   "test.field",
		Message: "test message",
	}

	want := "config validation error: test.field: test message"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}
