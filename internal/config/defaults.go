package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config that provisions C# and VB.NET from
// profiles in the current directory.
func DefaultConfig() *Config {
	cacheDir := defaultCacheDir()

	return &Config{
		ConfigDir: filepath.Join(".sonarqube", "conf"),
		Languages: DefaultLanguages(),
		Profiles:  []string{"profiles"},
		Workers:   0,
		LogLevel:  "info",
		Installer: defaultInstallerConfig(cacheDir),
		Scanner:   defaultScannerConfig(),
		Output:    OutputConfig{Format: "markdown"},
		History: HistoryConfig{
			Path:      filepath.Join(cacheDir, "history.db"),
			Retention: 90 * 24 * time.Hour,
		},
	}
}

// DefaultLanguages returns the Roslyn languages provisioned by default.
func DefaultLanguages() []string {
	return []string{"cs", "vbnet"}
}

// defaultCacheDir returns the default cache directory path.
func defaultCacheDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".cache", "sonarprep")
}

func defaultInstallerConfig(cacheDir string) InstallerConfig {
	return InstallerConfig{
		CacheDir:  filepath.Join(cacheDir, "plugins"),
		SourceDir: filepath.Join(".sonarqube", "resources"),
		TTL:       7 * 24 * time.Hour,
	}
}

func defaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		ToolPath:       "sonar-scanner",
		HostURL:        "http://localhost:9000",
		ProjectVersion: "1.0",
		Sources:        ".",
		ProjectBaseDir: ".",
	}
}
