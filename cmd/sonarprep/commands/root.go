// Package commands contains all CLI commands for sonarprep.
//
// Each command is defined in its own file and registered in init().
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JNZader/sonarprep/internal/config"
	"github.com/JNZader/sonarprep/internal/logger"
)

var (
	// cfgFile holds the path to the config file (from --config flag)
	cfgFile string

	// verbose enables debug logging
	verbose bool

	// quiet suppresses all output except errors
	quiet bool

	// settings backs configuration loading; command flags bind to its keys
	settings = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "sonarprep",
	Short: "Prepare Roslyn analyzers for SonarQube analysis",
	Long: `sonarprep provisions Roslyn analyzers for a SonarQube build.

From the quality profile of each .NET language it writes a ruleset file and a
SonarLint.xml additional file, and installs the analyzer assemblies of the
plugins that own the active rules. It can then run the SonarQube Scanner CLI.

Examples:
  # Generate rulesets and install analyzers for C# and VB.NET
  sonarprep prepare

  # Only C#, with a JSON report
  sonarprep prepare --language cs --format json

  # Print the scanner arguments without running it
  sonarprep scan --args-only

  # Show current configuration
  sonarprep config show`,

	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It is called by main.main().
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .sonarprep.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
}

// loadConfig loads configuration from --config or the default search paths.
// Flags bound to settings override both.
func loadConfig() (*config.Config, string, error) {
	loader := config.NewLoaderWithViper(settings)
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, loader.ConfigFileUsed(), nil
}

// newLogger builds the command logger. Flags win over log_level.
func newLogger(cfg *config.Config) *logger.Logger {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logger.LevelInfo
	}

	switch {
	case quiet:
		level = logger.LevelError
	case verbose:
		level = logger.LevelDebug
	}

	logger.SetLevel(level)
	return logger.New(level, os.Stderr)
}

// isQuiet returns true if quiet mode is enabled
func isQuiet() bool {
	return quiet
}
