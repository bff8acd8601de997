package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JNZader/sonarprep/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View sonarprep configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the current configuration, including values from
config file, environment variables, and defaults. The scanner token is masked.

Examples:
  # Show config in YAML format
  sonarprep config show

  # Show config as JSON
  sonarprep config show --json`,

	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configShowJSON bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output as JSON")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, used, err := loadConfig()
	if err != nil {
		return err
	}

	masked := maskSensitiveConfig(cfg)
	out := cmd.OutOrStdout()

	if configShowJSON {
		return outputConfigJSON(out, masked)
	}

	if !isQuiet() {
		if used != "" {
			fmt.Fprintf(out, "# Config file: %s\n\n", used)
		} else {
			fmt.Fprintf(out, "# No config file found, using defaults\n\n")
		}
	}
	return outputConfigYAML(out, masked)
}

// maskSensitiveConfig creates a copy with the scanner token masked.
func maskSensitiveConfig(cfg *config.Config) *config.Config {
	masked := *cfg

	if masked.Scanner.Token != "" {
		masked.Scanner.Token = "***REDACTED***"
	}

	return &masked
}

func outputConfigJSON(w io.Writer, cfg *config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func outputConfigYAML(w io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}
