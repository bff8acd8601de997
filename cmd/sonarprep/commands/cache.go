package commands

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/JNZader/sonarprep/internal/installer"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the analyzer plugin cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unpacked analyzer plugins",
	Long: `List the analyzer plugins unpacked into installer.cache_dir, with their
assembly count, unpacked size and expiry.

Examples:
  sonarprep cache list
  sonarprep cache list --json`,

	Args: cobra.NoArgs,
	RunE: runCacheList,
}

var cacheListJSON bool

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)

	cacheListCmd.Flags().BoolVar(&cacheListJSON, "json", false, "output as JSON")
}

func runCacheList(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	local, err := installer.NewLocal(cfg.Installer.SourceDir, cfg.Installer.CacheDir, cfg.Installer.TTL, newLogger(cfg))
	if err != nil {
		return fmt.Errorf("opening plugin cache: %w", err)
	}
	defer local.Close()

	cached, err := local.Cached()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cacheListJSON {
		return writeJSON(out, cached)
	}
	if len(cached) == 0 {
		fmt.Fprintf(out, "No plugins cached in %s\n", cfg.Installer.CacheDir)
		return nil
	}

	var total uint64
	rows := make([][]string, 0, len(cached))
	for _, c := range cached {
		expires := "never"
		if !c.ExpiresAt.IsZero() {
			expires = humanize.Time(c.ExpiresAt)
		}
		rows = append(rows, []string{c.Plugin.String(), strconv.Itoa(c.Assemblies), humanize.Bytes(c.Size), expires})
		total += c.Size
	}

	w := tablewriter.NewWriter(out)
	w.Header("plugin", "assemblies", "size", "expires")
	if err := w.Bulk(rows); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}
	if err := w.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	fmt.Fprintf(out, "%d plugins, %s\n", len(cached), humanize.Bytes(total))
	return nil
}
