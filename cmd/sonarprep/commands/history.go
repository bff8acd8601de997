package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/JNZader/sonarprep/internal/config"
	"github.com/JNZader/sonarprep/internal/history"
	"github.com/JNZader/sonarprep/internal/logger"
	"github.com/JNZader/sonarprep/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past prepare runs",
	Long: `Display the prepare runs recorded in the history database.

Runs are recorded when history.enabled is set in the configuration.

Examples:
  # Last 20 runs
  sonarprep history

  # Failed C# setups
  sonarprep history outcomes --language cs --status failed

  # Totals by status and language
  sonarprep history stats --json`,

	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyOutcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "Show per-language outcomes of past runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryOutcomes,
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	Args:  cobra.NoArgs,
	RunE:  runHistoryStats,
}

var (
	historyLimit    int
	historyJSON     bool
	historyLanguage string
	historyStatus   string
	historySince    time.Duration
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyOutcomesCmd)
	historyCmd.AddCommand(historyStatsCmd)

	historyCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "output as JSON")
	historyCmd.PersistentFlags().IntVar(&historyLimit, "limit", 20, "maximum number of entries")

	historyOutcomesCmd.Flags().StringVarP(&historyLanguage, "language", "l", "", "filter by language")
	historyOutcomesCmd.Flags().StringVar(&historyStatus, "status", "", "filter by status: configured, skipped, failed")
	historyOutcomesCmd.Flags().DurationVar(&historySince, "since", 0, "only runs started within this duration")
}

// recordHistory stores summary and prunes runs past the retention.
func recordHistory(ctx context.Context, cfg config.HistoryConfig, summary *report.Summary, log *logger.Logger) error {
	store, err := history.NewStore(history.StoreConfig{Path: cfg.Path})
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer store.Close()

	if err := store.RecordRun(ctx, summary); err != nil {
		return err
	}
	log.Debug("Recorded run in %s", cfg.Path)

	if cfg.Retention > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-cfg.Retention))
		if err != nil {
			return err
		}
		if n > 0 {
			log.Debug("Pruned %d runs older than %s", n, cfg.Retention)
		}
	}
	return nil
}

func openHistory() (*history.Store, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.NewStore(history.StoreConfig{Path: cfg.History.Path})
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	return store, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		return writeJSON(out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.RunID,
			humanize.Time(r.StartedAt),
			r.Duration,
			strconv.Itoa(r.Configured),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
		})
	}

	w := tablewriter.NewWriter(out)
	w.Header("run", "started", "duration", "configured", "skipped", "failed")
	if err := w.Bulk(rows); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}
	if err := w.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}
	return nil
}

func runHistoryOutcomes(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	q := history.OutcomeQuery{
		Language: historyLanguage,
		Status:   historyStatus,
		Limit:    historyLimit,
	}
	if historySince > 0 {
		q.Since = time.Now().Add(-historySince)
	}

	records, err := store.Outcomes(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("listing outcomes: %w", err)
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		return writeJSON(out, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No matching outcomes")
		return nil
	}

	for _, r := range records {
		line := fmt.Sprintf("%s  %-8s %-10s", r.StartedAt.Format("2006-01-02 15:04"), r.Language, r.Status)
		switch r.Status {
		case history.StatusConfigured:
			line += fmt.Sprintf(" %d assemblies", r.Assemblies)
		case history.StatusFailed:
			line += " " + r.Error
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func runHistoryStats(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.GetStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("getting stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		return writeJSON(out, stats)
	}

	fmt.Fprintf(out, "Runs: %d\n\n", stats.TotalRuns)
	fmt.Fprintln(out, "By status")
	for _, s := range []string{history.StatusConfigured, history.StatusSkipped, history.StatusFailed} {
		fmt.Fprintf(out, "   %-12s %d\n", s, stats.ByStatus[s])
	}

	fmt.Fprintln(out, "\nBy language")
	langs := make([]string, 0, len(stats.ByLanguage))
	for lang := range stats.ByLanguage {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		fmt.Fprintf(out, "   %-12s %d\n", lang, stats.ByLanguage[lang])
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
