package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JNZader/sonarprep/internal/analyzer"
	"github.com/JNZader/sonarprep/internal/config"
	"github.com/JNZader/sonarprep/internal/installer"
	"github.com/JNZader/sonarprep/internal/logger"
	"github.com/JNZader/sonarprep/internal/metrics"
	"github.com/JNZader/sonarprep/internal/report"
	"github.com/JNZader/sonarprep/internal/rules"
	"github.com/JNZader/sonarprep/internal/worker"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Generate rulesets and install Roslyn analyzers",
	Long: `Generate the Roslyn ruleset and SonarLint.xml file of each language and
install the analyzer assemblies its active rules need.

Rules and server settings come from quality profile exports (YAML or JSON).
Languages without active rules, or whose rules map to no installed Roslyn
analyzer, are reported as skipped.

Examples:
  # Provision every configured language
  sonarprep prepare

  # Provision C# from a specific profile export
  sonarprep prepare --language cs --profile exports/csharp.yaml

  # Write a JSON report and Prometheus metrics
  sonarprep prepare --output report.json --metrics metrics.prom

  # Metrics as JSON
  sonarprep prepare --metrics metrics.json`,

	Args: cobra.NoArgs,
	RunE: runPrepare,
}

var prepareMetricsFile string

func init() {
	rootCmd.AddCommand(prepareCmd)

	flags := prepareCmd.Flags()
	flags.StringSliceP("language", "l", nil, "languages to provision (default from config)")
	flags.StringSliceP("profile", "p", nil, "quality profile files or directories")
	flags.StringP("config-dir", "d", "", "directory for generated files")
	flags.IntP("workers", "w", 0, "languages provisioned in parallel (0 = auto)")
	flags.StringP("format", "f", "", "report format: markdown, json, yaml")
	flags.StringP("output", "o", "", "report file (default stdout)")
	flags.StringVar(&prepareMetricsFile, "metrics", "", "write metrics to file (JSON for .json, Prometheus text otherwise)")

	_ = settings.BindPFlag("languages", flags.Lookup("language"))
	_ = settings.BindPFlag("profiles", flags.Lookup("profile"))
	_ = settings.BindPFlag("config_dir", flags.Lookup("config-dir"))
	_ = settings.BindPFlag("workers", flags.Lookup("workers"))
	_ = settings.BindPFlag("output.format", flags.Lookup("format"))
	_ = settings.BindPFlag("output.file", flags.Lookup("output"))
}

func runPrepare(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("format") {
		if detected := DetectFormatFromPath(cfg.Output.File); detected != "" {
			cfg.Output.Format = detected
		}
	}

	reporter, err := report.NewReporter(cfg.Output.Format)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := newLogger(cfg).WithField("run_id", runID)

	profile, err := rules.NewLoader(cfg.Profiles...).Load()
	if err != nil {
		return fmt.Errorf("loading quality profiles: %w", err)
	}

	local, err := installer.NewLocal(cfg.Installer.SourceDir, cfg.Installer.CacheDir, cfg.Installer.TTL, log)
	if err != nil {
		return fmt.Errorf("initializing installer: %w", err)
	}
	defer local.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	collector := metrics.NewCollector()
	summary, err := runSetup(ctx, cfg, profile, local, collector, log, runID)
	if err != nil {
		return err
	}

	stats := local.Stats()
	collector.Counter(metrics.MetricPluginCacheHits).Add(stats.Hits)
	collector.Counter(metrics.MetricPluginCacheMisses).Add(stats.Misses)

	output, err := reporter.Generate(summary)
	if err != nil {
		return fmt.Errorf("generating report: %w", err)
	}
	if err := WriteOutput(cmd.OutOrStdout(), output, cfg.Output.File); err != nil {
		return err
	}

	if cfg.History.Enabled {
		if err := recordHistory(ctx, cfg.History, summary, log); err != nil {
			log.Warn("Recording run history failed: %v", err)
		}
	}

	if prepareMetricsFile != "" {
		if err := writeMetrics(collector, prepareMetricsFile); err != nil {
			return err
		}
	}

	log.Info("Provisioned %d of %d languages in %s",
		summary.Configured(), len(summary.Languages), collector.Uptime().Round(time.Millisecond))

	if failed := summary.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d languages failed", failed, len(summary.Languages))
	}
	return nil
}

// runSetup provisions every requested language on a worker pool and
// collects the outcomes in language order.
func runSetup(ctx context.Context, cfg *config.Config, profile *rules.Profile, inst analyzer.Installer,
	collector *metrics.Collector, log *logger.Logger, runID string) (*report.Summary, error) {
	provider, err := analyzer.NewProvider(inst, log)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.ConfigDir, 0755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	started := time.Now()
	languages := requestedLanguages(cfg, profile, log)
	serverSettings := profile.Settings()

	results := make([]report.LanguageResult, len(languages))
	tasks := make([]worker.Task, len(languages))
	for i, lang := range languages {
		i, lang := i, lang
		results[i] = report.LanguageResult{Language: lang}
		tasks[i] = worker.NewFuncTask(lang, func(ctx context.Context) error {
			active, inactive := profile.Rules(lang)

			timer := collector.Timer(metrics.MetricSetupDuration).Start()
			settings, ok, err := provider.SetupAnalyzer(ctx, cfg, serverSettings, active, inactive, lang)
			timer.Stop()

			switch {
			case err != nil:
				return err
			case !ok:
				results[i].Skipped = true
			default:
				results[i].Settings = settings
			}
			return nil
		})
	}

	collector.Counter(metrics.MetricLanguagesTotal).Add(int64(len(languages)))
	for i, r := range worker.RunAll(ctx, worker.Config{Workers: cfg.Workers}, tasks) {
		res := &results[i]
		switch {
		case r.Error != nil:
			res.Error = r.Error.Error()
			collector.Counter(metrics.MetricLanguagesFailed).Inc()
			log.WithField("language", r.TaskID).Error("Analyzer setup failed: %v", r.Error)
		case res.Skipped:
			collector.Counter(metrics.MetricLanguagesSkipped).Inc()
		default:
			collector.Counter(metrics.MetricLanguagesConfigured).Inc()
			collector.Counter(metrics.MetricAssemblies).Add(int64(len(res.Settings.AnalyzerAssemblies)))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("prepare interrupted: %w", err)
	}

	return &report.Summary{
		RunID:     runID,
		StartedAt: started,
		Duration:  time.Since(started).Round(time.Millisecond).String(),
		Languages: results,
	}, nil
}

// writeMetrics writes JSON for a .json path and Prometheus text otherwise.
func writeMetrics(collector *metrics.Collector, path string) error {
	data := []byte(collector.ExportPrometheus())
	if DetectFormatFromPath(path) == "json" {
		var err error
		if data, err = collector.Export(); err != nil {
			return fmt.Errorf("exporting metrics: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

// requestedLanguages returns the configured languages without duplicates,
// or every profile language, sorted, when none are configured.
func requestedLanguages(cfg *config.Config, profile *rules.Profile, log *logger.Logger) []string {
	if len(cfg.Languages) == 0 {
		langs := make([]string, 0, len(profile.Languages))
		for lang := range profile.Languages {
			langs = append(langs, lang)
		}
		sort.Strings(langs)
		return langs
	}

	seen := make(map[string]bool, len(cfg.Languages))
	var langs []string
	for _, lang := range cfg.Languages {
		if !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	}

	found := make(map[string]bool)
	for _, lang := range rules.Languages(profile, langs) {
		found[lang] = true
	}
	for _, lang := range langs {
		if !found[lang] {
			log.Warn("No quality profile rules for language %s", lang)
		}
	}
	return langs
}
