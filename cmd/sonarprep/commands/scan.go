package commands

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/JNZader/sonarprep/internal/config"
	"github.com/JNZader/sonarprep/internal/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan [-- extra scanner arguments]",
	Short: "Run the SonarQube Scanner CLI",
	Long: `Run the SonarQube Scanner CLI with the connection, project and source
properties from configuration. Extra arguments are appended as given.

Pull-request builds on a hosted Git repository run in issues mode. They are
skipped entirely when the SQPullRequestBot feature is set to false.

Examples:
  # Run the scanner
  sonarprep scan

  # Print the arguments the scanner would get
  sonarprep scan --args-only

  # Pass extra properties
  sonarprep scan -- -Dsonar.exclusions=**/Generated/**`,

	RunE: runScan,
}

var scanArgsOnly bool

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&scanArgsOnly, "args-only", false, "print scanner arguments and exit")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	build := buildContext(cfg)
	if build.ShouldSkip() {
		log.Info("Pull request analysis is disabled by the %s feature, skipping", scanner.FeaturePullRequestBot)
		return nil
	}

	params := scannerParameters(cfg, build)
	if err := params.Validate(); err != nil {
		return err
	}

	scanArgs := append(params.Args(), args...)
	if scanArgsOnly {
		for _, a := range scanArgs {
			fmt.Fprintln(cmd.OutOrStdout(), a)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return scanner.NewRunner(cfg.Scanner.ToolPath, cfg.Scanner.ProjectBaseDir, log).Run(ctx, scanArgs)
}

func buildContext(cfg *config.Config) scanner.BuildContext {
	return scanner.BuildContext{
		RepositoryProvider: cfg.Scanner.RepositoryProvider,
		SourceBranch:       cfg.Scanner.SourceBranch,
		Features:           cfg.Scanner.Features,
	}
}

func scannerParameters(cfg *config.Config, build scanner.BuildContext) scanner.Parameters {
	sc := cfg.Scanner
	return scanner.Parameters{
		HostURL:        sc.HostURL,
		Token:          sc.Token,
		ProjectKey:     sc.ProjectKey,
		ProjectName:    sc.ProjectName,
		ProjectVersion: sc.ProjectVersion,
		Sources:        sc.Sources,
		ProjectBaseDir: sc.ProjectBaseDir,
		SettingsFile:   sc.SettingsFile,
		PullRequest:    build.IsPullRequest(),
	}
}
