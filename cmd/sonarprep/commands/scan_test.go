package commands

import (
	"testing"

	"github.com/JNZader/sonarprep/internal/config"
)

func TestScannerParameters(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scanner.ProjectKey = "acme:app"
	cfg.Scanner.ProjectName = "App"
	cfg.Scanner.Token = "squ_secret"
	cfg.Scanner.RepositoryProvider = "TfsGit"
	cfg.Scanner.SourceBranch = "refs/pull/9/merge"

	build := buildContext(cfg)
	params := scannerParameters(cfg, build)

	if !params.PullRequest {
		t.Error("pull-request build should set PullRequest")
	}
	if params.Token != "squ_secret" || params.ProjectKey != "acme:app" {
		t.Errorf("params = %+v", params)
	}
	if err := params.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestBuildContextSkip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scanner.RepositoryProvider = "tfsgit"
	cfg.Scanner.SourceBranch = "refs/pull/9/merge"
	// Keys arrive lower-cased from the config loader.
	cfg.Scanner.Features = map[string]string{"sqpullrequestbot": "false"}

	if !buildContext(cfg).ShouldSkip() {
		t.Error("disabled pull-request bot should skip analysis")
	}
}
