package scanner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JNZader/sonarprep/internal/logger"
)

func testParameters() Parameters {
	return Parameters{
		HostURL:        "https://sonar.example.com",
		Token:          "squ_token",
		ProjectKey:     "acme:app",
		ProjectName:    "App",
		ProjectVersion: "1.2",
		Sources:        "src",
		ProjectBaseDir: "/work",
	}
}

func TestParametersArgs(t *testing.T) {
	want := []string{
		"-Dsonar.host.url=https://sonar.example.com",
		"-Dsonar.login=squ_token",
		"-Dsonar.projectKey=acme:app",
		"-Dsonar.projectName=App",
		"-Dsonar.projectVersion=1.2",
		"-Dsonar.sources=src",
		"-Dsonar.projectBaseDir=/work",
	}
	if diff := cmp.Diff(want, testParameters().Args()); diff != "" {
		t.Errorf("Args() mismatch (-want +got):\n%s", diff)
	}
}

func TestParametersArgsWithSettingsAndPullRequest(t *testing.T) {
	p := testParameters()
	p.SettingsFile = "sonar-project.properties"
	p.PullRequest = true

	args := p.Args()
	tail := args[len(args)-3:]
	want := []string{
		"-Dproject.settings=sonar-project.properties",
		"-Dsonar.analysis.mode=issues",
		"-Dsonar.report.export.path=sonar-report.json",
	}
	if diff := cmp.Diff(want, tail); diff != "" {
		t.Errorf("Args() tail mismatch (-want +got):\n%s", diff)
	}
}

func TestParametersValidate(t *testing.T) {
	if err := testParameters().Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	p := testParameters()
	p.ProjectKey = ""
	var missing *MissingPropertyError
	if err := p.Validate(); !errors.As(err, &missing) || missing.Property != "sonar.projectKey" {
		t.Errorf("Validate() error = %v, want missing sonar.projectKey", err)
	}
}

func TestIsPullRequest(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		branch   string
		want     bool
	}{
		{"no provider", "", "refs/pull/1/merge", false},
		{"other provider", "something", "refs/pull/1/merge", false},
		{"no branch", "tfsgit", "", false},
		{"regular branch", "tfsgit", "something", false},
		{"pull request", "tfsgit", "refs/pull/", true},
		{"provider case", "TfsGit", "refs/pull/7/merge", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := BuildContext{RepositoryProvider: tt.provider, SourceBranch: tt.branch}
			if got := b.IsPullRequest(); got != tt.want {
				t.Errorf("IsPullRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFeatureEnabled(t *testing.T) {
	b := BuildContext{Features: map[string]string{"foo": "true", "bar": "false", "baz": "maybe"}}

	tests := []struct {
		name string
		def  bool
		want bool
	}{
		{"foo", false, true},
		{"bar", true, false},
		{"FOO", false, true},
		{"missing", true, true},
		{"missing", false, false},
		{"baz", true, true},
	}

	for _, tt := range tests {
		if got := b.IsFeatureEnabled(tt.name, tt.def); got != tt.want {
			t.Errorf("IsFeatureEnabled(%q, %v) = %v, want %v", tt.name, tt.def, got, tt.want)
		}
	}
}

func TestShouldSkip(t *testing.T) {
	pr := BuildContext{RepositoryProvider: "tfsgit", SourceBranch: "refs/pull/3/merge"}

	tests := []struct {
		name     string
		ctx      BuildContext
		features map[string]string
		want     bool
	}{
		{"not a pull request", BuildContext{RepositoryProvider: "tfsgit", SourceBranch: "refs/heads/main"}, nil, false},
		{"bot not defined", pr, nil, false},
		{"bot enabled", pr, map[string]string{FeaturePullRequestBot: "true"}, false},
		{"bot disabled", pr, map[string]string{FeaturePullRequestBot: "false"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.ctx
			b.Features = tt.features
			if got := b.ShouldSkip(); got != tt.want {
				t.Errorf("ShouldSkip() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunnerMissingTool(t *testing.T) {
	r := NewRunner(filepath.Join(t.TempDir(), "sonar-scanner"), "", logger.Discard())
	if err := r.Run(context.Background(), nil); err == nil {
		t.Error("Run() should fail when the tool is missing")
	}
}

func TestRunnerRunsTool(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script tool")
	}

	dir := t.TempDir()
	tool := filepath.Join(dir, "sonar-scanner")
	script := "#!/bin/sh\necho \"args: $@\"\nif [ \"$1\" = \"fail\" ]; then echo boom >&2; exit 3; fi\n"
	if err := os.WriteFile(tool, []byte(script), 0755); err != nil { //nolint:gosec // Test script
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	r := NewRunner(tool, dir, logger.Discard())
	r.SetOutput(&stdout, &stderr)

	if err := r.Run(context.Background(), []string{"-Dsonar.sources=src"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "args: -Dsonar.sources=src") {
		t.Errorf("stdout = %q", stdout.String())
	}

	err := r.Run(context.Background(), []string{"fail"})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Run(fail) error = %v, want stderr in message", err)
	}
}

func TestTailWriterKeepsEnd(t *testing.T) {
	var buf bytes.Buffer
	w := &tailWriter{buf: &buf, max: 4}
	_, _ = w.Write([]byte("abcdef"))
	_, _ = w.Write([]byte("gh"))
	if buf.String() != "efgh" {
		t.Errorf("tail = %q, want efgh", buf.String())
	}
}

func TestRunnerMissingToolOnPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	r := NewRunner("sonar-scanner", "", logger.Discard())
	if err := r.Run(context.Background(), nil); err == nil {
		t.Error("Run() should fail when the tool is not on PATH")
	}
}
