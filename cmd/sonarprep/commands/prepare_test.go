package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"

	"github.com/JNZader/sonarprep/internal/analyzer"
	"github.com/JNZader/sonarprep/internal/config"
	"github.com/JNZader/sonarprep/internal/installer"
	"github.com/JNZader/sonarprep/internal/logger"
	"github.com/JNZader/sonarprep/internal/metrics"
	"github.com/JNZader/sonarprep/internal/rules"
)

type recordingInstaller struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (r *recordingInstaller) InstallAssemblies(_ context.Context, plugins []analyzer.Plugin) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	var paths []string
	for _, p := range plugins {
		r.calls[p.Key]++
		paths = append(paths, "/plugins/"+p.Key+".dll")
	}
	return paths, r.err
}

func testProfile() *rules.Profile {
	return &rules.Profile{
		ServerSettings: map[string]string{
			"sonaranalyzer-cs.pluginKey":          "csharp",
			"sonaranalyzer-cs.pluginVersion":      "1.0",
			"sonaranalyzer-cs.staticResourceName": "analyzer.zip",
		},
		Languages: map[string]rules.LanguageRules{
			"cs": {
				ActiveRules:   []rules.ActiveRule{rules.NewActiveRule("csharpsquid", "S100", nil)},
				InactiveRules: []string{"S101"},
			},
			"vbnet": {
				ActiveRules: []rules.ActiveRule{rules.NewActiveRule("vbnet", "S200", nil)},
			},
		},
	}
}

func testConfig(t *testing.T, languages ...string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ConfigDir = filepath.Join(t.TempDir(), "conf")
	cfg.Languages = languages
	cfg.Workers = 2
	return cfg
}

func TestRunSetup(t *testing.T) {
	cfg := testConfig(t, "cs", "vbnet", "fs", "cs")
	inst := &recordingInstaller{}
	collector := metrics.NewCollector()

	summary, err := runSetup(context.Background(), cfg, testProfile(), inst, collector, logger.Discard(), "run-1")
	if err != nil {
		t.Fatalf("runSetup() error = %v", err)
	}

	if summary.RunID != "run-1" {
		t.Errorf("RunID = %q", summary.RunID)
	}

	var langs []string
	for _, l := range summary.Languages {
		langs = append(langs, l.Language)
	}
	if diff := cmp.Diff([]string{"cs", "vbnet", "fs"}, langs); diff != "" {
		t.Fatalf("languages mismatch (-want +got):\n%s", diff)
	}

	cs := summary.Languages[0]
	if cs.Settings == nil {
		t.Fatal("cs should be configured")
	}
	want := &analyzer.AnalyzerSettings{
		Language:           "cs",
		RuleSetPath:        filepath.Join(cfg.ConfigDir, "SonarQubeRoslyn-cs.ruleset"),
		AnalyzerAssemblies: []string{"/plugins/csharp.dll"},
		AdditionalFiles:    []string{filepath.Join(cfg.ConfigDir, "cs", "SonarLint.xml")},
	}
	if diff := cmp.Diff(want, cs.Settings); diff != "" {
		t.Errorf("cs settings mismatch (-want +got):\n%s", diff)
	}

	vb := summary.Languages[1]
	if vb.Settings == nil || len(vb.Settings.AnalyzerAssemblies) != 0 {
		t.Errorf("vbnet should be configured without assemblies, got %+v", vb.Settings)
	}

	if fs := summary.Languages[2]; !fs.Skipped || fs.Settings != nil {
		t.Errorf("fs should be skipped, got %+v", fs)
	}

	if inst.calls["csharp"] != 1 || len(inst.calls) != 1 {
		t.Errorf("installer calls = %v", inst.calls)
	}

	if got := collector.Counter(metrics.MetricLanguagesConfigured).Value(); got != 2 {
		t.Errorf("configured counter = %d, want 2", got)
	}
	if got := collector.Counter(metrics.MetricLanguagesSkipped).Value(); got != 1 {
		t.Errorf("skipped counter = %d, want 1", got)
	}
}

func TestRunSetupReportsFailures(t *testing.T) {
	cfg := testConfig(t, "cs")
	inst := &recordingInstaller{err: errors.New("download failed")}

	summary, err := runSetup(context.Background(), cfg, testProfile(), inst, metrics.NewCollector(), logger.Discard(), "run")
	if err != nil {
		t.Fatalf("runSetup() error = %v", err)
	}

	if summary.Failed() != 1 {
		t.Fatalf("Failed() = %d, want 1", summary.Failed())
	}
	if !strings.Contains(summary.Languages[0].Error, "download failed") {
		t.Errorf("Error = %q", summary.Languages[0].Error)
	}
}

func TestRunSetupAllProfileLanguages(t *testing.T) {
	cfg := testConfig(t)

	summary, err := runSetup(context.Background(), cfg, testProfile(), &recordingInstaller{}, metrics.NewCollector(), logger.Discard(), "run")
	if err != nil {
		t.Fatalf("runSetup() error = %v", err)
	}

	if len(summary.Languages) != 2 || summary.Languages[0].Language != "cs" || summary.Languages[1].Language != "vbnet" {
		t.Errorf("languages = %+v", summary.Languages)
	}
}

func TestRunSetupCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runSetup(ctx, testConfig(t, "cs"), testProfile(), &recordingInstaller{}, metrics.NewCollector(), logger.Discard(), "run")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("runSetup() error = %v, want context.Canceled", err)
	}
}

// writePluginArchive stages csharp@1.0/analyzer.zip with one assembly under source.
func writePluginArchive(t *testing.T, source string) {
	t.Helper()
	archiveDir := filepath.Join(source, "csharp", "1.0")
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(filepath.Join(archiveDir, "analyzer.zip"))
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("static/SonarAnalyzer.CSharp.dll")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte("dll"))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
}

func TestRunSetupWithLocalInstaller(t *testing.T) {
	source := t.TempDir()
	writePluginArchive(t, source)

	local, err := installer.NewLocal(source, filepath.Join(t.TempDir(), "cache"), 0, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer local.Close()

	summary, err := runSetup(context.Background(), testConfig(t, "cs"), testProfile(), local, metrics.NewCollector(), logger.Discard(), "run")
	if err != nil {
		t.Fatalf("runSetup() error = %v", err)
	}

	settings := summary.Languages[0].Settings
	if settings == nil || len(settings.AnalyzerAssemblies) != 1 {
		t.Fatalf("settings = %+v", settings)
	}
	if filepath.Base(settings.AnalyzerAssemblies[0]) != "SonarAnalyzer.CSharp.dll" {
		t.Errorf("assembly = %s", settings.AnalyzerAssemblies[0])
	}
	if _, err := os.Stat(settings.RuleSetPath); err != nil {
		t.Errorf("ruleset not written: %v", err)
	}
}

func TestWriteMetrics(t *testing.T) {
	collector := metrics.NewCollector()
	collector.Counter(metrics.MetricLanguagesConfigured).Add(2)

	dir := t.TempDir()
	tests := []struct {
		file string
		want string
	}{
		{"metrics.prom", "sonarprep_languages_configured_total 2\n"},
		{"metrics.json", `"sonarprep_languages_configured_total": 2`},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := writeMetrics(collector, path); err != nil {
				t.Fatalf("writeMetrics() error = %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("%s missing %q:\n%s", tt.file, tt.want, data)
			}
		})
	}
}
