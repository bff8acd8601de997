package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"

	"github.com/JNZader/sonarprep/internal/analyzer"
	"github.com/JNZader/sonarprep/internal/logger"
)

var testPlugin = analyzer.Plugin{Key: "csharp", Version: "1.0", StaticResourceName: "res.jar"}

func stageArchive(t *testing.T, sourceDir string, p analyzer.Plugin, entries map[string]string) {
	t.Helper()
	dir := filepath.Join(sourceDir, p.Key, p.Version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	f, err := os.Create(filepath.Join(dir, p.StaticResourceName))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func newTestInstaller(t *testing.T, ttl time.Duration) (*Local, string, string) {
	t.Helper()
	source := t.TempDir()
	cache := filepath.Join(t.TempDir(), "cache")
	l, err := NewLocal(source, cache, ttl, logger.Discard())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l, source, cache
}

func TestInstallUnpacksAndCaches(t *testing.T) {
	l, source, cache := newTestInstaller(t, 0)
	stageArchive(t, source, testPlugin, map[string]string{
		"static/SonarAnalyzer.CSharp.dll": "analyzer",
		"static/Google.Protobuf.dll":      "protobuf",
		"static/README.txt":               "docs",
	})

	paths, err := l.InstallAssemblies(context.Background(), []analyzer.Plugin{testPlugin})
	if err != nil {
		t.Fatalf("InstallAssemblies() error = %v", err)
	}

	base := filepath.Join(cache, "plugins", "csharp", "1.0", "res.jar", "static")
	want := []string{
		filepath.Join(base, "Google.Protobuf.dll"),
		filepath.Join(base, "SonarAnalyzer.CSharp.dll"),
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("assembly not unpacked: %v", err)
		}
	}

	again, err := l.InstallAssemblies(context.Background(), []analyzer.Plugin{testPlugin})
	if err != nil {
		t.Fatalf("second InstallAssemblies() error = %v", err)
	}
	if diff := cmp.Diff(want, again); diff != "" {
		t.Errorf("cached paths mismatch (-want +got):\n%s", diff)
	}
	if s := l.Stats(); s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 hit 1 miss", s)
	}
}

func TestInstallExpiredEntryIsUnpackedAgain(t *testing.T) {
	l, source, _ := newTestInstaller(t, time.Millisecond)
	stageArchive(t, source, testPlugin, map[string]string{"a.dll": "a"})

	if _, err := l.InstallAssemblies(context.Background(), []analyzer.Plugin{testPlugin}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := l.InstallAssemblies(context.Background(), []analyzer.Plugin{testPlugin}); err != nil {
		t.Fatal(err)
	}

	if s := l.Stats(); s.Misses != 2 {
		t.Errorf("Misses = %d, want 2", s.Misses)
	}
}

func TestInstallMissingArchive(t *testing.T) {
	l, _, _ := newTestInstaller(t, 0)

	if _, err := l.InstallAssemblies(context.Background(), []analyzer.Plugin{testPlugin}); err == nil {
		t.Error("InstallAssemblies() should fail when the archive is not staged")
	}
}

func TestInstallRejectsEscapingEntries(t *testing.T) {
	l, source, cache := newTestInstaller(t, 0)
	stageArchive(t, source, testPlugin, map[string]string{"../../evil.dll": "x"})

	_, err := l.InstallAssemblies(context.Background(), []analyzer.Plugin{testPlugin})
	if !errors.Is(err, ErrUnsafePath) {
		t.Errorf("error = %v, want ErrUnsafePath", err)
	}
	if _, err := os.Stat(filepath.Join(cache, "evil.dll")); !os.IsNotExist(err) {
		t.Error("escaping entry was written")
	}
}

func TestInstallRejectsUnsafeCoordinates(t *testing.T) {
	l, _, _ := newTestInstaller(t, 0)

	bad := analyzer.Plugin{Key: "../etc", Version: "1.0", StaticResourceName: "x.zip"}
	_, err := l.InstallAssemblies(context.Background(), []analyzer.Plugin{bad})
	if !errors.Is(err, ErrUnsafePath) {
		t.Errorf("error = %v, want ErrUnsafePath", err)
	}
}

func TestInstallStopsOnCancelledContext(t *testing.T) {
	l, source, _ := newTestInstaller(t, 0)
	stageArchive(t, source, testPlugin, map[string]string{"a.dll": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := l.InstallAssemblies(ctx, []analyzer.Plugin{testPlugin}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestCacheSurvivesReopen(t *testing.T) {
	source := t.TempDir()
	cache := filepath.Join(t.TempDir(), "cache")
	stageArchive(t, source, testPlugin, map[string]string{"a.dll": "a"})

	first, err := NewLocal(source, cache, 0, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.InstallAssemblies(context.Background(), []analyzer.Plugin{testPlugin}); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := NewLocal(source, cache, 0, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	if _, err := second.InstallAssemblies(context.Background(), []analyzer.Plugin{testPlugin}); err != nil {
		t.Fatal(err)
	}
	if s := second.Stats(); s.Hits != 1 || s.Misses != 0 {
		t.Errorf("Stats() = %+v, want a hit from the persisted index", s)
	}
}

func TestCached(t *testing.T) {
	l, source, _ := newTestInstaller(t, time.Hour)
	other := analyzer.Plugin{Key: "vbnet", Version: "2.0", StaticResourceName: "vb.zip"}
	stageArchive(t, source, other, map[string]string{"b.dll": "bb", "c.dll": "ccc"})
	stageArchive(t, source, testPlugin, map[string]string{"a.dll": "a"})

	if _, err := l.InstallAssemblies(context.Background(), []analyzer.Plugin{other, testPlugin}); err != nil {
		t.Fatal(err)
	}

	cached, err := l.Cached()
	if err != nil {
		t.Fatalf("Cached() error = %v", err)
	}
	if len(cached) != 2 {
		t.Fatalf("Cached() returned %d plugins, want 2", len(cached))
	}
	if cached[0].Plugin != testPlugin || cached[1].Plugin != other {
		t.Errorf("Cached() order = %v, %v", cached[0].Plugin, cached[1].Plugin)
	}
	if cached[1].Assemblies != 2 || cached[1].Size != 5 {
		t.Errorf("vbnet entry = %+v", cached[1])
	}
	if cached[0].ExpiresAt.IsZero() {
		t.Error("entries installed with a ttl should carry an expiry")
	}
}

func TestInstallUnpacksAgainWhenAssembliesAreGone(t *testing.T) {
	l, source, cache := newTestInstaller(t, 0)
	stageArchive(t, source, testPlugin, map[string]string{"a.dll": "a"})

	if _, err := l.InstallAssemblies(context.Background(), []analyzer.Plugin{testPlugin}); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(filepath.Join(cache, "plugins")); err != nil {
		t.Fatal(err)
	}

	paths, err := l.InstallAssemblies(context.Background(), []analyzer.Plugin{testPlugin})
	if err != nil {
		t.Fatalf("InstallAssemblies() error = %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("paths = %v, want one assembly", paths)
	}
	if _, err := os.Stat(paths[0]); err != nil {
		t.Errorf("assembly not restored: %v", err)
	}
	if s := l.Stats(); s.Hits != 0 || s.Misses != 2 {
		t.Errorf("Stats() = %+v, want 2 misses", s)
	}
}

func TestInstallSameVersionDifferentResources(t *testing.T) {
	l, source, _ := newTestInstaller(t, 0)
	first := analyzer.Plugin{Key: "csharp", Version: "1.0", StaticResourceName: "a.jar"}
	second := analyzer.Plugin{Key: "csharp", Version: "1.0", StaticResourceName: "b.jar"}
	stageArchive(t, source, first, map[string]string{"a.dll": "a"})
	stageArchive(t, source, second, map[string]string{"b.dll": "b"})

	for round := 0; round < 2; round++ {
		paths, err := l.InstallAssemblies(context.Background(), []analyzer.Plugin{first, second})
		if err != nil {
			t.Fatalf("InstallAssemblies() error = %v", err)
		}
		if len(paths) != 2 {
			t.Fatalf("paths = %v, want two assemblies", paths)
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err != nil {
				t.Errorf("round %d: %v", round, err)
			}
		}
	}

	if s := l.Stats(); s.Hits != 2 || s.Misses != 2 {
		t.Errorf("Stats() = %+v, want 2 hits 2 misses", s)
	}

	cached, err := l.Cached()
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 2 || cached[0].Plugin != first || cached[1].Plugin != second {
		t.Errorf("Cached() = %+v", cached)
	}
}
