// Package installer unpacks Roslyn analyzer plugins into a local cache.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"

	"github.com/JNZader/sonarprep/internal/analyzer"
	"github.com/JNZader/sonarprep/internal/logger"
)

const (
	pluginsDir = "plugins"
	indexDir   = "index"
)

// ErrUnsafePath is returned for plugin coordinates or archive entries that
// would escape the cache directory.
var ErrUnsafePath = errors.New("unsafe path")

// Local installs plugins from a staging directory laid out as
// <source>/<pluginKey>/<pluginVersion>/<staticResourceName>. Archives are
// unpacked once into <cache>/plugins/<pluginKey>/<pluginVersion>/<staticResourceName>
// and recorded in an index under <cache>/index.
type Local struct {
	sourceDir string
	cacheDir  string
	ttl       time.Duration
	log       *logger.Logger
	index     *index

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	hits   int64
	misses int64
}

type manifest struct {
	Plugin     analyzer.Plugin `json:"plugin"`
	Assemblies []string        `json:"assemblies"`
	Size       uint64          `json:"size"`
	ExpiresAt  time.Time       `json:"expires_at,omitempty"`
}

// Stats reports cache usage.
type Stats struct {
	Hits   int64
	Misses int64
}

// CachedPlugin describes an unpacked plugin.
type CachedPlugin struct {
	Plugin     analyzer.Plugin `json:"plugin"`
	Assemblies int             `json:"assemblies"`
	Size       uint64          `json:"size"`
	ExpiresAt  time.Time       `json:"expires_at,omitempty"`
}

// NewLocal creates a Local installer. A zero ttl keeps unpacked plugins
// forever. Close releases the cache index.
func NewLocal(sourceDir, cacheDir string, ttl time.Duration, log *logger.Logger) (*Local, error) {
	if err := os.MkdirAll(filepath.Join(cacheDir, pluginsDir), 0755); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Default()
	}

	ix, err := openIndex(filepath.Join(cacheDir, indexDir))
	if err != nil {
		return nil, err
	}

	return &Local{
		sourceDir: sourceDir,
		cacheDir:  cacheDir,
		ttl:       ttl,
		log:       log.WithPrefix("installer"),
		index:     ix,
		locks:     make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the cache index.
func (l *Local) Close() error {
	return l.index.close()
}

// Cached lists the plugins recorded in the cache, sorted by key, version and
// resource.
func (l *Local) Cached() ([]CachedPlugin, error) {
	manifests, err := l.index.entries()
	if err != nil {
		return nil, fmt.Errorf("listing plugin cache: %w", err)
	}

	cached := make([]CachedPlugin, 0, len(manifests))
	for _, m := range manifests {
		cached = append(cached, CachedPlugin{
			Plugin:     m.Plugin,
			Assemblies: len(m.Assemblies),
			Size:       m.Size,
			ExpiresAt:  m.ExpiresAt,
		})
	}
	sort.Slice(cached, func(i, j int) bool {
		a, b := cached[i].Plugin, cached[j].Plugin
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		return a.StaticResourceName < b.StaticResourceName
	})
	return cached, nil
}

// InstallAssemblies unpacks every plugin not yet cached and returns the
// paths of all their .dll files, plugin by plugin.
func (l *Local) InstallAssemblies(ctx context.Context, plugins []analyzer.Plugin) ([]string, error) {
	var paths []string
	for _, p := range plugins {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := l.install(p)
		if err != nil {
			return nil, fmt.Errorf("installing plugin %s: %w", p, err)
		}
		paths = append(paths, got...)
	}
	return paths, nil
}

// Stats returns hit and miss counters.
func (l *Local) Stats() Stats {
	return Stats{
		Hits:   atomic.LoadInt64(&l.hits),
		Misses: atomic.LoadInt64(&l.misses),
	}
}

func (l *Local) install(p analyzer.Plugin) ([]string, error) {
	for _, elem := range []string{p.Key, p.Version, p.StaticResourceName} {
		if !safeElem(elem) {
			return nil, fmt.Errorf("%w: %q", ErrUnsafePath, elem)
		}
	}

	lock := l.lockFor(p)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Join(l.cacheDir, pluginsDir, p.Key, p.Version, p.StaticResourceName)
	m, ok, err := l.index.get(p)
	if err != nil {
		return nil, err
	}
	if ok {
		paths := absolute(dir, m.Assemblies)
		missing := firstMissing(paths)
		if missing == "" {
			atomic.AddInt64(&l.hits, 1)
			l.log.Debug("Using cached plugin %s", p)
			return paths, nil
		}
		l.log.Debug("Cached plugin %s lost %s, unpacking again", p, missing)
	}
	atomic.AddInt64(&l.misses, 1)

	if err := l.index.remove(p); err != nil {
		return nil, err
	}

	archive := filepath.Join(l.sourceDir, p.Key, p.Version, p.StaticResourceName)
	if err := os.RemoveAll(dir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	assemblies, size, err := unpack(archive, dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	m = manifest{Plugin: p, Assemblies: assemblies, Size: size}
	if l.ttl > 0 {
		m.ExpiresAt = time.Now().Add(l.ttl)
	}
	if err := l.index.put(m); err != nil {
		return nil, fmt.Errorf("recording plugin: %w", err)
	}

	l.log.Info("Unpacked plugin %s: %d assemblies, %s", p, len(assemblies), humanize.Bytes(size))
	return absolute(dir, assemblies), nil
}

func (l *Local) lockFor(p analyzer.Plugin) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := p.Key + "/" + p.Version + "/" + p.StaticResourceName
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	return lock
}

// unpack extracts archive into dir and returns the .dll entries relative to
// dir, sorted, with the total unpacked size.
func unpack(archive, dir string) ([]string, uint64, error) {
	// The reader may come back together with an insecure-path error; entry
	// names are checked below either way.
	r, err := zip.OpenReader(archive)
	if r == nil {
		return nil, 0, fmt.Errorf("opening %s: %w", archive, err)
	}
	defer r.Close()

	var assemblies []string
	var size uint64
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		rel := filepath.FromSlash(f.Name)
		target := filepath.Join(dir, rel)
		if !within(dir, target) {
			return nil, 0, fmt.Errorf("%w: archive entry %q", ErrUnsafePath, f.Name)
		}

		n, err := extract(f, target)
		if err != nil {
			return nil, 0, fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		size += uint64(n)

		if strings.EqualFold(filepath.Ext(rel), ".dll") {
			assemblies = append(assemblies, filepath.Clean(rel))
		}
	}

	sort.Strings(assemblies)
	return assemblies, size, nil
}

func extract(f *zip.File, target string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, err
	}

	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644) //nolint:gosec // Checked by within
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, rc) //nolint:gosec // Archives come from the SonarQube server
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func within(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func safeElem(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// firstMissing returns the first path that no longer exists, or "".
func firstMissing(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return p
		}
	}
	return ""
}

func absolute(dir string, rel []string) []string {
	paths := make([]string, len(rel))
	for i, r := range rel {
		paths[i] = filepath.Join(dir, r)
	}
	return paths
}
