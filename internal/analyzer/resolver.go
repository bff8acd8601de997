package analyzer

import (
	"context"

	"github.com/JNZader/sonarprep/internal/logger"
	"github.com/JNZader/sonarprep/internal/rules"
)

// Resolver maps active rules to the plugins that ship their analyzers and
// fetches those plugins' assemblies.
type Resolver struct {
	settings  map[string]string
	installer Installer
	log       *logger.Logger
}

// NewResolver creates a Resolver over the given server settings.
func NewResolver(serverSettings map[string]string, installer Installer, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Default()
	}
	return &Resolver{settings: serverSettings, installer: installer, log: log}
}

// ResolvePlugins returns one plugin per partial repository key whose plugin
// properties are all declared, in first-appearance order. Keys with missing
// properties are logged and skipped.
func (r *Resolver) ResolvePlugins(active []rules.ActiveRule, language string) []Plugin {
	var plugins []Plugin
	for _, key := range rules.PartialRepoKeys(active, language) {
		p, ok := pluginFor(r.settings, key)
		if !ok {
			r.log.Info("No analyzer assemblies declared for repository %s (language %s)", key, language)
			continue
		}
		plugins = append(plugins, p)
	}
	return plugins
}

// ResolveAndFetch resolves plugins and installs their assemblies with a
// single installer call. ok is false when no plugin resolved, in which case
// the installer is not called. Installer errors are returned as is.
func (r *Resolver) ResolveAndFetch(ctx context.Context, active []rules.ActiveRule, language string) ([]string, bool, error) {
	plugins := r.ResolvePlugins(active, language)
	if len(plugins) == 0 {
		r.log.Info("No analyzer plugins to install for language %s", language)
		return nil, false, nil
	}

	r.log.Info("Provisioning analyzer assemblies for language %s", language)
	paths, err := r.installer.InstallAssemblies(ctx, plugins)
	if err != nil {
		return nil, false, err
	}
	return paths, true, nil
}
