package analyzer

import (
	"context"
	"path/filepath"
	"reflect"

	"github.com/JNZader/sonarprep/internal/logger"
	"github.com/JNZader/sonarprep/internal/rules"
)

// Provider sets up the Roslyn analyzer configuration of a language.
type Provider struct {
	installer Installer
	log       *logger.Logger
}

// NewProvider creates a Provider. Both collaborators are required.
func NewProvider(installer Installer, log *logger.Logger) (*Provider, error) {
	if installer == nil {
		return nil, &ArgumentError{Argument: "installer"}
	}
	if log == nil {
		return nil, &ArgumentError{Argument: "logger"}
	}
	return &Provider{installer: installer, log: log}, nil
}

// SetupAnalyzer generates the ruleset and additional file of a language and
// installs its analyzer assemblies. ok is false when there is nothing to
// configure: no active rules, or a ruleset without entries. In both cases no
// file is written and the installer is not called.
func (p *Provider) SetupAnalyzer(ctx context.Context, settings Settings, serverSettings map[string]string,
	active []rules.ActiveRule, inactive []string, language string) (*AnalyzerSettings, bool, error) {
	switch {
	case isNil(settings):
		return nil, false, &ArgumentError{Argument: "settings"}
	case language == "":
		return nil, false, &ArgumentError{Argument: "language"}
	case serverSettings == nil:
		return nil, false, &ArgumentError{Argument: "serverSettings"}
	case inactive == nil:
		return nil, false, &ArgumentError{Argument: "inactiveRules"}
	case active == nil:
		return nil, false, &ArgumentError{Argument: "activeRules"}
	}

	if len(active) == 0 {
		return nil, false, nil
	}

	log := p.log.WithField("language", language)
	result, ok, err := p.configure(ctx, log, settings.ConfigDirectory(), serverSettings, active, inactive, language)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		log.Info("No Roslyn analyzer plugin is installed for language %s", language)
	}
	return result, ok, nil
}

// configure runs the generation steps. An empty ruleset stops everything,
// including the additional file and assemblies.
func (p *Provider) configure(ctx context.Context, log *logger.Logger, configDir string, serverSettings map[string]string,
	active []rules.ActiveRule, inactive []string, language string) (*AnalyzerSettings, bool, error) {
	ruleSet := rules.NewGenerator(serverSettings, log).Generate(active, inactive, language)
	if ruleSet.IsEmpty() {
		log.Debug("The quality profile does not produce any Roslyn rule")
		return nil, false, nil
	}

	rulesetPath := filepath.Join(configDir, RulesetFileName(language))
	log.Debug("Writing ruleset to %s", rulesetPath)
	if err := ruleSet.Save(rulesetPath); err != nil {
		return nil, false, err
	}

	additionalFiles := []string{}
	path, ok, err := NewAdditionalFileWriter(log).Write(language, active, serverSettings, configDir)
	if err != nil {
		return nil, false, err
	}
	if ok {
		additionalFiles = append(additionalFiles, path)
	}

	assemblies, ok, err := NewResolver(serverSettings, p.installer, log).ResolveAndFetch(ctx, active, language)
	if err != nil {
		return nil, false, err
	}
	if !ok || assemblies == nil {
		assemblies = []string{}
	}

	return &AnalyzerSettings{
		Language:           language,
		RuleSetPath:        rulesetPath,
		AnalyzerAssemblies: assemblies,
		AdditionalFiles:    additionalFiles,
	}, true, nil
}

// isNil also catches a nil pointer stored in the interface.
func isNil(settings Settings) bool {
	if settings == nil {
		return true
	}
	v := reflect.ValueOf(settings)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
