// Package analyzer provisions Roslyn analyzers for one language: it writes
// the ruleset and SonarLint.xml files the analysis engine reads and fetches
// the analyzer assemblies through an injected installer.
//
// Each call handles one language synchronously. Calls for different
// languages touch disjoint files and may run concurrently.
package analyzer

import (
	"context"
	"fmt"
)

// File name formats for generated artifacts.
const (
	rulesetFileFormat  = "SonarQubeRoslyn-%s.ruleset"
	roslynFormatName   = "roslyn-%s"
	AdditionalFileName = "SonarLint.xml"
)

// Settings exposes where generated configuration goes.
type Settings interface {
	ConfigDirectory() string
}

// Installer fetches analyzer assemblies for plugins and returns their local
// paths. It is the only collaborator that may block on network or disk.
type Installer interface {
	InstallAssemblies(ctx context.Context, plugins []Plugin) ([]string, error)
}

// AnalyzerSettings describes everything produced for one language.
type AnalyzerSettings struct {
	Language           string   `json:"language" yaml:"language"`
	RuleSetPath        string   `json:"ruleset_path" yaml:"ruleset_path"`
	AnalyzerAssemblies []string `json:"analyzer_assemblies" yaml:"analyzer_assemblies"`
	AdditionalFiles    []string `json:"additional_files" yaml:"additional_files"`
}

// RulesetFileName returns the ruleset file name for a language.
func RulesetFileName(language string) string {
	return fmt.Sprintf(rulesetFileFormat, language)
}

// RoslynFormatName returns the report format name for a language, e.g. "roslyn-cs".
func RoslynFormatName(language string) string {
	return fmt.Sprintf(roslynFormatName, language)
}
