// Package rules holds the quality-profile rules a SonarQube server hands to
// the scanner and turns them into Roslyn ruleset documents.
package rules

import (
	"fmt"
	"strings"
)

// Supported language identifiers.
const (
	LanguageCSharp = "cs"
	LanguageVBNet  = "vbnet"
)

// Repository keys of the primary rule engines.
const (
	RepoCSharpSquid = "csharpsquid"
	RepoVBNet       = "vbnet"
)

// RoslynRepoPrefix marks repositories backed by third-party Roslyn analyzers.
const RoslynRepoPrefix = "roslyn."

// SonarAnalyzerPartialKey returns the partial repository key of the
// SonarAnalyzer plugin for a language, e.g. "sonaranalyzer-cs".
func SonarAnalyzerPartialKey(language string) string {
	return fmt.Sprintf("sonaranalyzer-%s", language)
}

// PartialRepoKey derives the key used to namespace plugin settings from a
// rule's repository key. The second return is false for repositories that
// have no Roslyn analyzer behind them.
func PartialRepoKey(repoKey, language string) (string, bool) {
	if strings.HasPrefix(repoKey, RoslynRepoPrefix) {
		return strings.TrimPrefix(repoKey, RoslynRepoPrefix), true
	}
	if repoKey == RepoCSharpSquid || repoKey == RepoVBNet {
		return SonarAnalyzerPartialKey(language), true
	}
	return "", false
}

// PartialRepoKeys returns the distinct partial repository keys referenced by
// the active rules, in first-appearance order.
func PartialRepoKeys(active []ActiveRule, language string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, r := range active {
		key, ok := PartialRepoKey(r.RepoKey, language)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// PrimaryRepository returns the rule-engine repository for a language:
// csharpsquid for C#, vbnet for anything else.
func PrimaryRepository(language string) string {
	if language == LanguageCSharp {
		return RepoCSharpSquid
	}
	return RepoVBNet
}

// SettingKey builds a server property name such as
// "sonaranalyzer-cs.pluginKey". It is plain string formatting.
func SettingKey(partialRepoKey, suffix string) string {
	return partialRepoKey + "." + suffix
}
