package rules

import (
	"sort"

	"github.com/JNZader/sonarprep/internal/logger"
)

// Ruleset document attributes.
const (
	RuleSetName         = "Rules for SonarQube"
	RuleSetDescription  = "This rule set was automatically generated from SonarQube."
	RuleSetToolsVersion = "14.0"
)

// Property suffixes read when resolving an analyzer for a partial key.
const (
	analyzerIDSuffix    = "analyzerId"
	ruleNamespaceSuffix = "ruleNamespace"
	pluginKeySuffix     = "pluginKey"
)

// Generator builds rulesets from server rules.
type Generator struct {
	settings map[string]string
	log      *logger.Logger
}

// NewGenerator creates a Generator reading analyzer identities from
// serverSettings. A nil log falls back to the default logger.
func NewGenerator(serverSettings map[string]string, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Default()
	}
	return &Generator{settings: serverSettings, log: log}
}

type ruleGroup struct {
	enabled  map[string]bool
	disabled map[string]bool
}

// Generate returns the ruleset for one language. Active rules are grouped by
// partial repository key; inactive keys are disabled under the language's
// primary analyzer. The result may be empty but is never nil.
func (g *Generator) Generate(active []ActiveRule, inactive []string, language string) RuleSet {
	rs := RuleSet{
		Name:         RuleSetName,
		Description:  RuleSetDescription,
		ToolsVersion: RuleSetToolsVersion,
	}

	var order []string
	groups := make(map[string]*ruleGroup)
	group := func(key string) *ruleGroup {
		grp, ok := groups[key]
		if !ok {
			grp = &ruleGroup{enabled: map[string]bool{}, disabled: map[string]bool{}}
			groups[key] = grp
			order = append(order, key)
		}
		return grp
	}

	for _, r := range active {
		key, ok := PartialRepoKey(r.RepoKey, language)
		if !ok {
			g.log.Debug("Ignoring rule %s from repository %s: no Roslyn analyzer", r.RuleKey, r.RepoKey)
			continue
		}
		group(key).enabled[r.RuleKey] = true
	}

	if len(inactive) > 0 {
		primary := group(SonarAnalyzerPartialKey(language))
		for _, key := range inactive {
			if !primary.enabled[key] {
				primary.disabled[key] = true
			}
		}
	}

	for _, key := range order {
		id, ns, ok := g.analyzer(key, language)
		if !ok {
			g.log.Debug("No analyzer declared for repository %s, its rules are left out of the ruleset", key)
			continue
		}
		grp := groups[key]
		entries := make([]RuleEntry, 0, len(grp.enabled)+len(grp.disabled))
		for _, ruleKey := range sortedKeys(grp.enabled) {
			entries = append(entries, RuleEntry{ID: ruleKey, Action: ActionWarning})
		}
		for _, ruleKey := range sortedKeys(grp.disabled) {
			entries = append(entries, RuleEntry{ID: ruleKey, Action: ActionNone})
		}
		if len(entries) == 0 {
			continue
		}
		rs.Groups = append(rs.Groups, RuleGroup{AnalyzerID: id, RuleNamespace: ns, Rules: entries})
	}

	return rs
}

// analyzer resolves the analyzer id and rule namespace of a partial key:
// explicit analyzerId, then the built-in SonarAnalyzer id, then pluginKey.
func (g *Generator) analyzer(partialKey, language string) (string, string, bool) {
	id := g.settings[SettingKey(partialKey, analyzerIDSuffix)]
	if id == "" && partialKey == SonarAnalyzerPartialKey(language) {
		id = defaultAnalyzerID(language)
	}
	if id == "" {
		id = g.settings[SettingKey(partialKey, pluginKeySuffix)]
	}
	if id == "" {
		return "", "", false
	}

	ns := g.settings[SettingKey(partialKey, ruleNamespaceSuffix)]
	if ns == "" {
		ns = id
	}
	return id, ns, true
}

func defaultAnalyzerID(language string) string {
	if language == LanguageCSharp {
		return "SonarAnalyzer.CSharp"
	}
	return "SonarAnalyzer.VisualBasic"
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
