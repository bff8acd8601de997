package rules

// ActiveRule is a rule the server enabled in the quality profile.
type ActiveRule struct {
	RepoKey    string            `yaml:"repo_key" json:"repo_key"`
	RuleKey    string            `yaml:"rule_key" json:"rule_key"`
	Parameters map[string]string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// NewActiveRule builds an ActiveRule with its own copy of params.
func NewActiveRule(repoKey, ruleKey string, params map[string]string) ActiveRule {
	var p map[string]string
	if len(params) > 0 {
		p = make(map[string]string, len(params))
		for k, v := range params {
			p[k] = v
		}
	}
	return ActiveRule{RepoKey: repoKey, RuleKey: ruleKey, Parameters: p}
}

// LanguageRules is the rule selection of one language.
type LanguageRules struct {
	ActiveRules   []ActiveRule `yaml:"active_rules" json:"active_rules"`
	InactiveRules []string     `yaml:"inactive_rules" json:"inactive_rules"`
}

// Profile is what the server returned for a project: flat server settings
// and the rules of each language.
type Profile struct {
	ServerSettings map[string]string        `yaml:"server_settings" json:"server_settings"`
	Languages      map[string]LanguageRules `yaml:"languages" json:"languages"`
}

// Rules returns the active and inactive rules of a language. Both slices are
// non-nil so they can be fed straight to the analyzer provider.
func (p *Profile) Rules(language string) ([]ActiveRule, []string) {
	lr := p.Languages[language]
	active := lr.ActiveRules
	if active == nil {
		active = []ActiveRule{}
	}
	inactive := lr.InactiveRules
	if inactive == nil {
		inactive = []string{}
	}
	return active, inactive
}

// Settings returns the server settings, never nil.
func (p *Profile) Settings() map[string]string {
	if p.ServerSettings == nil {
		return map[string]string{}
	}
	return p.ServerSettings
}
