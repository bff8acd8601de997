package rules

// MergeProfiles merges profiles with later ones taking precedence: server
// settings are overridden key by key, a language's rules are replaced as a
// whole.
func MergeProfiles(profiles ...*Profile) *Profile {
	merged := &Profile{
		ServerSettings: make(map[string]string),
		Languages:      make(map[string]LanguageRules),
	}

	for _, p := range profiles {
		if p == nil {
			continue
		}
		for k, v := range p.ServerSettings {
			merged.ServerSettings[k] = v
		}
		for lang, lr := range p.Languages {
			merged.Languages[lang] = lr
		}
	}

	return merged
}
