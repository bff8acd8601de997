package rules

// FilterByRepository returns the active rules that belong to repoKey.
func FilterByRepository(active []ActiveRule, repoKey string) []ActiveRule {
	var filtered []ActiveRule
	for _, r := range active {
		if r.RepoKey == repoKey {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Languages returns the languages a profile has rules for, in the order of
// the requested list. Unknown languages are dropped.
func Languages(p *Profile, requested []string) []string {
	var langs []string
	for _, lang := range requested {
		if _, ok := p.Languages[lang]; ok {
			langs = append(langs, lang)
		}
	}
	return langs
}
