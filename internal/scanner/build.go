package scanner

import (
	"strconv"
	"strings"
)

const (
	gitProvider       = "tfsgit"
	pullRequestPrefix = "refs/pull/"

	// FeaturePullRequestBot lets analysis run on pull-request builds.
	FeaturePullRequestBot = "SQPullRequestBot"
)

// BuildContext describes the CI build the task runs in. Values are supplied
// by configuration; nothing here reads the CI agent's own variables.
type BuildContext struct {
	RepositoryProvider string
	SourceBranch       string
	Features           map[string]string
}

// IsPullRequest reports a pull-request build on a hosted Git repository.
func (b BuildContext) IsPullRequest() bool {
	if !strings.EqualFold(b.RepositoryProvider, gitProvider) {
		return false
	}
	return strings.HasPrefix(b.SourceBranch, pullRequestPrefix)
}

// IsFeatureEnabled reads a boolean feature flag, falling back to def when
// the flag is unset or not a boolean.
func (b BuildContext) IsFeatureEnabled(name string, def bool) bool {
	raw, ok := b.lookup(name)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

// ShouldSkip reports whether analysis must be skipped: a pull-request
// build with the pull-request bot turned off.
func (b BuildContext) ShouldSkip() bool {
	return b.IsPullRequest() && !b.IsFeatureEnabled(FeaturePullRequestBot, true)
}

// lookup matches feature names case-insensitively; config loaders
// lower-case keys.
func (b BuildContext) lookup(name string) (string, bool) {
	if v, ok := b.Features[name]; ok {
		return v, true
	}
	for k, v := range b.Features {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
