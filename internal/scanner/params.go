// Package scanner drives the bundled SonarQube Scanner CLI from a build task.
package scanner

// Parameters are the analysis properties passed to the scanner.
type Parameters struct {
	HostURL        string
	Token          string
	ProjectKey     string
	ProjectName    string
	ProjectVersion string
	Sources        string
	ProjectBaseDir string
	SettingsFile   string
	PullRequest    bool
}

// Report file written by issues-mode analyses.
const issuesReportPath = "sonar-report.json"

// Args returns the -D arguments for the scanner. Connection, project and
// sources properties always come first and override whatever the user set
// elsewhere.
func (p Parameters) Args() []string {
	args := []string{
		define("sonar.host.url", p.HostURL),
		define("sonar.login", p.Token),
		define("sonar.projectKey", p.ProjectKey),
		define("sonar.projectName", p.ProjectName),
		define("sonar.projectVersion", p.ProjectVersion),
		define("sonar.sources", p.Sources),
		define("sonar.projectBaseDir", p.ProjectBaseDir),
	}

	if p.SettingsFile != "" {
		args = append(args, define("project.settings", p.SettingsFile))
	}

	if p.PullRequest {
		args = append(args,
			define("sonar.analysis.mode", "issues"),
			define("sonar.report.export.path", issuesReportPath),
		)
	}

	return args
}

// Validate reports the first missing required property.
func (p Parameters) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"sonar.host.url", p.HostURL},
		{"sonar.projectKey", p.ProjectKey},
		{"sonar.projectName", p.ProjectName},
		{"sonar.projectVersion", p.ProjectVersion},
		{"sonar.sources", p.Sources},
	}
	for _, r := range required {
		if r.value == "" {
			return &MissingPropertyError{Property: r.name}
		}
	}
	return nil
}

// MissingPropertyError reports a required scanner property without value.
type MissingPropertyError struct {
	Property string
}

func (e *MissingPropertyError) Error() string {
	return "scanner property " + e.Property + " is required"
}

func define(key, value string) string {
	return "-D" + key + "=" + value
}
