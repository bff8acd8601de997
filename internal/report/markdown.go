package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// MarkdownReporter generates Markdown reports.
type MarkdownReporter struct{}

func (r *MarkdownReporter) Format() string { return "markdown" }

func (r *MarkdownReporter) Generate(s *Summary) (string, error) {
	var sb strings.Builder
	_ = r.Write(s, &sb)
	return sb.String(), nil
}

func (r *MarkdownReporter) Write(s *Summary, w io.Writer) error {
	fmt.Fprintf(w, "# Roslyn Analyzer Setup\n\n")

	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "- **Run:** %s\n", s.RunID)
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(w, "- **Started:** %s\n", humanize.Time(s.StartedAt))
	}
	fmt.Fprintf(w, "- **Duration:** %s\n", s.Duration)
	fmt.Fprintf(w, "- **Languages:** %d\n", len(s.Languages))
	fmt.Fprintf(w, "- **Configured:** %d\n", s.Configured())
	fmt.Fprintf(w, "\n")

	if len(s.Languages) == 0 {
		fmt.Fprintf(w, "No languages requested.\n\n")
		return nil
	}

	fmt.Fprintf(w, "## Languages\n\n")
	for _, l := range s.Languages {
		r.writeLanguage(w, l)
	}

	return nil
}

func (r *MarkdownReporter) writeLanguage(w io.Writer, l LanguageResult) {
	fmt.Fprintf(w, "### %s %s\n\n", r.statusIcon(l), l.Language)

	switch {
	case l.Error != "":
		fmt.Fprintf(w, "Error: %s\n\n", l.Error)
		return
	case l.Settings == nil:
		fmt.Fprintf(w, "_No Roslyn analyzer configured_\n\n")
		return
	}

	fmt.Fprintf(w, "**Ruleset:** `%s`\n\n", l.Settings.RuleSetPath)

	writeList(w, "Additional files", l.Settings.AdditionalFiles)
	writeList(w, "Analyzer assemblies", l.Settings.AnalyzerAssemblies)

	fmt.Fprintf(w, "---\n\n")
}

func (r *MarkdownReporter) statusIcon(l LanguageResult) string {
	switch {
	case l.Error != "":
		return "[ERROR]"
	case l.Settings == nil:
		return "[SKIPPED]"
	default:
		return "[OK]"
	}
}

func writeList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(w, "**%s:** none\n\n", title)
		return
	}
	fmt.Fprintf(w, "**%s:**\n\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "- `%s`\n", item)
	}
	fmt.Fprintf(w, "\n")
}
