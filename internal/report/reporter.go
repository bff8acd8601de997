// Package report renders the outcome of a provisioning run.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/JNZader/sonarprep/internal/analyzer"
)

// Summary is the outcome of one provisioning run across languages.
type Summary struct {
	RunID     string           `json:"run_id" yaml:"run_id"`
	StartedAt time.Time        `json:"started_at" yaml:"started_at"`
	Duration  string           `json:"duration" yaml:"duration"`
	Languages []LanguageResult `json:"languages" yaml:"languages"`
}

// LanguageResult is the outcome for a single language. Settings is nil when
// the language was skipped or failed.
type LanguageResult struct {
	Language string                    `json:"language" yaml:"language"`
	Skipped  bool                      `json:"skipped" yaml:"skipped"`
	Error    string                    `json:"error,omitempty" yaml:"error,omitempty"`
	Settings *analyzer.AnalyzerSettings `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// Configured returns the number of languages with analyzer settings.
func (s *Summary) Configured() int {
	n := 0
	for _, l := range s.Languages {
		if l.Settings != nil {
			n++
		}
	}
	return n
}

// Failed returns the number of languages that failed.
func (s *Summary) Failed() int {
	n := 0
	for _, l := range s.Languages {
		if l.Error != "" {
			n++
		}
	}
	return n
}

// Reporter renders a Summary.
type Reporter interface {
	// Generate renders the summary to a string.
	Generate(s *Summary) (string, error)

	// Write renders the summary to a writer.
	Write(s *Summary, w io.Writer) error

	// Format returns the format name.
	Format() string
}

// NewReporter creates a reporter for the given format.
func NewReporter(format string) (Reporter, error) {
	switch format {
	case "markdown", "md":
		return &MarkdownReporter{}, nil
	case "json":
		return &JSONReporter{Indent: true}, nil
	case "yaml", "yml":
		return &YAMLReporter{}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

// AvailableFormats returns the list of supported formats.
func AvailableFormats() []string {
	return []string{"markdown", "json", "yaml"}
}
