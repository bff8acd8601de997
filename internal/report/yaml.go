package report

import (
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLReporter generates YAML reports.
type YAMLReporter struct{}

func (r *YAMLReporter) Format() string { return "yaml" }

func (r *YAMLReporter) Generate(s *Summary) (string, error) {
	var sb strings.Builder
	if err := r.Write(s, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (r *YAMLReporter) Write(s *Summary, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}
