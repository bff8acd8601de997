package analyzer

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JNZader/sonarprep/internal/logger"
	"github.com/JNZader/sonarprep/internal/rules"
)

// SonarLint.xml document.
type analysisInput struct {
	XMLName  xml.Name      `xml:"AnalysisInput"`
	Settings []lintSetting `xml:"Settings>Setting"`
	Rules    []lintRule    `xml:"Rules>Rule"`
	Files    struct{}      `xml:"Files"`
}

type lintSetting struct {
	Key   string `xml:"Key"`
	Value string `xml:"Value"`
}

type lintRule struct {
	Key        string        `xml:"Key"`
	Parameters []lintSetting `xml:"Parameters>Parameter,omitempty"`
}

// GenerateSonarLintXML renders the additional file for a language. It keeps
// the server settings prefixed with "sonar.<language>." and the active rules
// of repoKey with their parameters.
func GenerateSonarLintXML(active []rules.ActiveRule, serverSettings map[string]string, language, repoKey string) ([]byte, error) {
	doc := analysisInput{}

	prefix := "sonar." + language + "."
	keys := make([]string, 0, len(serverSettings))
	for k := range serverSettings {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		doc.Settings = append(doc.Settings, lintSetting{Key: k, Value: serverSettings[k]})
	}

	for _, r := range rules.FilterByRepository(active, repoKey) {
		lr := lintRule{Key: r.RuleKey}
		names := make([]string, 0, len(r.Parameters))
		for name := range r.Parameters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			lr.Parameters = append(lr.Parameters, lintSetting{Key: name, Value: r.Parameters[name]})
		}
		doc.Rules = append(doc.Rules, lr)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// AdditionalFileWriter writes the per-language SonarLint.xml file.
type AdditionalFileWriter struct {
	log *logger.Logger
}

// NewAdditionalFileWriter creates a writer logging to log.
func NewAdditionalFileWriter(log *logger.Logger) *AdditionalFileWriter {
	if log == nil {
		log = logger.Default()
	}
	return &AdditionalFileWriter{log: log}
}

// Write creates <dir>/<language>/SonarLint.xml and returns its path. ok is
// false when the language is blank or the file already exists; an existing
// file is left untouched.
func (w *AdditionalFileWriter) Write(language string, active []rules.ActiveRule, serverSettings map[string]string, dir string) (string, bool, error) {
	if strings.TrimSpace(language) == "" {
		w.log.Debug("No language given, skipping the additional file")
		return "", false, nil
	}

	content, err := GenerateSonarLintXML(active, serverSettings, language, rules.PrimaryRepository(language))
	if err != nil {
		return "", false, fmt.Errorf("encoding %s: %w", AdditionalFileName, err)
	}

	langDir := filepath.Join(dir, language)
	if err := os.MkdirAll(langDir, 0755); err != nil {
		return "", false, fmt.Errorf("creating %s: %w", langDir, err)
	}

	path := filepath.Join(langDir, AdditionalFileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644) //nolint:gosec // Read by the build
	if errors.Is(err, fs.ErrExist) {
		w.log.Debug("Additional file for language %s already exists: %s", language, path)
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("creating %s: %w", path, err)
	}

	w.log.Debug("Writing additional file %s", path)
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return "", false, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", false, fmt.Errorf("writing %s: %w", path, err)
	}

	return path, true, nil
}
