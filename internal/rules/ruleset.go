package rules

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
)

// Action is what the analysis engine does with a rule.
type Action string

const (
	ActionWarning Action = "Warning"
	ActionNone    Action = "None"
)

// Enabled reports whether the action turns the rule on.
func (a Action) Enabled() bool {
	return a != ActionNone
}

// RuleSet is a Visual Studio ruleset document.
type RuleSet struct {
	XMLName      xml.Name    `xml:"RuleSet"`
	Name         string      `xml:"Name,attr"`
	Description  string      `xml:"Description,attr"`
	ToolsVersion string      `xml:"ToolsVersion,attr"`
	Groups       []RuleGroup `xml:"Rules"`
}

// RuleGroup holds the rules of a single analyzer.
type RuleGroup struct {
	AnalyzerID    string      `xml:"AnalyzerId,attr"`
	RuleNamespace string      `xml:"RuleNamespace,attr"`
	Rules         []RuleEntry `xml:"Rule"`
}

// RuleEntry is one rule and its action.
type RuleEntry struct {
	ID     string `xml:"Id,attr"`
	Action Action `xml:"Action,attr"`
}

// Entry is a RuleEntry flattened with its analyzer.
type Entry struct {
	AnalyzerID string
	RuleID     string
	Action     Action
}

// Entries returns all rule entries in document order.
func (rs RuleSet) Entries() []Entry {
	var entries []Entry
	for _, g := range rs.Groups {
		for _, r := range g.Rules {
			entries = append(entries, Entry{AnalyzerID: g.AnalyzerID, RuleID: r.ID, Action: r.Action})
		}
	}
	return entries
}

// IsEmpty reports whether the ruleset has no rule entries. An empty ruleset
// is never written to disk.
func (rs RuleSet) IsEmpty() bool {
	for _, g := range rs.Groups {
		if len(g.Rules) > 0 {
			return false
		}
	}
	return true
}

// Marshal renders the document with an XML declaration.
func (rs RuleSet) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(rs); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Save writes the ruleset to path, replacing any previous file.
func (rs RuleSet) Save(path string) error {
	data, err := rs.Marshal()
	if err != nil {
		return fmt.Errorf("encoding ruleset: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil { //nolint:gosec // Ruleset is read by the build
		return fmt.Errorf("writing ruleset %s: %w", path, err)
	}
	return nil
}

// LoadRuleSet parses a ruleset file.
func LoadRuleSet(path string) (RuleSet, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from the caller
	if err != nil {
		return RuleSet{}, err
	}
	var rs RuleSet
	if err := xml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parsing ruleset %s: %w", path, err)
	}
	return rs, nil
}
