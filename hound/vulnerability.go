package hound

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Severity of a vulnerability, ordered from Low to Critical
type Severity int8

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

// ParseSeverity case insensitively
func ParseSeverity(s string) (Severity, error) {
	for sev, name := range severityNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return sev, nil
		}
	}
	return 0, errors.Errorf("unknown severity %q", s)
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON as the lowercase name
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON from the severity name
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	sev, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// MarshalYAML as the lowercase name
func (s Severity) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML from the severity name
func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	sev, err := ParseSeverity(value.Value)
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// Vulnerability catalog entry
type Vulnerability struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Description string   `json:"description" yaml:"description"`
	DisplayAll  bool     `json:"display_all,omitempty" yaml:"display_all"`
	References  []string `json:"references,omitempty" yaml:"references"`
}

func (v *Vulnerability) String() string {
	if v == nil {
		return "<nil vulnerability>"
	}
	return v.Name + " (" + v.Severity.String() + ")"
}
