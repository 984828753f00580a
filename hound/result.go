package hound

import (
	"encoding/hex"
	"fmt"

	uuid "github.com/satori/go.uuid"
)

// EvidenceValue is what a check may hand over as evidence: TextEvidence,
// FieldsEvidence, ListEvidence or *Evidence. nil means no evidence.
type EvidenceValue interface {
	isEvidenceValue()
}

// TextEvidence is a literal string
type TextEvidence string

func (TextEvidence) isEvidenceValue() {}

// FieldsEvidence is a mapping, request/response keys become the payloads
type FieldsEvidence map[string]interface{}

func (FieldsEvidence) isEvidenceValue() {}

// ListEvidence is a list of strings
type ListEvidence []string

func (ListEvidence) isEvidenceValue() {}

// Result of a single check
type Result struct {
	ID            string
	Message       string
	Vulnerability *Vulnerability
	URL           string
	Evidence      *Evidence
}

// NewResult normalizes ev into Evidence, the result always carries evidence
func NewResult(msg string, vuln *Vulnerability, url string, ev EvidenceValue) *Result {
	return &Result{
		ID:            NewID(),
		Message:       msg,
		Vulnerability: vuln,
		URL:           url,
		Evidence:      normalizeEvidence(msg, url, ev),
	}
}

// ResultFromEvidence uses the evidence url for the result
func ResultFromEvidence(ev *Evidence, msg string, vuln *Vulnerability) *Result {
	return NewResult(msg, vuln, ev.URL(), ev)
}

func normalizeEvidence(msg, url string, ev EvidenceValue) *Evidence {
	switch v := ev.(type) {
	case *Evidence:
		if v != nil {
			return v
		}
	case FieldsEvidence:
		if v == nil {
			break
		}
		var request, response *string
		custom := make(map[string]interface{}, len(v))
		for key, value := range v {
			switch key {
			case KeyRequest:
				request = toStringPtr(value)
			case KeyResponse:
				response = toStringPtr(value)
			case KeyURL:
			default:
				custom[key] = value
			}
		}
		return NewEvidence(url, request, response, custom)
	case TextEvidence:
		return NewEvidence(url, nil, nil, map[string]interface{}{"e": string(v), "message": msg})
	case ListEvidence:
		if v == nil {
			break
		}
		list := make([]string, len(v))
		copy(list, v)
		return NewEvidence(url, nil, nil, map[string]interface{}{"e": list})
	}
	return NewEvidence(url, nil, nil, map[string]interface{}{"message": msg})
}

// Equal compares vulnerability name, url, message and evidence
func (r *Result) Equal(other *Result) bool {
	if r == nil || other == nil {
		return r == other
	}
	return vulnName(r.Vulnerability) == vulnName(other.Vulnerability) &&
		r.URL == other.URL &&
		r.Message == other.Message &&
		r.Evidence.Equal(other.Evidence)
}

func (r *Result) String() string {
	return fmt.Sprintf("Result: %s - %s - %s - %s", r.ID, vulnName(r.Vulnerability), r.URL, r.Message)
}

// AppendUnique appends results not already in dst by value equality
func AppendUnique(dst []*Result, results ...*Result) []*Result {
	for _, r := range results {
		found := false
		for _, existing := range dst {
			if existing.Equal(r) {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, r)
		}
	}
	return dst
}

// NewID returns a random uuid in hex form
func NewID() string {
	return hex.EncodeToString(uuid.NewV4().Bytes())
}

func vulnName(v *Vulnerability) string {
	if v == nil {
		return ""
	}
	return v.Name
}
