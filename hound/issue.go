package hound

import "fmt"

// Issue is a registered finding
type Issue struct {
	ID            string
	Vulnerability *Vulnerability
	Severity      Severity
	URL           string
	Evidence      *Evidence
}

// NewIssue with a fresh id, severity is copied from vuln
func NewIssue(vuln *Vulnerability, url string, ev *Evidence) *Issue {
	iss := &Issue{
		ID:            NewID(),
		Vulnerability: vuln,
		URL:           url,
		Evidence:      ev,
	}
	if vuln != nil {
		iss.Severity = vuln.Severity
	}
	return iss
}

// IssueFromResult converts a check result
func IssueFromResult(r *Result) *Issue {
	return NewIssue(r.Vulnerability, r.URL, r.Evidence)
}

// VulnName of the issue or empty
func (i *Issue) VulnName() string {
	return vulnName(i.Vulnerability)
}

func (i *Issue) String() string {
	return fmt.Sprintf("Issue: %s - %s - %s", i.ID, i.VulnName(), i.URL)
}
