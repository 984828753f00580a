package hound

import "context"

// Message kinds for Reporter.RegisterMessage
const (
	MessageDebug   = "debug"
	MessageInfo    = "info"
	MessageWarning = "warning"
	MessageError   = "error"
)

// Reporter collects findings, data and injection points for a scan
type Reporter interface {
	Catalog() *Catalog
	Setup(domain string)
	Register(issue *Issue) bool
	IsRegistered(vuln *Vulnerability) bool
	Display(msg string, issue *Issue)
	DisplayResults(results []*Result, padding string)
	RegisterData(key string, value interface{})
	RegisterInfo(key string, value interface{})
	RegisterMessage(text, kind string)
	RegisterInjectionPoints(points []*InjectionPoint)
	SaveOutput() (string, error)
	OutputFile() string
}

// Output prints findings for the user
type Output interface {
	Vuln(msg string)
	Warn(msg string)
	Info(msg string)
}

// Fetcher makes a single GET request without following redirects
type Fetcher interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// LinkRecorder stores the edges found while crawling
type LinkRecorder interface {
	AddLink(from, to string) error
	AddRedirect(from, to string) error
}

// FindingStorer checkpoints registered issues
type FindingStorer interface {
	AddIssue(domain string, issue *Issue) error
}
