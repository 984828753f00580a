package hound

// Scope of requests
type Scope int8

const (
	// InScope (we crawl and check)
	InScope Scope = iota + 1
	// OutOfScope (we do not crawl, but may report on links to it)
	OutOfScope
	// ExcludedFromScope (we do not access)
	ExcludedFromScope
)

// ScopeService checks if a url is in scope
type ScopeService interface {
	AddScope(inputs []string, scope Scope)
	AddExcludedURIs(inputs []string)
	Check(uri string) Scope
	CheckRelative(host, relative string) Scope
}
