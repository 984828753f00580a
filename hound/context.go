package hound

import "context"

// Context shared between the crawler, plugins and reporter
type Context struct {
	Ctx      context.Context
	Scope    ScopeService
	Reporter Reporter
	Fetcher  Fetcher
	Checker  ResponseChecker
	Links    LinkRecorder
}
