package hound

import "github.com/PuerkitoBio/goquery"

// PluginExecutionType determines how often/when a plugin should be called/executed
type PluginExecutionType int8

const (
	ExecAlways PluginExecutionType = iota
	ExecOnce
	ExecOncePerPath
	ExecOnlyMIME
)

// PluginOpts for when a plugin runs
type PluginOpts struct {
	ExecutionType PluginExecutionType // How often/when this plugin executes
	Mimes         []string            // list of mime types this plugin will execute on if ExecutionType = ExecOnlyMIME
}

// PluginConfig describes a plugin
type PluginConfig struct {
	Class    string
	Plugin   string
	Language string
	ID       int
}

// Plugin passively checks responses
type Plugin interface {
	Name() string
	ID() string
	Config() *PluginConfig
	Options() *PluginOpts
	Check(hctx *Context, resp *Response, doc *goquery.Document) []*Result
}

// ResponseChecker runs checks for a crawled response, doc is nil for non markup bodies
type ResponseChecker interface {
	CheckResponse(hctx *Context, resp *Response, doc *goquery.Document) []*Result
}
