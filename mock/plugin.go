package mock

import (
	"github.com/PuerkitoBio/goquery"
	"gitlab.com/scanhound/hound"
	"go.uber.org/atomic"
)

type Plugin struct {
	NameFn     func() string
	NameCalled bool

	IDFn     func() string
	IDCalled bool

	ConfigFn     func() *hound.PluginConfig
	ConfigCalled bool

	OptionsFn     func() *hound.PluginOpts
	OptionsCalled bool

	CheckFn    func(hctx *hound.Context, resp *hound.Response, doc *goquery.Document) []*hound.Result
	CheckCalls atomic.Int64
}

func (p *Plugin) Name() string {
	p.NameCalled = true
	return p.NameFn()
}

func (p *Plugin) ID() string {
	p.IDCalled = true
	return p.IDFn()
}

func (p *Plugin) Config() *hound.PluginConfig {
	p.ConfigCalled = true
	return p.ConfigFn()
}

func (p *Plugin) Options() *hound.PluginOpts {
	p.OptionsCalled = true
	return p.OptionsFn()
}

func (p *Plugin) Check(hctx *hound.Context, resp *hound.Response, doc *goquery.Document) []*hound.Result {
	p.CheckCalls.Inc()
	return p.CheckFn(hctx, resp, doc)
}

func MakeMockPlugin() *Plugin {
	p := &Plugin{}

	p.NameFn = func() string {
		return "TestPlugin"
	}

	p.IDFn = func() string {
		return "SH-P-9999"
	}

	p.ConfigFn = func() *hound.PluginConfig {
		return &hound.PluginConfig{
			Class:    "",
			Plugin:   "",
			Language: "Go",
			ID:       9,
		}
	}

	p.OptionsFn = func() *hound.PluginOpts {
		return &hound.PluginOpts{
			ExecutionType: hound.ExecAlways,
			Mimes:         nil,
		}
	}

	p.CheckFn = func(hctx *hound.Context, resp *hound.Response, doc *goquery.Document) []*hound.Result {
		return nil
	}
	return p
}
