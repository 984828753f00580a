package plugin_test

import (
	"context"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"gitlab.com/scanhound/hound"
	"gitlab.com/scanhound/mock"
	"gitlab.com/scanhound/scanner/plugin"
)

func TestInit(t *testing.T) {
	s := plugin.New(hound.DefaultCatalog())
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("error initializing plugin service: %s\n", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 default plugins got %d\n", s.Len())
	}
}

func TestDispatch(t *testing.T) {
	catalog := hound.DefaultCatalog()
	s := plugin.New(catalog)
	hctx := mock.Context(context.Background())
	resp := mock.MakeMockResponse("http://localhost/index.html", 200, "<html></html>", map[string]string{"Content-Type": "text/html; charset=utf-8"})

	mPlugin := mock.MakeMockPlugin()
	mPlugin.CheckFn = func(hctx *hound.Context, resp *hound.Response, doc *goquery.Document) []*hound.Result {
		return mock.MakeMockResults(catalog.Get(hound.VulnInsecureLink), resp.URL, 2)
	}
	s.Register(mPlugin)

	results := s.CheckResponse(hctx, resp, nil)
	if mPlugin.CheckCalls.Load() != 1 {
		t.Fatalf("error plugin Check was never called")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results got %d\n", len(results))
	}

	// test unregister
	s.Unregister(mPlugin)
	s.CheckResponse(hctx, resp, nil)
	if mPlugin.CheckCalls.Load() != 1 {
		t.Fatalf("plugin should not be called after unregistering")
	}
}

func TestDispatchOnce(t *testing.T) {
	s := plugin.New(nil)
	hctx := mock.Context(context.Background())

	mPlugin := mock.MakeMockPlugin()
	mPlugin.OptionsFn = func() *hound.PluginOpts {
		return &hound.PluginOpts{ExecutionType: hound.ExecOnce}
	}
	s.Register(mPlugin)

	pathPlugin := mock.MakeMockPlugin()
	pathPlugin.IDFn = func() string { return "SH-P-9998" }
	pathPlugin.OptionsFn = func() *hound.PluginOpts {
		return &hound.PluginOpts{ExecutionType: hound.ExecOncePerPath}
	}
	s.Register(pathPlugin)

	for _, u := range []string{"http://localhost/a", "http://localhost/a", "http://localhost/b", "http://other/a"} {
		s.CheckResponse(hctx, mock.MakeMockResponse(u, 200, "", nil), nil)
	}

	if mPlugin.CheckCalls.Load() != 2 {
		t.Fatalf("expected once per host plugin to be called twice got %d\n", mPlugin.CheckCalls.Load())
	}
	if pathPlugin.CheckCalls.Load() != 3 {
		t.Fatalf("expected once per path plugin to be called 3 times got %d\n", pathPlugin.CheckCalls.Load())
	}
}

func TestDispatchMIME(t *testing.T) {
	s := plugin.New(nil)
	hctx := mock.Context(context.Background())

	mPlugin := mock.MakeMockPlugin()
	mPlugin.OptionsFn = func() *hound.PluginOpts {
		return &hound.PluginOpts{ExecutionType: hound.ExecOnlyMIME, Mimes: []string{"application/json"}}
	}
	s.Register(mPlugin)

	s.CheckResponse(hctx, mock.MakeMockResponse("http://localhost/", 200, "<html></html>", map[string]string{"Content-Type": "text/html"}), nil)
	if mPlugin.CheckCalls.Load() != 0 {
		t.Fatalf("plugin should not be called for text/html")
	}
	s.CheckResponse(hctx, mock.MakeMockResponse("http://localhost/api", 200, "{}", map[string]string{"Content-Type": "application/json; charset=utf-8"}), nil)
	if mPlugin.CheckCalls.Load() != 1 {
		t.Fatalf("plugin should be called for application/json")
	}
}

func TestPluginPanic(t *testing.T) {
	catalog := hound.DefaultCatalog()
	s := plugin.New(catalog)
	hctx := mock.Context(context.Background())

	bad := mock.MakeMockPlugin()
	bad.IDFn = func() string { return "SH-P-0000" }
	bad.CheckFn = func(hctx *hound.Context, resp *hound.Response, doc *goquery.Document) []*hound.Result {
		panic("boom")
	}
	s.Register(bad)

	good := mock.MakeMockPlugin()
	good.CheckFn = func(hctx *hound.Context, resp *hound.Response, doc *goquery.Document) []*hound.Result {
		return mock.MakeMockResults(catalog.Get(hound.VulnInsecureLink), resp.URL, 1)
	}
	s.Register(good)

	results := s.CheckResponse(hctx, mock.MakeMockResponse("http://localhost/", 200, "", nil), nil)
	if len(results) != 1 {
		t.Fatalf("expected results from the plugin that did not panic, got %d\n", len(results))
	}
}
