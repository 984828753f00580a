package plugin

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"gitlab.com/scanhound/hound"
	"gitlab.com/scanhound/scanner/plugin/cookies"
	"gitlab.com/scanhound/scanner/plugin/headers"
)

// Service of passive plugins, implements hound.ResponseChecker
type Service struct {
	catalog *hound.Catalog

	hostPlugins   *Container
	pathPlugins   *Container
	mimePlugins   *Container
	alwaysPlugins *Container

	seenLock sync.Mutex
	seen     map[string]struct{}
}

// New plugin manager, plugins look up their vulnerabilities in catalog
func New(catalog *hound.Catalog) *Service {
	if catalog == nil {
		catalog = hound.DefaultCatalog()
	}
	return &Service{
		catalog:       catalog,
		hostPlugins:   NewContainer(),
		pathPlugins:   NewContainer(),
		mimePlugins:   NewContainer(),
		alwaysPlugins: NewContainer(),
		seen:          make(map[string]struct{}),
	}
}

// Init registers the built in plugins
func (s *Service) Init(ctx context.Context) error {
	importPlugins(s)
	return nil
}

// Register a plugin according to its execution type
func (s *Service) Register(plugin hound.Plugin) {
	s.getPluginsOfType(executionType(plugin)).Add(plugin)
}

// Unregister the plugin based on type
func (s *Service) Unregister(plugin hound.Plugin) {
	s.getPluginsOfType(executionType(plugin)).Remove(plugin)
}

// Len of all registered plugins
func (s *Service) Len() int {
	return s.hostPlugins.Len() + s.pathPlugins.Len() + s.mimePlugins.Len() + s.alwaysPlugins.Len()
}

func (s *Service) getPluginsOfType(pluginType hound.PluginExecutionType) *Container {
	switch pluginType {
	case hound.ExecOnce:
		return s.hostPlugins
	case hound.ExecOncePerPath:
		return s.pathPlugins
	case hound.ExecOnlyMIME:
		return s.mimePlugins
	}
	return s.alwaysPlugins
}

// CheckResponse runs every plugin interested in resp
func (s *Service) CheckResponse(hctx *hound.Context, resp *hound.Response, doc *goquery.Document) []*hound.Result {
	if resp == nil {
		return nil
	}
	host, path := hostAndPath(resp.URL)
	contentType := resp.ContentType()

	results := s.alwaysPlugins.Call(hctx, resp, doc, nil)
	results = append(results, s.hostPlugins.Call(hctx, resp, doc, func(p hound.Plugin) bool {
		return s.isUnique(p.ID() + "|" + host)
	})...)
	results = append(results, s.pathPlugins.Call(hctx, resp, doc, func(p hound.Plugin) bool {
		return s.isUnique(p.ID() + "|" + host + path)
	})...)
	results = append(results, s.mimePlugins.Call(hctx, resp, doc, func(p hound.Plugin) bool {
		opts := p.Options()
		if opts == nil {
			return false
		}
		for _, mime := range opts.Mimes {
			if strings.EqualFold(mime, contentType) {
				return true
			}
		}
		return false
	})...)
	return results
}

func (s *Service) isUnique(key string) bool {
	s.seenLock.Lock()
	defer s.seenLock.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

func executionType(plugin hound.Plugin) hound.PluginExecutionType {
	if opts := plugin.Options(); opts != nil {
		return opts.ExecutionType
	}
	return hound.ExecAlways
}

func hostAndPath(rawURL string) (string, string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, ""
	}
	return u.Host, u.Path
}

func importPlugins(s *Service) {
	s.Register(headers.New(s.catalog))
	s.Register(cookies.New(s.catalog))
}
