package scanner

import (
	"context"
	"net/url"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"gitlab.com/scanhound/hound"
	"gitlab.com/scanhound/scanner/crawler"
	"gitlab.com/scanhound/scanner/fetch"
	"gitlab.com/scanhound/scanner/plugin"
	"gitlab.com/scanhound/store"
)

// Scanner is our engine
type Scanner struct {
	cfg      *hound.Config
	reporter hound.Reporter

	session  *hound.Session
	fetcher  *fetch.Client
	plugins  *plugin.Service
	findings *store.FindingStore
	links    *store.LinkGraph
	spider   *crawler.Spider

	mainContext *hound.Context
}

// findingStoreSetter is implemented by reporters that can checkpoint issues
type findingStoreSetter interface {
	SetFindingStore(store hound.FindingStorer)
}

// New engine
func New(cfg *hound.Config, reporter hound.Reporter) *Scanner {
	return &Scanner{cfg: cfg, reporter: reporter}
}

// Init the fetcher, plugins and stores
func (s *Scanner) Init(ctx context.Context) error {
	target, err := url.Parse(s.cfg.URL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return errors.Errorf("invalid target url %q", s.cfg.URL)
	}

	scope := s.scopeService(target)
	s.session = hound.NewSession(s.cfg.URL, scope)
	if s.cfg.MaxSpiderPages > 0 {
		s.session.SetMaxSpiderPages(s.cfg.MaxSpiderPages)
	}

	fetchCfg := fetch.DefaultConfig()
	if s.cfg.TimeoutSeconds > 0 {
		fetchCfg.Timeout = time.Duration(s.cfg.TimeoutSeconds) * time.Second
	}
	if s.cfg.UserAgent != "" {
		fetchCfg.UserAgent = s.cfg.UserAgent
	}
	fetchCfg.ProxyURL = s.cfg.Proxy
	fetchCfg.SkipTLSVerify = s.cfg.SkipTLSVerify
	s.fetcher = fetch.New(fetchCfg)

	log.Info().Msg("initializing plugins")
	s.plugins = plugin.New(s.reporter.Catalog())
	if err := s.plugins.Init(ctx); err != nil {
		return err
	}

	if s.cfg.Checkpoint {
		log.Info().Msg("initializing finding store")
		s.findings = store.NewFindingStore(filepath.Join(s.cfg.DataPath, "findings"))
		if err := s.findings.Init(); err != nil {
			return errors.Wrap(err, "failed to init finding store")
		}
		if setter, ok := s.reporter.(findingStoreSetter); ok {
			setter.SetFindingStore(s.findings)
		}
	}

	s.mainContext = &hound.Context{
		Ctx:      ctx,
		Scope:    scope,
		Reporter: s.reporter,
		Fetcher:  s.fetcher,
		Checker:  s.plugins,
	}

	if s.cfg.RecordLinks {
		log.Info().Msg("initializing link graph")
		s.links = store.NewLinkGraph(filepath.Join(s.cfg.DataPath, "links.db"))
		if err := s.links.Init(); err != nil {
			return errors.Wrap(err, "failed to init link graph")
		}
		s.mainContext.Links = s.links
	}

	s.reporter.Setup(s.session.Domain())
	s.spider = crawler.New(s.mainContext, s.cfg.Workers)
	return nil
}

func (s *Scanner) scopeService(target *url.URL) *ScopeService {
	allowed := append([]string{target.Hostname()}, s.cfg.AllowedURLs...)
	scope := NewScopeService(target)
	scope.AddScope(allowed, hound.InScope)
	scope.AddScope(s.cfg.IgnoredURLs, hound.OutOfScope)
	scope.AddScope(s.cfg.ExcludedURLs, hound.ExcludedFromScope)
	scope.AddExcludedURIs(s.cfg.ExcludedURIs)
	return scope
}

// Session of the current scan, nil before Init
func (s *Scanner) Session() *hound.Session {
	return s.session
}

// Start spidering the target, results are displayed and registered with the
// reporter. If the context is cancelled the partial results are still
// registered and the context error is returned.
func (s *Scanner) Start() error {
	log.Info().Str("url", s.session.URL).Msg("spidering")
	start := time.Now()
	links, results, err := s.spider.Spider(s.mainContext.Ctx, s.session)

	s.reporter.RegisterData("spider_links", links)
	if page := s.session.PHPPage(); page != "" {
		s.reporter.RegisterData("php_page", page)
	}
	s.reporter.DisplayResults(results, "\t")

	log.Info().Int("links", len(links)).Int("results", len(results)).
		Dur("elapsed", time.Since(start)).Msg("spider finished")
	return err
}

// Stop closes the stores
func (s *Scanner) Stop() error {
	stores := make([]store.Storer, 0, 2)
	if s.findings != nil {
		stores = append(stores, s.findings)
	}
	if s.links != nil {
		stores = append(stores, s.links)
	}

	var err error
	for _, st := range stores {
		if closeErr := st.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close store")
			err = closeErr
		}
	}
	return err
}
