package hound

import (
	"net/url"
	"strings"

	"go.uber.org/atomic"
)

// DefaultMaxSpiderPages caps the number of discovered links that are followed
const DefaultMaxSpiderPages = 10000

// Session holds the per target crawl state
type Session struct {
	URL   string
	Scope ScopeService

	maxSpiderPages *atomic.Int64
	phpPage        *atomic.String
}

// NewSession for the seed url, scope may be nil (prefix matching only)
func NewSession(seed string, scope ScopeService) *Session {
	return &Session{
		URL:            seed,
		Scope:          scope,
		maxSpiderPages: atomic.NewInt64(DefaultMaxSpiderPages),
		phpPage:        atomic.NewString(""),
	}
}

// MaxSpiderPages bound, may be changed while crawling
func (s *Session) MaxSpiderPages() int64 {
	return s.maxSpiderPages.Load()
}

// SetMaxSpiderPages updates the bound
func (s *Session) SetMaxSpiderPages(max int64) {
	s.maxSpiderPages.Store(max)
}

// SetPHPPage records the first php page found, later calls are ignored
func (s *Session) SetPHPPage(page string) bool {
	return s.phpPage.CompareAndSwap("", page)
}

// PHPPage returns the first php page found, if any
func (s *Session) PHPPage() string {
	return s.phpPage.Load()
}

// Domain (hostname) of the seed url
func (s *Session) Domain() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// InScope if link starts with the seed url and the scope service, when set,
// reports it InScope. A seed without a path only matches its own host.
func (s *Session) InScope(link string) bool {
	if !hasSeedPrefix(link, s.URL) {
		return false
	}
	if s.Scope == nil {
		return true
	}
	return s.Scope.Check(link) == InScope
}

func hasSeedPrefix(link, seed string) bool {
	if !strings.HasPrefix(link, seed) {
		return false
	}
	rest := link[len(seed):]
	if rest == "" || strings.HasSuffix(seed, "/") {
		return true
	}
	u, err := url.Parse(seed)
	if err != nil || u.Path != "" {
		return true
	}
	// seed is scheme://host[:port], the next byte must end the authority
	return strings.ContainsRune("/?#", rune(rest[0]))
}
