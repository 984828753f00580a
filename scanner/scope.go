package scanner

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"gitlab.com/scanhound/hound"
)

// ScopeService is used to ensure we stay with in the scope
// of the target as we scan
type ScopeService struct {
	target       *url.URL
	allowed      []string
	ignored      []string
	excluded     []string
	excludedURIs []string
}

// NewScopeService set the target url for easier matching
func NewScopeService(target *url.URL) *ScopeService {
	return &ScopeService{
		target:       target,
		allowed:      make([]string, 0),
		ignored:      make([]string, 0),
		excluded:     make([]string, 0),
		excludedURIs: make([]string, 0),
	}
}

// AddScope to the scope service, inputs may be hosts or urls
func (s *ScopeService) AddScope(inputs []string, scope hound.Scope) {
	if len(inputs) == 0 {
		return
	}
	hosts := mapFunction(inputs, toHost)

	switch scope {
	case hound.InScope:
		s.allowed = append(s.allowed, hosts...)
	case hound.OutOfScope:
		s.ignored = append(s.ignored, hosts...)
	case hound.ExcludedFromScope:
		s.excluded = append(s.excluded, hosts...)
	}
}

// AddExcludedURIs so we don't logout or whatever. A trailing * matches
// any path with that prefix.
func (s *ScopeService) AddExcludedURIs(inputs []string) {
	for _, input := range inputs {
		if strings.HasPrefix(input, "http") {
			u, err := url.Parse(input)
			if err != nil {
				log.Warn().Err(err).Msg("failed to add URI to exclusion list")
				continue
			}
			s.excludedURIs = append(s.excludedURIs, strings.ToLower(u.Path))
		} else {
			s.excludedURIs = append(s.excludedURIs, strings.ToLower(input))
		}
	}
}

// Check a url to see if it's in scope
func (s *ScopeService) Check(uri string) hound.Scope {
	lowered := strings.ToLower(uri)
	host := s.target.Hostname()

	if strings.HasPrefix(lowered, "http") {
		u, err := url.Parse(lowered)
		if err != nil {
			log.Warn().Err(err).Str("uri", lowered).Msg("failed to parse URI returning out of scope")
			return hound.OutOfScope
		}
		host = u.Hostname()
		lowered = u.Path
	} else if strings.HasPrefix(lowered, "//") {
		u, err := url.Parse("http:" + lowered)
		if err != nil {
			log.Warn().Err(err).Str("uri", lowered).Msg("failed to parse URI returning out of scope")
			return hound.OutOfScope
		}
		host = u.Hostname()
		lowered = u.Path
	} else if !strings.HasPrefix(lowered, "/") {
		lowered = "/" + lowered
	}
	return s.CheckRelative(host, lowered)
}

// CheckRelative hosts to see if it's in scope
// First we check if excluded, then we check if it's ignored,
// then we check if the uri is excluded and finally if it's allowed
// default to out of scope
func (s *ScopeService) CheckRelative(host, relative string) hound.Scope {
	host = strings.ToLower(host)
	if includeFunction(s.excluded, host) {
		return hound.ExcludedFromScope
	} else if includeFunction(s.ignored, host) {
		return hound.OutOfScope
	} else if matchURI(s.excludedURIs, strings.ToLower(relative)) {
		return hound.ExcludedFromScope
	} else if includeFunction(s.allowed, host) {
		return hound.InScope
	}
	return hound.OutOfScope
}

// toHost lowercases input and reduces urls to their hostname
func toHost(input string) string {
	lowered := strings.ToLower(strings.TrimSpace(input))
	if strings.Contains(lowered, "://") {
		if u, err := url.Parse(lowered); err == nil {
			return u.Hostname()
		}
	}
	if host, _, ok := strings.Cut(lowered, ":"); ok {
		return host
	}
	return lowered
}

func matchURI(patterns []string, relative string) bool {
	for _, p := range patterns {
		if strings.HasSuffix(p, "*") {
			if strings.HasPrefix(relative, strings.TrimSuffix(p, "*")) {
				return true
			}
		} else if p == relative {
			return true
		}
	}
	return false
}

func mapFunction(vs []string, f func(string) string) []string {
	vsm := make([]string, len(vs))
	for i, v := range vs {
		vsm[i] = f(v)
	}
	return vsm
}

func indexFunction(vs []string, t string) int {
	for i, v := range vs {
		if v == t {
			return i
		}
	}
	return -1
}

func includeFunction(vs []string, t string) bool {
	return indexFunction(vs, t) >= 0
}
