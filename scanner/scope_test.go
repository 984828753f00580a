package scanner_test

import (
	"net/url"
	"testing"

	"gitlab.com/scanhound/hound"
	"gitlab.com/scanhound/scanner"
)

func TestScope(t *testing.T) {
	target, _ := url.Parse("http://example.com")

	allowed := []string{"example.com", "https://api.example.com:8443/v1"}
	ignored := []string{"bad.com"}
	s := scanner.NewScopeService(target)
	s.AddScope(allowed, hound.InScope)
	s.AddScope(ignored, hound.OutOfScope)
	s.AddScope([]string{"Admin.example.com"}, hound.ExcludedFromScope)
	s.AddExcludedURIs([]string{"/log-out", "http://example.com/signout", "/admin/*"})

	var inputs = []struct {
		in       string
		expected hound.Scope
	}{
		{"http://example.com", hound.InScope},
		{"http://bad.com", hound.OutOfScope},
		{"http://example.com/bad.com", hound.InScope},
		{"https://bad.com/example.com", hound.OutOfScope},
		{"http://example.com/log-out", hound.ExcludedFromScope},
		{"http://example.com/signout", hound.ExcludedFromScope},
		{"http://example.com/different/signout", hound.InScope},
		{"http://bad.com/signout", hound.OutOfScope},
		{"http://example.com/admin/users", hound.ExcludedFromScope},
		{"http://admin.example.com/", hound.ExcludedFromScope},
		{"https://api.example.com:8443/v1/users", hound.InScope},
		{"//example.com/page", hound.InScope},
		{"relative/page", hound.InScope},
	}
	for _, in := range inputs {
		ret := s.Check(in.in)
		if ret != in.expected {
			t.Fatalf("%v did not match %v for %s\n", ret, in.expected, in.in)
		}
	}
}

func TestSessionInScope(t *testing.T) {
	target, _ := url.Parse("http://example.com")
	scope := scanner.NewScopeService(target)
	scope.AddScope([]string{"example.com"}, hound.InScope)
	scope.AddScope([]string{"ignored.example.com"}, hound.OutOfScope)
	scope.AddExcludedURIs([]string{"/logout"})
	session := hound.NewSession("http://example.com", scope)

	var inputs = []struct {
		in       string
		expected bool
	}{
		{"http://example.com", true},
		{"http://example.com/page", true},
		{"http://example.com?q=1", true},
		{"http://example.com.evil.net/steal", false},
		{"http://example.community/", false},
		{"http://example.com/logout", false},
		{"https://example.com/page", false},
	}
	for _, in := range inputs {
		if ret := session.InScope(in.in); ret != in.expected {
			t.Fatalf("%v did not match %v for %s\n", ret, in.expected, in.in)
		}
	}

	// the seed prefix alone is not enough when the scope service disagrees
	ignored := hound.NewSession("http://ignored.example.com/", scope)
	if ignored.InScope("http://ignored.example.com/page") {
		t.Fatalf("ignored host must not be in scope\n")
	}

	prefixOnly := hound.NewSession("http://example.com", nil)
	if prefixOnly.InScope("http://example.com.evil.net/") {
		t.Fatalf("seed without a path must not match a longer host\n")
	}
	if !prefixOnly.InScope("http://example.com/a") {
		t.Fatalf("expected path under the seed to be in scope\n")
	}
}
