package hound_test

import (
	"reflect"
	"testing"

	"gitlab.com/scanhound/hound"
)

func TestNewResultNormalization(t *testing.T) {
	catalog := hound.DefaultCatalog()
	vuln := catalog.Get(hound.VulnInsecureLink)
	url := "https://example.com/"

	var tests = []struct {
		name    string
		ev      hound.EvidenceValue
		request *string
		custom  map[string]interface{}
	}{
		{"nil", nil, nil, map[string]interface{}{"message": "msg"}},
		{"text", hound.TextEvidence("proof"), nil, map[string]interface{}{"e": "proof", "message": "msg"}},
		{"list", hound.ListEvidence{"a", "b"}, nil, map[string]interface{}{"e": []string{"a", "b"}}},
		{"fields", hound.FieldsEvidence{"request": "GET /", "url": "ignored", "link": "http://x/"}, strPtr("GET /"), map[string]interface{}{"link": "http://x/"}},
	}

	for _, tt := range tests {
		r := hound.NewResult("msg", vuln, url, tt.ev)
		if r.Evidence == nil {
			t.Fatalf("%s: evidence must never be nil", tt.name)
		}
		if r.Evidence.URL() != url {
			t.Fatalf("%s: expected url %s got %s\n", tt.name, url, r.Evidence.URL())
		}
		if !reflect.DeepEqual(r.Evidence.Custom(), tt.custom) {
			t.Fatalf("%s: expected custom %#v got %#v\n", tt.name, tt.custom, r.Evidence.Custom())
		}
		req, ok := r.Evidence.Request()
		if tt.request == nil && ok {
			t.Fatalf("%s: expected no request got %s\n", tt.name, req)
		}
		if tt.request != nil && req != *tt.request {
			t.Fatalf("%s: expected request %s got %s\n", tt.name, *tt.request, req)
		}
		if r.ID == "" || len(r.ID) != 32 {
			t.Fatalf("%s: expected hex uuid got %s\n", tt.name, r.ID)
		}
	}
}

func TestResultFromEvidence(t *testing.T) {
	vuln := hound.DefaultCatalog().Get(hound.VulnCharsetMissing)
	ev := hound.NewEvidence("http://example.com/a", nil, strPtr("res"), nil)
	r := hound.ResultFromEvidence(ev, "missing charset", vuln)
	if r.Evidence != ev {
		t.Fatalf("expected evidence to be used as is")
	}
	if r.URL != "http://example.com/a" {
		t.Fatalf("expected evidence url got %s\n", r.URL)
	}

	iss := hound.IssueFromResult(r)
	if iss.Severity != vuln.Severity || iss.URL != r.URL || iss.Evidence != ev {
		t.Fatalf("issue did not copy result fields: %s\n", iss)
	}
	if iss.ID == r.ID {
		t.Fatalf("issue must get a fresh id")
	}
}

func TestAppendUnique(t *testing.T) {
	vuln := hound.DefaultCatalog().Get(hound.VulnInsecureLink)
	a := hound.NewResult("m", vuln, "https://example.com/", hound.TextEvidence("x"))
	b := hound.NewResult("m", vuln, "https://example.com/", hound.TextEvidence("x"))
	c := hound.NewResult("m", vuln, "https://example.com/", hound.TextEvidence("y"))

	results := hound.AppendUnique(nil, a, b, c)
	if len(results) != 2 {
		t.Fatalf("expected 2 unique results got %d\n", len(results))
	}
}

func TestInjectionPointEqual(t *testing.T) {
	a := &hound.InjectionPoint{URL: "http://x/", Field: "q", Method: "GET", Value: "1"}
	b := &hound.InjectionPoint{URL: "http://x/", Field: "q", Method: "GET", Value: "1"}
	c := &hound.InjectionPoint{URL: "http://x/", Field: "q", Method: "POST", Value: "1"}
	if !a.Equal(b) || a.Equal(c) {
		t.Fatalf("unexpected injection point equality")
	}
}
