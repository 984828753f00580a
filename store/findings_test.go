package store_test

import (
	"testing"

	"gitlab.com/scanhound/hound"
	"gitlab.com/scanhound/store"
)

func TestFindingStore(t *testing.T) {
	stores := []*store.FindingStore{store.NewMemoryFindingStore(), store.NewFindingStore(t.TempDir())}
	c := hound.DefaultCatalog()

	for _, s := range stores {
		if err := s.Init(); err != nil {
			t.Fatalf("error init finding store: %s\n", err)
		}

		req := "GET / HTTP/1.1"
		ev := hound.NewEvidence("https://example.com/", &req, nil, map[string]interface{}{"link": "http://example.com/"})
		iss := hound.NewIssue(c.Get(hound.VulnInsecureLink), "https://example.com/", ev)

		if err := s.AddIssue("example.com", iss); err != nil {
			t.Fatalf("error adding issue: %s\n", err)
		}
		if err := s.AddIssue("example.com:8443", hound.NewIssue(c.Get(hound.VulnCharsetMissing), "https://example.com:8443/", nil)); err != nil {
			t.Fatalf("error adding issue: %s\n", err)
		}

		records, err := s.Issues("example.com")
		if err != nil {
			t.Fatalf("error reading issues: %s\n", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record got %d\n", len(records))
		}
		rec := records[0]
		if rec.ID != iss.ID || rec.Vulnerability != hound.VulnInsecureLink || rec.Severity != hound.SeverityLow {
			t.Fatalf("unexpected record %#v\n", rec)
		}
		if rec.RequestID != hound.Digest(req) || rec.ResponseID != "" {
			t.Fatalf("unexpected payload ids %#v\n", rec)
		}
		if rec.Custom["link"] != "http://example.com/" {
			t.Fatalf("unexpected custom fields %#v\n", rec.Custom)
		}

		domains, err := s.Domains()
		if err != nil {
			t.Fatalf("error reading domains: %s\n", err)
		}
		if len(domains) != 2 || domains[0] != "example.com" || domains[1] != "example.com:8443" {
			t.Fatalf("unexpected domains %#v\n", domains)
		}
		s.Close()
	}
}
