package headers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"gitlab.com/scanhound/hound"
	"gitlab.com/scanhound/mock"
	"gitlab.com/scanhound/scanner/plugin/headers"
)

func vulnNames(results []*hound.Result) map[string]int {
	names := make(map[string]int)
	for _, r := range results {
		names[r.Vulnerability.Name]++
	}
	return names
}

func TestCacheHeadersMissing(t *testing.T) {
	p := headers.New(hound.DefaultCatalog())
	hctx := mock.Context(context.Background())
	resp := mock.MakeMockResponse("http://localhost/", 200, "<html></html>", map[string]string{"Content-Type": "text/html; charset=utf-8"})

	names := vulnNames(p.Check(hctx, resp, nil))
	for _, expected := range []string{hound.VulnCacheControlMissing, hound.VulnExpiresMissing, hound.VulnPragmaNoCacheMissing} {
		if names[expected] != 1 {
			t.Fatalf("expected %s to be reported once got %d\n", expected, names[expected])
		}
	}
	if names[hound.VulnCharsetMissing] != 0 {
		t.Fatalf("charset is defined and should not be reported")
	}
}

func TestCacheControlPublic(t *testing.T) {
	p := headers.New(hound.DefaultCatalog())
	hctx := mock.Context(context.Background())
	future := time.Now().Add(48 * time.Hour).UTC().Format(http.TimeFormat)
	resp := mock.MakeMockResponse("http://localhost/", 200, "<html></html>", map[string]string{
		"Content-Type":  "text/html; charset=utf-8",
		"Cache-Control": "public, max-age=3600",
		"Expires":       future,
		"Pragma":        "no-cache",
	})

	results := p.Check(hctx, resp, nil)
	names := vulnNames(results)
	for _, expected := range []string{hound.VulnCacheControlPublic, hound.VulnCacheControlNoCache, hound.VulnCacheControlNoStore, hound.VulnCacheControlPrivate, hound.VulnExpiresFuture} {
		if names[expected] != 1 {
			t.Fatalf("expected %s to be reported once got %d\n", expected, names[expected])
		}
	}
	if names[hound.VulnPragmaNoCacheMissing] != 0 || names[hound.VulnCacheControlMissing] != 0 {
		t.Fatalf("unexpected results: %v\n", names)
	}
	for _, r := range results {
		if r.Vulnerability.Name == hound.VulnCacheControlPublic && r.Message != "Cache-Control: Public: http://localhost/" {
			t.Fatalf("unexpected message: %s\n", r.Message)
		}
	}
}

func TestCacheHeadersSecure(t *testing.T) {
	p := headers.New(hound.DefaultCatalog())
	hctx := mock.Context(context.Background())
	resp := mock.MakeMockResponse("http://localhost/", 200, "<html></html>", map[string]string{
		"Content-Type":  "text/html; charset=utf-8",
		"Cache-Control": "no-cache, no-store, private",
		"Expires":       "Thu, 01 Jan 1970 00:00:00 GMT",
		"Pragma":        "no-cache",
	})

	if results := p.Check(hctx, resp, nil); len(results) != 0 {
		t.Fatalf("expected no results got %v\n", vulnNames(results))
	}
}

func TestCacheHeadersSkipBinary(t *testing.T) {
	p := headers.New(hound.DefaultCatalog())
	hctx := mock.Context(context.Background())
	resp := mock.MakeMockResponse("http://localhost/a.png", 200, "\x89PNG\r\n\x1a\n", map[string]string{"Content-Type": "image/png"})

	if results := p.Check(hctx, resp, nil); len(results) != 0 {
		t.Fatalf("expected no results for binary content got %v\n", vulnNames(results))
	}
}

func TestCharset(t *testing.T) {
	p := headers.New(hound.DefaultCatalog())
	hctx := mock.Context(context.Background())
	resp := mock.MakeMockResponse("http://localhost/", 200, "<html></html>", map[string]string{"Content-Type": "text/html"})

	var charset *hound.Result
	for _, r := range p.Check(hctx, resp, nil) {
		if r.Vulnerability.Name == hound.VulnCharsetMissing {
			charset = r
		}
	}
	if charset == nil {
		t.Fatalf("expected missing charset to be reported")
	}
	if charset.Message != "Charset Not Defined in 'text/html' at http://localhost/" {
		t.Fatalf("unexpected message: %s\n", charset.Message)
	}
	ct, err := charset.Evidence.Get("content-type")
	if err != nil || ct != "text/html" {
		t.Fatalf("expected content-type evidence got %v %v\n", ct, err)
	}
}

func TestContentTypeMissing(t *testing.T) {
	p := headers.New(hound.DefaultCatalog())
	hctx := mock.Context(context.Background())

	resp := mock.MakeMockResponse("http://localhost/", 200, "<html></html>", nil)
	names := vulnNames(p.Check(hctx, resp, nil))
	if names[hound.VulnContentTypeMissing] != 1 {
		t.Fatalf("expected missing content type to be reported")
	}

	empty := mock.MakeMockResponse("http://localhost/empty", 204, "", nil)
	names = vulnNames(p.Check(hctx, empty, nil))
	if names[hound.VulnContentTypeMissing] != 0 {
		t.Fatalf("empty bodies should not be checked for content type")
	}
}
