package hound_test

import (
	"os"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"gitlab.com/scanhound/hound"
)

func strPtr(s string) *string {
	return &s
}

func TestEvidenceEqual(t *testing.T) {
	custom := map[string]interface{}{"e": "x", "list": []string{"a", "b"}}
	e1 := hound.NewEvidence("http://example.com/", strPtr("GET / HTTP/1.1"), strPtr("HTTP/1.1 200 OK"), custom)
	e2 := hound.NewEvidence("http://example.com/", strPtr("GET / HTTP/1.1"), strPtr("HTTP/1.1 200 OK"), custom)

	if !e1.Equal(e2) {
		t.Fatalf("expected evidence to be equal")
	}
	if e1.Hash() != e2.Hash() {
		t.Fatalf("expected hashes to match %d != %d\n", e1.Hash(), e2.Hash())
	}

	e3 := hound.NewEvidence("http://example.com/", strPtr("GET / HTTP/1.1"), nil, custom)
	if e1.Equal(e3) {
		t.Fatalf("evidence without a response must not equal one with")
	}

	e4 := hound.NewEvidence("http://example.com/", strPtr("GET / HTTP/1.1"), strPtr("HTTP/1.1 200 OK"), map[string]interface{}{"e": "y"})
	if e1.Equal(e4) {
		t.Fatalf("evidence with different custom fields must not be equal")
	}
}

func TestEvidenceGet(t *testing.T) {
	e := hound.NewEvidence("http://example.com/", strPtr("req"), nil, map[string]interface{}{"status": 200})

	if v, err := e.Get(hound.KeyURL); err != nil || v != "http://example.com/" {
		t.Fatalf("expected url got %v %v\n", v, err)
	}
	if v, err := e.Get(hound.KeyRequest); err != nil || v != "req" {
		t.Fatalf("expected request got %v %v\n", v, err)
	}
	if v, err := e.Get(hound.KeyResponse); err != nil || v != nil {
		t.Fatalf("expected nil response got %v %v\n", v, err)
	}
	if v, err := e.Get(hound.KeyRequestID); err != nil || v != hound.Digest("req") {
		t.Fatalf("expected request digest got %v %v\n", v, err)
	}
	if _, err := e.Get(hound.KeyResponseID); !errors.Is(err, hound.ErrKeyNotFound) {
		t.Fatalf("expected key not found for response id, got %v\n", err)
	}
	if v, err := e.Get("status"); err != nil || v != 200 {
		t.Fatalf("expected custom field got %v %v\n", v, err)
	}
	if _, err := e.Get("missing"); !errors.Is(err, hound.ErrKeyNotFound) {
		t.Fatalf("expected key not found, got %v\n", err)
	}

	if len(hound.Digest("req")) != 32 {
		t.Fatalf("expected 16 byte hex digest")
	}
}

func TestEvidenceSetResetsDigest(t *testing.T) {
	e := hound.NewEvidence("http://example.com/", strPtr("one"), nil, nil)
	first, _ := e.RequestID()
	e.Set(hound.KeyRequest, "two")
	second, _ := e.RequestID()
	if first == second {
		t.Fatalf("expected digest to change after setting request")
	}
	if second != hound.Digest("two") {
		t.Fatalf("unexpected digest %s\n", second)
	}
}

func TestEvidenceCacheToFile(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("A", hound.DefaultSpillThreshold+1)
	e := hound.NewEvidence("http://example.com/", strPtr(big), strPtr("small"), nil)
	before := hound.NewEvidence("http://example.com/", strPtr(big), strPtr("small"), nil)

	if err := e.CacheToFile(dir, 0); err != nil {
		t.Fatalf("error caching to file: %s\n", err)
	}
	// idempotent
	if err := e.CacheToFile(dir, 0); err != nil {
		t.Fatalf("error caching to file twice: %s\n", err)
	}

	if inline, ok := e.Inline(hound.KeyRequest); !ok || inline != "" {
		t.Fatalf("expected in memory request to be empty, got %d bytes\n", len(inline))
	}
	if e.RequestState() != hound.EvidenceOnDisk {
		t.Fatalf("expected request on disk")
	}
	if e.ResponseState() != hound.EvidenceInline {
		t.Fatalf("expected small response to stay inline")
	}

	reqFile, resFile := e.SpillFiles()
	if resFile != "" {
		t.Fatalf("response must not be spilled")
	}
	data, err := os.ReadFile(reqFile)
	if err != nil {
		t.Fatalf("error reading spill file: %s\n", err)
	}
	if string(data) != big {
		t.Fatalf("spill file does not hold the original request")
	}
	if req, ok := e.Request(); !ok || req != big {
		t.Fatalf("expected reads to go to the spill file")
	}

	if !e.Equal(before) || e.Hash() != before.Hash() {
		t.Fatalf("spilling must not change equality or hash")
	}

	e.PurgeFiles()
	e.PurgeFiles()
	if _, err := os.Stat(reqFile); !os.IsNotExist(err) {
		t.Fatalf("expected spill file to be removed")
	}
	if reqFile, _ = e.SpillFiles(); reqFile != "" {
		t.Fatalf("expected spill pointer to be reset")
	}
}

func TestEvidenceMissingSpillFile(t *testing.T) {
	big := strings.Repeat("B", 100)
	e := hound.NewEvidence("http://example.com/", strPtr(big), nil, nil)
	if err := e.CacheToFile(t.TempDir(), 10); err != nil {
		t.Fatalf("error caching to file: %s\n", err)
	}
	reqFile, _ := e.SpillFiles()
	os.Remove(reqFile)

	if _, ok := e.Request(); ok {
		t.Fatalf("expected missing spill file to read as null")
	}
	if v, err := e.Get(hound.KeyRequest); err != nil || v != nil {
		t.Fatalf("expected nil request got %v %v\n", v, err)
	}
	e.PurgeFiles()
}

func TestEvidenceStrip(t *testing.T) {
	e := hound.NewEvidence("http://example.com/", strPtr("req"), strPtr("res"), nil)
	other := hound.NewEvidence("http://example.com/", strPtr("req"), strPtr("res"), nil)
	e.Strip()

	if req, _ := e.Request(); req != "" {
		t.Fatalf("expected stripped request, got %s\n", req)
	}
	if id, ok := e.ResponseID(); !ok || id != hound.Digest("res") {
		t.Fatalf("expected response digest to survive strip")
	}
	if !e.Equal(other) {
		t.Fatalf("stripped evidence must still equal the original")
	}
}
