package scanner_test

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"gitlab.com/scanhound/hound"
	"gitlab.com/scanhound/mock"
	"gitlab.com/scanhound/scanner"
	"gitlab.com/scanhound/scanner/report"
	"gitlab.com/scanhound/store"
)

func testServer(router *gin.Engine) (string, *http.Server) {
	testListener, _ := net.Listen("tcp", ":0")
	_, testServerPort, _ := net.SplitHostPort(testListener.Addr().String())
	srv := &http.Server{
		Addr:    testListener.Addr().String(),
		Handler: router,
	}
	go func() {
		if err := srv.Serve(testListener); err != http.ErrServerClosed {
			log.Fatalf("Serve(): %s", err)
		}
	}()
	return fmt.Sprintf("http://localhost:%s/", testServerPort), srv
}

func TestScanner(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html", []byte(`<html><body><a href="/next">next</a></body></html>`))
	})
	router.GET("/next", func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, private")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<html><body>done</body></html>"))
	})

	target, srv := testServer(router)
	ctx := context.Background()
	defer srv.Shutdown(ctx)

	dataPath := t.TempDir()
	cfg := hound.DefaultConfig()
	cfg.URL = target
	cfg.DataPath = dataPath
	cfg.Workers = 2
	cfg.Checkpoint = true
	cfg.RecordLinks = true

	out := &mock.Output{}
	reporter := report.New(hound.DefaultCatalog(), report.WithOutput(out))
	if err := reporter.Init(dataPath); err != nil {
		t.Fatalf("error initializing reporter: %s\n", err)
	}

	s := scanner.New(cfg, reporter)
	if err := s.Init(ctx); err != nil {
		t.Fatalf("error initializing scanner: %s\n", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("error scanning: %s\n", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("error stopping scanner: %s\n", err)
	}

	links, ok := reporter.Data("localhost")["spider_links"].([]string)
	if !ok || len(links) != 1 || links[0] != target+"next" {
		t.Fatalf("expected spider_links to hold the next page got %#v\n", reporter.Data("localhost"))
	}

	issues := reporter.Issues("localhost")
	if len(issues[hound.VulnCharsetMissing]) != 1 {
		t.Fatalf("expected the charset issue on the index page got %v\n", issues)
	}
	if len(issues[hound.VulnCacheControlMissing]) != 1 {
		t.Fatalf("expected the cache control issue on the index page got %v\n", issues)
	}
	if out.Total() == 0 {
		t.Fatalf("expected issues to be displayed")
	}

	findings := store.NewFindingStore(filepath.Join(dataPath, "findings"))
	if err := findings.Init(); err != nil {
		t.Fatalf("error reopening finding store: %s\n", err)
	}
	defer findings.Close()
	records, err := findings.Issues("localhost")
	if err != nil {
		t.Fatalf("error reading checkpointed issues: %s\n", err)
	}
	total := 0
	for _, list := range issues {
		total += len(list)
	}
	if len(records) != total {
		t.Fatalf("expected %d checkpointed issues got %d\n", total, len(records))
	}
}

func TestScannerInvalidURL(t *testing.T) {
	cfg := hound.DefaultConfig()
	cfg.URL = "not a url"
	s := scanner.New(cfg, report.New(nil, report.WithOutput(&mock.Output{})))
	if err := s.Init(context.Background()); err == nil {
		t.Fatalf("expected error for invalid url")
	}
}

func TestScannerIgnoredHost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	requested := make(chan string, 10)
	router.GET("/", func(c *gin.Context) {
		requested <- c.Request.URL.Path
		c.Data(http.StatusOK, "text/html", []byte(`<html><body><a href="/next">next</a></body></html>`))
	})
	router.GET("/next", func(c *gin.Context) {
		requested <- c.Request.URL.Path
		c.Data(http.StatusOK, "text/html", []byte("<html><body>done</body></html>"))
	})

	target, srv := testServer(router)
	ctx := context.Background()
	defer srv.Shutdown(ctx)

	cfg := hound.DefaultConfig()
	cfg.URL = target
	cfg.DataPath = t.TempDir()
	cfg.Workers = 2
	cfg.IgnoredURLs = []string{"localhost"}

	reporter := report.New(hound.DefaultCatalog(), report.WithOutput(&mock.Output{}))
	s := scanner.New(cfg, reporter)
	if err := s.Init(ctx); err != nil {
		t.Fatalf("error initializing scanner: %s\n", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("error scanning: %s\n", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("error stopping scanner: %s\n", err)
	}
	close(requested)

	paths := make([]string, 0)
	for p := range requested {
		paths = append(paths, p)
	}
	if len(paths) != 1 || paths[0] != "/" {
		t.Fatalf("expected only the seed to be fetched for an ignored host got %v\n", paths)
	}
	if links, _ := reporter.Data("localhost")["spider_links"].([]string); len(links) != 0 {
		t.Fatalf("expected no spider links for an ignored host got %v\n", links)
	}
}
