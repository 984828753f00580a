package fetch_test

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"gitlab.com/scanhound/scanner/fetch"
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
	return fmt.Sprintf("http://localhost:%s", testServerPort), srv
}

func TestClientGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", func(c *gin.Context) {
		c.Header("Set-Cookie", "sid=1; Path=/")
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<html><body>hi</body></html>"))
	})
	router.GET("/gz", func(c *gin.Context) {
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		w.Write([]byte("compressed body"))
		w.Close()
		c.Header("Content-Encoding", "gzip")
		c.Data(http.StatusOK, "text/plain", buf.Bytes())
	})
	router.GET("/redirect", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/")
	})
	router.GET("/slow", func(c *gin.Context) {
		time.Sleep(2 * time.Second)
		c.String(http.StatusOK, "late")
	})

	target, srv := testServer(router)
	defer srv.Shutdown(context.Background())

	cfg := fetch.DefaultConfig()
	cfg.Timeout = 500 * time.Millisecond
	client := fetch.New(cfg)
	ctx := context.Background()

	resp, err := client.Get(ctx, target+"/")
	if err != nil {
		t.Fatalf("error getting page: %s\n", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Text() != "<html><body>hi</body></html>" {
		t.Fatalf("unexpected response %d %s\n", resp.StatusCode, resp.Text())
	}
	if !resp.IsText() || resp.ContentType() != "text/html" {
		t.Fatalf("expected html content type got %s\n", resp.ContentType())
	}
	if !strings.HasPrefix(resp.RawRequest, "GET / HTTP/1.1") {
		t.Fatalf("unexpected raw request %s\n", resp.RawRequest)
	}
	if !strings.HasPrefix(resp.RawResponse, "HTTP/1.1 200 OK") || !strings.HasSuffix(resp.RawResponse, "</html>") {
		t.Fatalf("unexpected raw response %s\n", resp.RawResponse)
	}
	if cookies := resp.Cookies(); len(cookies) != 1 || cookies[0].Name != "sid" {
		t.Fatalf("expected sid cookie got %#v\n", cookies)
	}

	resp, err = client.Get(ctx, target+"/gz")
	if err != nil {
		t.Fatalf("error getting gz page: %s\n", err)
	}
	if resp.Text() != "compressed body" {
		t.Fatalf("expected decompressed body got %q\n", resp.Text())
	}

	resp, err = client.Get(ctx, target+"/redirect")
	if err != nil {
		t.Fatalf("error getting redirect: %s\n", err)
	}
	if resp.StatusCode != http.StatusFound || resp.Location() != target+"/" {
		t.Fatalf("expected redirect not to be followed, got %d %s\n", resp.StatusCode, resp.Location())
	}

	if _, err := client.Get(ctx, target+"/slow"); err == nil {
		t.Fatalf("expected timeout")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := client.Get(cancelled, target+"/"); err != context.Canceled {
		t.Fatalf("expected context canceled got %v\n", err)
	}
}

func TestDecompress(t *testing.T) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	w.Write([]byte("brotli body"))
	w.Close()

	if out, _ := fetch.Decompress(buf.Bytes(), "br", 0); string(out) != "brotli body" {
		t.Fatalf("unexpected brotli output %q\n", out)
	}
	if out, _ := fetch.Decompress([]byte("plain"), "gzip", 0); string(out) != "plain" {
		t.Fatalf("expected raw body on decode failure got %q\n", out)
	}
	if out, _ := fetch.Decompress([]byte("plain"), "compress", 0); string(out) != "plain" {
		t.Fatalf("expected raw body for unknown encoding got %q\n", out)
	}
}

func TestDecompressBounded(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	w.Write(make([]byte, 4*1024*1024))
	w.Close()

	out, truncated := fetch.Decompress(buf.Bytes(), "gzip", 64*1024)
	if !truncated || len(out) != 64*1024 {
		t.Fatalf("expected output cut at 65536 bytes got %d (truncated %v)\n", len(out), truncated)
	}

	out, truncated = fetch.Decompress(buf.Bytes(), "gzip", 4*1024*1024)
	if truncated || len(out) != 4*1024*1024 {
		t.Fatalf("expected full output at the limit got %d (truncated %v)\n", len(out), truncated)
	}
}

func TestClientGetBoundsDecodedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	w.Write(make([]byte, 8*1024*1024))
	w.Close()

	router := gin.New()
	router.GET("/bomb", func(c *gin.Context) {
		c.Header("Content-Encoding", "gzip")
		c.Data(http.StatusOK, "text/html", buf.Bytes())
	})
	target, srv := testServer(router)
	defer srv.Shutdown(context.Background())

	cfg := fetch.DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.MaxBodySize = 1024 * 1024
	resp, err := fetch.New(cfg).Get(context.Background(), target+"/bomb")
	if err != nil {
		t.Fatalf("error getting page: %s\n", err)
	}
	if !resp.Truncated || len(resp.Body) != cfg.MaxBodySize {
		t.Fatalf("expected body cut at %d bytes got %d (truncated %v)\n", cfg.MaxBodySize, len(resp.Body), resp.Truncated)
	}
	if len(resp.RawResponse) > cfg.MaxBodySize+4096 {
		t.Fatalf("raw response holds %d bytes, expected it bounded by the body limit\n", len(resp.RawResponse))
	}
}
