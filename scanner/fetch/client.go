package fetch

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"gitlab.com/scanhound/hound"
)

// Config for the fetch client
type Config struct {
	Timeout       time.Duration // per request timeout
	UserAgent     string
	ProxyURL      string // socks5:// or http:// upstream proxy
	SkipTLSVerify bool
	MaxBodySize   int
	Headers       map[string]string
}

// DefaultConfig for crawling
func DefaultConfig() *Config {
	return &Config{
		Timeout:       10 * time.Second,
		UserAgent:     "Mozilla/5.0 (compatible; scanhound/0.1)",
		SkipTLSVerify: true,
		MaxBodySize:   10 * 1024 * 1024,
	}
}

// Client makes single GET requests and never follows redirects
type Client struct {
	client  *fasthttp.Client
	timeout time.Duration
	ua      string
	headers map[string]string
	maxBody int
}

// New fetch client
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	fastClient := &fasthttp.Client{
		Name:                cfg.UserAgent,
		ReadTimeout:         cfg.Timeout,
		WriteTimeout:        cfg.Timeout,
		MaxIdleConnDuration: 30 * time.Second,
		MaxResponseBodySize: cfg.MaxBodySize,
		ReadBufferSize:      16384,
		TLSConfig: &tls.Config{
			InsecureSkipVerify: cfg.SkipTLSVerify,
		},
		DisablePathNormalizing:   true,
		NoDefaultUserAgentHeader: true,
	}

	if cfg.ProxyURL != "" {
		if dial := DialerFactory(cfg.ProxyURL, 5*time.Second); dial != nil {
			fastClient.Dial = dial
		}
	}

	return &Client{
		client:  fastClient,
		timeout: cfg.Timeout,
		ua:      cfg.UserAgent,
		headers: cfg.Headers,
		maxBody: cfg.MaxBodySize,
	}
}

// Get rawURL, the deadline is the earlier of the ctx deadline and the client timeout
func (c *Client) Get(ctx context.Context, rawURL string) (*hound.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rawURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(err, "request failed")
	}

	header := make(http.Header)
	resp.Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})

	body := resp.Body()
	truncated := false
	if enc := string(resp.Header.Peek(fasthttp.HeaderContentEncoding)); enc != "" {
		body, truncated = Decompress(body, enc, c.maxBody)
		if truncated {
			log.Warn().Str("url", rawURL).Int("max", c.maxBody).Msg("decoded body exceeds max body size, truncated")
		}
	} else {
		body = append([]byte(nil), body...)
	}

	response := &hound.Response{
		URL:         rawURL,
		Method:      fasthttp.MethodGet,
		StatusCode:  resp.StatusCode(),
		Header:      header,
		Body:        body,
		RawRequest:  req.String(),
		RawResponse: rawResponse(resp.Header.String(), body),
		Duration:    time.Since(start),
		Truncated:   truncated,
	}
	log.Debug().Str("url", rawURL).Int("status", response.StatusCode).Int("size", len(body)).Msg("fetched")
	return response, nil
}

func rawResponse(header string, body []byte) string {
	var sb strings.Builder
	sb.Grow(len(header) + len(body))
	sb.WriteString(header)
	sb.Write(body)
	return sb.String()
}
