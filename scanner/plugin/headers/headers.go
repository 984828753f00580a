package headers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"gitlab.com/scanhound/hound"
)

type Plugin struct {
	catalog *hound.Catalog
}

func New(catalog *hound.Catalog) *Plugin {
	return &Plugin{catalog: catalog}
}

// Name of the plugin
func (h *Plugin) Name() string {
	return "HeaderPlugin"
}

// ID unique to scanhound
func (h *Plugin) ID() string {
	return "SH-P-0002"
}

// Config for this plugin
func (h *Plugin) Config() *hound.PluginConfig {
	return &hound.PluginConfig{Class: "passive", Plugin: "headers", Language: "Go", ID: 2}
}

// Options for the plugin manager to take into consideration when dispatching
func (h *Plugin) Options() *hound.PluginOpts {
	return &hound.PluginOpts{ExecutionType: hound.ExecAlways}
}

// Check cache and content type headers. Cache headers only matter for markup.
func (h *Plugin) Check(hctx *hound.Context, resp *hound.Response, doc *goquery.Document) []*hound.Result {
	results := make([]*hound.Result, 0)
	if doc != nil || resp.IsText() {
		results = append(results, h.cacheHeaders(resp)...)
	}
	return append(results, h.charset(resp)...)
}

// result gets its own evidence, the reporter may strip or spill it
func (h *Plugin) result(resp *hound.Response, custom map[string]interface{}, msg, vuln string) *hound.Result {
	return hound.ResultFromEvidence(hound.EvidenceFromResponse(resp, custom), msg, h.catalog.Get(vuln))
}

func (h *Plugin) cacheHeaders(resp *hound.Response) []*hound.Result {
	results := make([]*hound.Result, 0)
	url := resp.URL
	if values, ok := resp.Header["Cache-Control"]; ok {
		cc := strings.ToLower(strings.Join(values, ", "))
		if strings.Contains(cc, "public") {
			results = append(results, h.result(resp, nil, fmt.Sprintf("Cache-Control: Public: %s", url), hound.VulnCacheControlPublic))
		}
		if !strings.Contains(cc, "no-cache") {
			results = append(results, h.result(resp, nil, fmt.Sprintf("Cache-Control: no-cache Not Found: %s", url), hound.VulnCacheControlNoCache))
		}
		if !strings.Contains(cc, "no-store") {
			results = append(results, h.result(resp, nil, fmt.Sprintf("Cache-Control: no-store Not Found: %s", url), hound.VulnCacheControlNoStore))
		}
		if !strings.Contains(cc, "private") {
			results = append(results, h.result(resp, nil, fmt.Sprintf("Cache-Control: private Not Found: %s", url), hound.VulnCacheControlPrivate))
		}
	} else {
		results = append(results, h.result(resp, nil, fmt.Sprintf("Cache-Control Header Not Found: %s", url), hound.VulnCacheControlMissing))
	}

	if expires := resp.Header.Get("Expires"); expires == "" {
		results = append(results, h.result(resp, nil, fmt.Sprintf("Expires Header Not Found: %s", url), hound.VulnExpiresMissing))
	} else if t, err := http.ParseTime(expires); err != nil {
		log.Debug().Err(err).Str("expires", expires).Msg("unable to parse Expires header")
	} else if t.After(time.Now()) {
		results = append(results, h.result(resp, nil, fmt.Sprintf("Expires Header - Future Dated (%s): %s", expires, url), hound.VulnExpiresFuture))
	}

	if !strings.Contains(resp.Header.Get("Pragma"), "no-cache") {
		results = append(results, h.result(resp, nil, fmt.Sprintf("Pragma: no-cache Not Found: %s", url), hound.VulnPragmaNoCacheMissing))
	}
	return results
}

func (h *Plugin) charset(resp *hound.Response) []*hound.Result {
	if len(resp.Body) == 0 {
		return nil
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		msg := fmt.Sprintf("Content-Type Missing: %s (%s - %d)", resp.URL, resp.Method, resp.StatusCode)
		return []*hound.Result{h.result(resp, nil, msg, hound.VulnContentTypeMissing)}
	}

	lowered := strings.ToLower(ct)
	if !strings.Contains(lowered, "charset") && strings.Contains(lowered, "text/html") {
		msg := fmt.Sprintf("Charset Not Defined in '%s' at %s", ct, resp.URL)
		custom := map[string]interface{}{"content-type": lowered}
		return []*hound.Result{h.result(resp, custom, msg, hound.VulnCharsetMissing)}
	}
	return nil
}
