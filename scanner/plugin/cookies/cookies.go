package cookies

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
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
	return "CookiePlugin"
}

// ID unique to scanhound
func (h *Plugin) ID() string {
	return "SH-P-0001"
}

// Config for this plugin
func (h *Plugin) Config() *hound.PluginConfig {
	return &hound.PluginConfig{Class: "passive", Plugin: "cookies", Language: "Go", ID: 1}
}

// Options for the plugin manager to take into consideration when dispatching
func (h *Plugin) Options() *hound.PluginOpts {
	return &hound.PluginOpts{ExecutionType: hound.ExecAlways}
}

// Check Set-Cookie flags
func (h *Plugin) Check(hctx *hound.Context, resp *hound.Response, doc *goquery.Document) []*hound.Result {
	results := make([]*hound.Result, 0)
	for _, c := range resp.Cookies() {
		custom := map[string]interface{}{"cookie": c.Raw}
		if resp.IsSecure() && !c.Secure {
			results = append(results, hound.ResultFromEvidence(hound.EvidenceFromResponse(resp, custom),
				fmt.Sprintf("Cookie Missing Secure Flag: %s", c.Raw), h.catalog.Get(hound.VulnCookieMissingSecureFlag)))
		}
		if !c.HTTPOnly {
			results = append(results, hound.ResultFromEvidence(hound.EvidenceFromResponse(resp, custom),
				fmt.Sprintf("Cookie Missing HttpOnly Flag: %s", c.Raw), h.catalog.Get(hound.VulnCookieMissingHTTPOnlyFlag)))
		}
	}
	return results
}
