package mock

import (
	"sync"

	"github.com/PuerkitoBio/goquery"
	"gitlab.com/scanhound/hound"
)

// Checker records the urls it was asked to check
type Checker struct {
	CheckResponseFn func(hctx *hound.Context, resp *hound.Response, doc *goquery.Document) []*hound.Result

	mu      sync.Mutex
	checked []string
}

func (c *Checker) CheckResponse(hctx *hound.Context, resp *hound.Response, doc *goquery.Document) []*hound.Result {
	c.mu.Lock()
	c.checked = append(c.checked, resp.URL)
	c.mu.Unlock()
	return c.CheckResponseFn(hctx, resp, doc)
}

// Checked urls in call order
func (c *Checker) Checked() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.checked...)
}

func MakeMockChecker() *Checker {
	c := &Checker{}
	c.CheckResponseFn = func(hctx *hound.Context, resp *hound.Response, doc *goquery.Document) []*hound.Result {
		return nil
	}
	return c
}
