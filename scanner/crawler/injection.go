package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gitlab.com/scanhound/hound"
)

// FindInjectionPoints returns the query parameters of the request and the
// inputs of every form on the page
func FindInjectionPoints(pageURL string, resp *hound.Response, doc *goquery.Document) []*hound.InjectionPoint {
	points := make([]*hound.InjectionPoint, 0)

	if requestURL := resp.RequestURL(); requestURL != "" {
		if u, err := url.Parse(requestURL); err == nil && u.RawQuery != "" {
			for _, param := range strings.Split(u.RawQuery, "&") {
				name, value, ok := strings.Cut(param, "=")
				if !ok {
					continue
				}
				points = append(points, &hound.InjectionPoint{URL: pageURL, Field: name, Method: resp.Method, Value: value})
			}
		}
	}

	if doc == nil {
		return points
	}

	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		method := "GET"
		if m, ok := form.Attr("method"); ok {
			method = strings.ToUpper(m)
		}

		action, _ := form.Attr("action")
		if action == "" {
			action = resp.RequestURL()
		}
		action = FixRelativeLink(action, pageURL)

		form.Find("input").Each(func(_ int, input *goquery.Selection) {
			name, _ := input.Attr("name")
			value, _ := input.Attr("value")
			points = append(points, &hound.InjectionPoint{URL: action, Field: name, Method: method, Value: value})
		})
	})
	return points
}
