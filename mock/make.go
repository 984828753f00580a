package mock

import (
	"fmt"
	"net/http"
	"strings"

	"gitlab.com/scanhound/hound"
)

// MakeMockResponse builds a GET response with raw request/response text
func MakeMockResponse(url string, status int, body string, headers map[string]string) *hound.Response {
	h := make(http.Header)
	for k, v := range headers {
		h.Add(k, v)
	}

	var raw strings.Builder
	fmt.Fprintf(&raw, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status))
	for k, v := range h {
		for _, vv := range v {
			fmt.Fprintf(&raw, "%s: %s\r\n", k, vv)
		}
	}
	raw.WriteString("\r\n")
	raw.WriteString(body)

	return &hound.Response{
		URL:         url,
		Method:      http.MethodGet,
		StatusCode:  status,
		Header:      h,
		Body:        []byte(body),
		RawRequest:  fmt.Sprintf("GET %s HTTP/1.1\r\n\r\n", url),
		RawResponse: raw.String(),
	}
}

// MakeMockResults returns n distinct results for vuln
func MakeMockResults(vuln *hound.Vulnerability, url string, n int) []*hound.Result {
	results := make([]*hound.Result, 0, n)
	for i := 0; i < n; i++ {
		results = append(results, hound.NewResult(fmt.Sprintf("result %d", i+1), vuln, url, hound.TextEvidence(fmt.Sprintf("evidence %d", i+1))))
	}
	return results
}
