package hound

import (
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Response of a single request made while crawling
type Response struct {
	URL         string
	Method      string
	StatusCode  int
	Header      http.Header
	Body        []byte
	RawRequest  string
	RawResponse string
	Duration    time.Duration
	Truncated   bool // body was cut at the client's max body size
}

// RequestURL the response was returned for
func (r *Response) RequestURL() string {
	return r.URL
}

// Text body
func (r *Response) Text() string {
	return string(r.Body)
}

// ContentType media type without parameters, lowercased
func (r *Response) ContentType() string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	}
	return mediaType
}

// IsText if the body can be parsed as markup
func (r *Response) IsText() bool {
	if len(r.Body) == 0 {
		return false
	}
	ct := r.ContentType()
	if ct == "" {
		ct = http.DetectContentType(r.Body)
		ct = strings.Split(ct, ";")[0]
	}
	return strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "html") ||
		strings.Contains(ct, "xml")
}

// Location header resolved against the response url, empty if none
func (r *Response) Location() string {
	loc := strings.TrimSpace(r.Header.Get("Location"))
	if loc == "" {
		return ""
	}
	base, err := url.Parse(r.URL)
	if err != nil {
		return loc
	}
	ref, err := url.Parse(loc)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// IsRedirect status code
func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// IsSecure if the request was made over https
func (r *Response) IsSecure() bool {
	return strings.HasPrefix(strings.ToLower(r.URL), "https://")
}

// Cookies set by this response
func (r *Response) Cookies() []*Cookie {
	return ParseSetCookies(r.Header, time.Now())
}
