package hound

import (
	"net/http"
	"time"
)

// Cookie properties
type Cookie struct {
	Name         string    `json:"name"`               // Cookie name.
	Value        string    `json:"value"`              // Cookie value.
	Domain       string    `json:"domain"`             // Cookie domain.
	Path         string    `json:"path"`               // Cookie path.
	Expires      time.Time `json:"expires"`            // Cookie expiration date.
	HTTPOnly     bool      `json:"httpOnly"`           // True if cookie is http-only.
	Secure       bool      `json:"secure"`             // True if cookie is secure.
	Session      bool      `json:"session"`            // True in case of session cookie.
	SameSite     string    `json:"sameSite,omitempty"` // Cookie SameSite type. enum values: Strict, Lax, None
	Raw          string    `json:"raw"`                // Set-Cookie header value as received
	ObservedTime time.Time `json:"time_observed"`      // When the cookie was observed being set
}

// ParseSetCookies reads the Set-Cookie headers of h
func ParseSetCookies(h http.Header, observed time.Time) []*Cookie {
	parsed := (&http.Response{Header: h}).Cookies()
	cookies := make([]*Cookie, 0, len(parsed))
	for _, c := range parsed {
		cookies = append(cookies, &Cookie{
			Name:         c.Name,
			Value:        c.Value,
			Domain:       c.Domain,
			Path:         c.Path,
			Expires:      c.Expires,
			HTTPOnly:     c.HttpOnly,
			Secure:       c.Secure,
			Session:      c.Expires.IsZero() && c.MaxAge == 0,
			SameSite:     sameSiteName(c.SameSite),
			Raw:          c.Raw,
			ObservedTime: observed,
		})
	}
	return cookies
}

// CookieAfterTime returns cookies that were observed after t
func CookieAfterTime(c []*Cookie, t time.Time) []*Cookie {
	cookies := make([]*Cookie, 0)
	for _, v := range c {
		if v.ObservedTime.After(t) {
			cookies = append(cookies, v)
		}
	}
	return cookies
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteNoneMode:
		return "None"
	}
	return ""
}
