package crawler

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var protocolRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z\d+\-.]*://`)

var extensionBlacklist = map[string]struct{}{
	"gzip": {}, "jpg": {}, "jpeg": {}, "gif": {}, "woff": {}, "zip": {},
	"exe": {}, "gz": {}, "pdf": {}, "iso": {}, "pkg": {}, "dmg": {},
}

var unsafeFragments = []string{
	"logoff", "log off", "log_off",
	"logout", "log out", "log_out",
	"delete", "destroy",
}

// FixRelativeLink resolves href against the page it was found on. Protocol
// relative links take the scheme of the page.
func FixRelativeLink(href, pageURL string) string {
	page, err := url.Parse(pageURL)
	if err != nil {
		return href
	}

	if strings.HasPrefix(href, "//") {
		href = page.Scheme + ":" + href
	}

	if protocolRe.MatchString(href) {
		return href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return page.ResolveReference(ref).String()
}

// fileExtension of the last path segment, lowercased, "" if there is none
func fileExtension(link string) string {
	p := link
	if u, err := url.Parse(link); err == nil {
		p = u.Path
	}
	last := path.Base(p)
	if !strings.Contains(last, ".") {
		return ""
	}
	return strings.ToLower(last[strings.LastIndex(last, ".")+1:])
}

func isBlacklisted(ext string) bool {
	_, ok := extensionBlacklist[ext]
	return ok
}

// isUnsafeLink if following the link would likely change server state
func isUnsafeLink(href, text string) bool {
	href = strings.ToLower(href)
	text = strings.ToLower(text)
	for _, frag := range unsafeFragments {
		if strings.Contains(href, frag) || strings.Contains(text, frag) {
			return true
		}
	}
	return false
}
