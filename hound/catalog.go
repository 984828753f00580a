package hound

import (
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrVulnerabilityExists returned when registering a name already in the catalog
var ErrVulnerabilityExists = errors.New("vulnerability already registered")

// Built in vulnerability names used by the crawler and passive plugins
const (
	VulnInsecureLink              = "http_insecure_link"
	VulnCacheControlPublic        = "http_cache_control_public"
	VulnCacheControlMissing       = "http_cache_control_missing"
	VulnCacheControlNoCache       = "http_cache_control_no_cache_missing"
	VulnCacheControlNoStore       = "http_cache_control_no_store_missing"
	VulnCacheControlPrivate       = "http_cache_control_private_missing"
	VulnExpiresMissing            = "http_expires_header_missing"
	VulnExpiresFuture             = "http_expires_header_future"
	VulnPragmaNoCacheMissing      = "http_pragma_no_cache_missing"
	VulnContentTypeMissing        = "http_content_type_missing"
	VulnCharsetMissing            = "http_charset_missing"
	VulnCookieMissingSecureFlag   = "cookie_missing_secure_flag"
	VulnCookieMissingHTTPOnlyFlag = "cookie_missing_httponly_flag"
)

// Catalog of known vulnerabilities keyed by name
type Catalog struct {
	mu    sync.RWMutex
	vulns map[string]*Vulnerability
}

// NewCatalog returns an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{vulns: make(map[string]*Vulnerability)}
}

// Register v. If the name already exists the existing entry is returned along with
// ErrVulnerabilityExists and v is not stored.
func (c *Catalog) Register(v *Vulnerability) (*Vulnerability, error) {
	if v == nil || v.Name == "" {
		return nil, errors.New("vulnerability requires a name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.vulns[v.Name]; ok {
		return existing, errors.Wrap(ErrVulnerabilityExists, v.Name)
	}
	if v.ID == "" {
		v.ID = "SH." + strings.ToUpper(v.Name)
	}
	if v.Severity == 0 {
		v.Severity = SeverityLow
	}
	c.vulns[v.Name] = v
	return v, nil
}

// MustRegister panics if v can not be registered
func (c *Catalog) MustRegister(v *Vulnerability) *Vulnerability {
	reg, err := c.Register(v)
	if err != nil {
		panic(err)
	}
	return reg
}

// Add registers a vulnerability by name, severity and description
func (c *Catalog) Add(name string, severity Severity, description string) (*Vulnerability, error) {
	return c.Register(&Vulnerability{Name: name, Severity: severity, Description: description})
}

// Lookup a vulnerability by name
func (c *Catalog) Lookup(name string) (*Vulnerability, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vulns[name]
	return v, ok
}

// Get a vulnerability that must exist
func (c *Catalog) Get(name string) *Vulnerability {
	v, ok := c.Lookup(name)
	if !ok {
		panic("unknown vulnerability: " + name)
	}
	return v
}

// All entries sorted by name
func (c *Catalog) All() []*Vulnerability {
	c.mu.RLock()
	defer c.mu.RUnlock()
	all := make([]*Vulnerability, 0, len(c.vulns))
	for _, v := range c.vulns {
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Len of the catalog
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vulns)
}

// LoadCatalogYAML registers every entry of a yaml list into c. The load stops at
// the first duplicate or invalid entry.
func LoadCatalogYAML(r io.Reader, c *Catalog) error {
	var entries []*Vulnerability
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if err == io.EOF {
			return nil
		}
		return errors.Wrap(err, "failed to decode catalog")
	}

	for _, v := range entries {
		if _, err := c.Register(v); err != nil {
			return err
		}
	}
	return nil
}

// DefaultCatalog returns a catalog holding the built in vulnerabilities
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.MustRegister(&Vulnerability{
		Name:        VulnInsecureLink,
		Severity:    SeverityLow,
		Description: "A page served over HTTPS links to an HTTP resource outside of the scan scope.",
		DisplayAll:  true,
	})
	c.MustRegister(&Vulnerability{
		Name:        VulnCacheControlPublic,
		Severity:    SeverityLow,
		Description: "Cache-Control allows the response to be stored by shared caches.",
	})
	c.MustRegister(&Vulnerability{
		Name:        VulnCacheControlMissing,
		Severity:    SeverityLow,
		Description: "The Cache-Control header is missing.",
	})
	c.MustRegister(&Vulnerability{
		Name:        VulnCacheControlNoCache,
		Severity:    SeverityLow,
		Description: "Cache-Control does not include no-cache.",
	})
	c.MustRegister(&Vulnerability{
		Name:        VulnCacheControlNoStore,
		Severity:    SeverityLow,
		Description: "Cache-Control does not include no-store.",
	})
	c.MustRegister(&Vulnerability{
		Name:        VulnCacheControlPrivate,
		Severity:    SeverityLow,
		Description: "Cache-Control does not include private.",
	})
	c.MustRegister(&Vulnerability{
		Name:        VulnExpiresMissing,
		Severity:    SeverityLow,
		Description: "The Expires header is missing.",
	})
	c.MustRegister(&Vulnerability{
		Name:        VulnExpiresFuture,
		Severity:    SeverityLow,
		Description: "The Expires header is set to a date in the future.",
	})
	c.MustRegister(&Vulnerability{
		Name:        VulnPragmaNoCacheMissing,
		Severity:    SeverityLow,
		Description: "The Pragma header does not include no-cache.",
	})
	c.MustRegister(&Vulnerability{
		Name:        VulnContentTypeMissing,
		Severity:    SeverityLow,
		Description: "The Content-Type header is missing.",
	})
	c.MustRegister(&Vulnerability{
		Name:        VulnCharsetMissing,
		Severity:    SeverityLow,
		Description: "The Content-Type header does not specify a charset.",
	})
	c.MustRegister(&Vulnerability{
		Name:        VulnCookieMissingSecureFlag,
		Severity:    SeverityMedium,
		Description: "A cookie set over HTTPS is missing the Secure flag.",
		DisplayAll:  true,
	})
	c.MustRegister(&Vulnerability{
		Name:        VulnCookieMissingHTTPOnlyFlag,
		Severity:    SeverityLow,
		Description: "A cookie is missing the HttpOnly flag.",
		DisplayAll:  true,
	})
	return c
}
