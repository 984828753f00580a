package crawler

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ParseSitemap returns the text of every <loc> element that is a grandchild
// of the root, which covers both urlset and sitemapindex documents.
func ParseSitemap(data []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	locs := make([]string, 0)
	depth := 0
	inLoc := false
	var loc strings.Builder
	sawRoot := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "parse sitemap")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			sawRoot = true
			if depth == 3 && t.Name.Local == "loc" {
				inLoc = true
				loc.Reset()
			}
		case xml.EndElement:
			if inLoc && depth == 3 {
				if v := strings.TrimSpace(loc.String()); v != "" {
					locs = append(locs, v)
				}
				inLoc = false
			}
			depth--
		case xml.CharData:
			if inLoc {
				loc.Write(t)
			}
		}
	}

	if !sawRoot {
		return nil, errors.New("parse sitemap: no root element")
	}
	return locs, nil
}

// sitemapSeeds fetches sitemap.xml relative to base and returns its in scope
// entries, nil if there is no usable sitemap
func (s *Spider) sitemapSeeds(ctx context.Context, base string, inScope func(string) bool) []string {
	sitemapURL := FixRelativeLink("sitemap.xml", base)
	resp, err := s.hctx.Fetcher.Get(ctx, sitemapURL)
	if err != nil {
		log.Debug().Err(err).Str("url", sitemapURL).Msg("Spider: failed to fetch sitemap")
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		log.Debug().Str("url", sitemapURL).Msg("Spider: No sitemap found. Starting with base URL.")
		return nil
	}

	locs, err := ParseSitemap(resp.Body)
	if err != nil {
		log.Debug().Err(err).Str("url", sitemapURL).Msg("Spider: invalid sitemap")
		return nil
	}
	log.Debug().Int("count", len(locs)).Msg("Spider: Found URLs in sitemap.xml")

	seeds := make([]string, 0, len(locs))
	for _, loc := range locs {
		if inScope(loc) {
			seeds = append(seeds, loc)
		}
	}
	return seeds
}
