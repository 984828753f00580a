package crawler

import (
	"bytes"
	"io"
	"mime"

	"github.com/rs/zerolog/log"
	"gitlab.com/scanhound/hound"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// bodyReader returns the body transcoded to UTF-8 using the charset of the
// Content-Type header. Unknown charsets are read as is.
func bodyReader(resp *hound.Response) io.Reader {
	raw := bytes.NewReader(resp.Body)
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || params["charset"] == "" {
		return raw
	}

	enc, err := htmlindex.Get(params["charset"])
	if err != nil {
		log.Debug().Err(err).Str("charset", params["charset"]).Str("url", resp.URL).Msg("Spider: unknown charset")
		return raw
	}
	if enc == unicode.UTF8 {
		return raw
	}
	return transform.NewReader(raw, enc.NewDecoder())
}
