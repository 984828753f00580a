package fetch

import (
	"bytes"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
)

// Decompress data according to contentEncoding, the input is returned (copied)
// if the encoding is unknown or decoding fails. A positive maxSize caps the
// decoded output, the second return reports whether it was cut short.
func Decompress(data []byte, contentEncoding string, maxSize int) ([]byte, bool) {
	orig := append([]byte(nil), data...)
	if len(data) == 0 {
		return orig, false
	}

	var r io.Reader
	enc := strings.ToLower(strings.TrimSpace(contentEncoding))
	switch {
	case strings.Contains(enc, "gzip"):
		gz, err := gzip.NewReader(bytes.NewReader(orig))
		if err != nil {
			log.Debug().Err(err).Msg("gzip decode failed, keeping raw body")
			return orig, false
		}
		defer gz.Close()
		r = gz
	case strings.Contains(enc, "deflate"):
		fr := flate.NewReader(bytes.NewReader(orig))
		defer fr.Close()
		r = fr
	case strings.Contains(enc, "br"):
		r = brotli.NewReader(bytes.NewReader(orig))
	default:
		log.Debug().Str("encoding", enc).Msg("unsupported content encoding")
		return orig, false
	}

	if maxSize > 0 {
		r = io.LimitReader(r, int64(maxSize)+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		log.Debug().Err(err).Str("encoding", enc).Msg("decode failed, keeping raw body")
		return orig, false
	}
	if maxSize > 0 && len(out) > maxSize {
		return out[:maxSize], true
	}
	return out, false
}
