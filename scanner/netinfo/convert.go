package netinfo

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Convert rewrites ip2asn rows (start_ip end_ip asn country desc) into the
// integer start<TAB>end<TAB>"country - desc" layout. Returns the rows written.
func Convert(r io.Reader, w io.Writer) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	bw := bufio.NewWriter(w)

	count := 0
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.SplitN(text, "\t", 5)
		if len(parts) < 5 {
			log.Debug().Str("line", text).Msg("skipping malformed ip2asn line")
			continue
		}
		rng, err := parseASNRow(parts)
		if err != nil {
			log.Debug().Err(err).Str("line", text).Msg("skipping ip2asn line")
			continue
		}
		if _, err := bw.WriteString(rng.start.String() + "\t" + rng.end.String() + "\t" + rng.desc + "\n"); err != nil {
			return count, errors.Wrap(err, "failed to write range")
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, errors.Wrap(err, "failed to read ip2asn data")
	}
	return count, errors.Wrap(bw.Flush(), "failed to flush ranges")
}
