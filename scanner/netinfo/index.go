package netinfo

import (
	"bufio"
	"io"
	"net/netip"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Unknown is returned for addresses not covered by any range
const Unknown = "Unknown"

// ErrInvalidAddress returned for input that is not an IPv4 or IPv6 address
var ErrInvalidAddress = errors.New("invalid address")

type ipRange struct {
	start uint128
	end   uint128
	desc  string
}

// Index of IP ranges to network descriptions, loaded lazily from a flat file
type Index struct {
	path string

	mu     sync.RWMutex
	ranges []ipRange
	loaded bool

	cacheMu sync.Mutex
	cache   map[string]string
}

// New index backed by the data file at path (optionally gzipped)
func New(path string) *Index {
	return &Index{path: path, cache: make(map[string]string)}
}

// NewFromReader builds an index from r immediately, used for embedded or test data
func NewFromReader(r io.Reader) *Index {
	idx := New("")
	idx.ranges = readRanges(r)
	idx.loaded = true
	return idx
}

// Lookup the description of the range containing ip
func (i *Index) Lookup(ip string) (string, error) {
	ip = strings.TrimSpace(ip)
	i.cacheMu.Lock()
	desc, ok := i.cache[ip]
	i.cacheMu.Unlock()
	if ok {
		return desc, nil
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "", errors.Wrap(ErrInvalidAddress, ip)
	}
	desc, err = i.LookupAddr(addr)
	if err != nil {
		return "", err
	}

	i.cacheMu.Lock()
	i.cache[ip] = desc
	i.cacheMu.Unlock()
	return desc, nil
}

// LookupAddr finds the greatest start <= addr and checks addr against its end
func (i *Index) LookupAddr(addr netip.Addr) (string, error) {
	if !addr.IsValid() {
		return "", ErrInvalidAddress
	}
	if err := i.load(); err != nil {
		return "", err
	}
	q := addrToUint128(addr.Unmap())

	i.mu.RLock()
	defer i.mu.RUnlock()

	// first range whose start is > q, the candidate is the one before it
	n := sort.Search(len(i.ranges), func(j int) bool {
		return q.less(i.ranges[j].start)
	})
	if n == 0 {
		return Unknown, nil
	}
	r := i.ranges[n-1]
	if q.lessOrEqual(r.end) {
		return r.desc, nil
	}
	return Unknown, nil
}

// Len of the loaded table, 0 before the first lookup
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.ranges)
}

// Purge drops the table and lookup cache, the next lookup reloads the file
func (i *Index) Purge() {
	i.mu.Lock()
	i.ranges = nil
	i.loaded = false
	i.mu.Unlock()

	i.cacheMu.Lock()
	i.cache = make(map[string]string)
	i.cacheMu.Unlock()
}

func (i *Index) load() error {
	i.mu.RLock()
	loaded := i.loaded
	i.mu.RUnlock()
	if loaded {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.loaded {
		return nil
	}
	if i.path == "" {
		return errors.New("no range data available")
	}

	r, closer, err := openData(i.path)
	if err != nil {
		return err
	}
	defer closer()

	i.ranges = readRanges(r)
	i.loaded = true
	log.Debug().Str("path", i.path).Int("ranges", len(i.ranges)).Msg("loaded range index")
	return nil
}

func openData(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open range data")
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, func() { f.Close() }, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, errors.Wrap(err, "failed to read gzip range data")
	}
	return gz, func() { gz.Close(); f.Close() }, nil
}

func readRanges(r io.Reader) []ipRange {
	ranges := make([]ipRange, 0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		rng, err := parseRow(text)
		if err != nil {
			log.Debug().Err(err).Int("line", line).Msg("skipping malformed range row")
			continue
		}
		ranges = append(ranges, rng)
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("error reading range data, using rows read so far")
	}

	sort.SliceStable(ranges, func(a, b int) bool {
		return ranges[a].start.less(ranges[b].start)
	})
	return ranges
}

// parseRow accepts start<TAB>end<TAB>desc with integer bounds, or the ip2asn
// layout start_ip<TAB>end_ip<TAB>asn<TAB>country<TAB>desc
func parseRow(text string) (ipRange, error) {
	parts := strings.SplitN(text, "\t", 5)
	if len(parts) == 5 {
		if _, err := netip.ParseAddr(strings.TrimSpace(parts[0])); err == nil {
			return parseASNRow(parts)
		}
	}

	parts = strings.SplitN(text, "\t", 3)
	if len(parts) < 3 {
		return ipRange{}, errors.Errorf("expected 3 columns got %d", len(parts))
	}
	start, err := parseUint128(strings.TrimSpace(parts[0]))
	if err != nil {
		return ipRange{}, err
	}
	end, err := parseUint128(strings.TrimSpace(parts[1]))
	if err != nil {
		return ipRange{}, err
	}
	if end.less(start) {
		return ipRange{}, errors.New("range end before start")
	}
	return ipRange{start: start, end: end, desc: strings.TrimSpace(parts[2])}, nil
}

func parseASNRow(parts []string) (ipRange, error) {
	startIP, err := netip.ParseAddr(strings.TrimSpace(parts[0]))
	if err != nil {
		return ipRange{}, err
	}
	endIP, err := netip.ParseAddr(strings.TrimSpace(parts[1]))
	if err != nil {
		return ipRange{}, err
	}
	start := addrToUint128(startIP)
	end := addrToUint128(endIP)
	if end.less(start) {
		return ipRange{}, errors.New("range end before start")
	}
	desc := strings.TrimSpace(parts[3]) + " - " + strings.TrimSpace(parts[4])
	return ipRange{start: start, end: end, desc: desc}, nil
}
