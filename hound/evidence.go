package hound

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

// DefaultSpillThreshold is the payload size above which evidence is moved to disk
const DefaultSpillThreshold = 25 * 1024

// digestSize in bytes of request/response ids
const digestSize = 16

// ErrKeyNotFound returned by Evidence.Get for keys that are not defined
var ErrKeyNotFound = errors.New("key not found")

// SpillState of a request or response payload
type SpillState int8

const (
	// EvidenceInline payload is held in memory
	EvidenceInline SpillState = iota
	// EvidenceOnDisk payload was moved to a temp file
	EvidenceOnDisk
)

// evidence field names
const (
	KeyURL        = "url"
	KeyRequest    = "request"
	KeyResponse   = "response"
	KeyRequestID  = "request_id"
	KeyResponseID = "response_id"
)

type payload struct {
	value *string
	id    string
	state SpillState
	file  string
	hasID bool
}

func (p *payload) set(v *string) {
	p.value = v
	p.id = ""
	p.hasID = false
	p.state = EvidenceInline
	p.file = ""
}

// digest is computed from the in memory value, so it must be called before spilling
func (p *payload) digest() (string, bool) {
	if p.value == nil {
		return "", false
	}
	if !p.hasID {
		p.id = Digest(*p.value)
		p.hasID = true
	}
	return p.id, true
}

func (p *payload) read() (string, bool) {
	if p.value == nil {
		return "", false
	}
	if p.state == EvidenceOnDisk && p.file != "" {
		data, err := os.ReadFile(p.file)
		if err != nil {
			log.Debug().Err(err).Str("file", p.file).Msg("evidence spill file unreadable")
			return "", false
		}
		return string(data), true
	}
	return *p.value, true
}

func (p *payload) spill(dir string, threshold int) error {
	if p.value == nil || p.state == EvidenceOnDisk || len(*p.value) <= threshold {
		return nil
	}
	p.digest()

	f, err := os.CreateTemp(dir, "evidence-*")
	if err != nil {
		return errors.Wrap(err, "create spill file")
	}
	defer f.Close()

	if _, err := f.WriteString(*p.value); err != nil {
		os.Remove(f.Name())
		return errors.Wrap(err, "write spill file")
	}

	empty := ""
	p.value = &empty
	p.file = f.Name()
	p.state = EvidenceOnDisk
	return nil
}

func (p *payload) purge() {
	if p.file != "" {
		if err := os.Remove(p.file); err != nil && !os.IsNotExist(err) {
			log.Debug().Err(err).Str("file", p.file).Msg("failed to remove evidence spill file")
		}
	}
	p.file = ""
	p.state = EvidenceInline
}

// Evidence of a single HTTP exchange plus any custom fields a check wants to keep
type Evidence struct {
	mu       sync.Mutex
	url      string
	request  payload
	response payload
	custom   map[string]interface{}
}

// NewEvidence creates evidence for url, request and response may be nil
func NewEvidence(url string, request, response *string, custom map[string]interface{}) *Evidence {
	e := &Evidence{url: url, custom: make(map[string]interface{}, len(custom))}
	e.request.set(copyString(request))
	e.response.set(copyString(response))
	for k, v := range custom {
		e.custom[k] = v
	}
	return e
}

// EvidenceFromResponse builds evidence from the raw request/response of resp
func EvidenceFromResponse(resp *Response, custom map[string]interface{}) *Evidence {
	req := resp.RawRequest
	res := resp.RawResponse
	return NewEvidence(resp.RequestURL(), &req, &res, custom)
}

func (e *Evidence) isEvidenceValue() {}

// URL this evidence was observed at
func (e *Evidence) URL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.url
}

// Request text, reading it back from disk if spilled. Returns false if unset
// or if the spill file is gone.
func (e *Evidence) Request() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.request.read()
}

// Response text, see Request
func (e *Evidence) Response() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.response.read()
}

// RequestID digest, only defined when a request is set
func (e *Evidence) RequestID() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.request.digest()
}

// ResponseID digest, only defined when a response is set
func (e *Evidence) ResponseID() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.response.digest()
}

// RequestState returns where the request payload currently lives
func (e *Evidence) RequestState() SpillState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.request.state
}

// ResponseState returns where the response payload currently lives
func (e *Evidence) ResponseState() SpillState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.response.state
}

// SpillFiles currently held for the request and response (empty if inline)
func (e *Evidence) SpillFiles() (string, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.request.file, e.response.file
}

// Inline returns the in memory request or response value without following
// a spill file
func (e *Evidence) Inline(key string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var p *payload
	switch key {
	case KeyRequest:
		p = &e.request
	case KeyResponse:
		p = &e.response
	default:
		return "", false
	}
	if p.value == nil {
		return "", false
	}
	return *p.value, true
}

// Custom returns a copy of the custom fields
func (e *Evidence) Custom() map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	custom := make(map[string]interface{}, len(e.custom))
	for k, v := range e.custom {
		custom[k] = v
	}
	return custom
}

// Get a standard or custom field by name
func (e *Evidence) Get(key string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch key {
	case KeyURL:
		return e.url, nil
	case KeyRequest:
		if v, ok := e.request.read(); ok {
			return v, nil
		}
		return nil, nil
	case KeyResponse:
		if v, ok := e.response.read(); ok {
			return v, nil
		}
		return nil, nil
	case KeyRequestID:
		if id, ok := e.request.digest(); ok {
			return id, nil
		}
	case KeyResponseID:
		if id, ok := e.response.digest(); ok {
			return id, nil
		}
	default:
		if v, ok := e.custom[key]; ok {
			return v, nil
		}
	}
	return nil, errors.Wrap(ErrKeyNotFound, key)
}

// Set a standard or custom field. Setting request/response drops any cached
// digest and spill file reference for that payload.
func (e *Evidence) Set(key string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch key {
	case KeyURL:
		e.url = fmt.Sprint(value)
	case KeyRequest:
		e.request.purge()
		e.request.set(toStringPtr(value))
	case KeyResponse:
		e.response.purge()
		e.response.set(toStringPtr(value))
	case KeyRequestID, KeyResponseID:
		// computed
	default:
		e.custom[key] = value
	}
}

// CacheToFile moves request/response text larger than threshold into temp files
// under dir. Zero values select os.TempDir and DefaultSpillThreshold.
func (e *Evidence) CacheToFile(dir string, threshold int) error {
	if threshold <= 0 {
		threshold = DefaultSpillThreshold
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.request.spill(dir, threshold); err != nil {
		return err
	}
	return e.response.spill(dir, threshold)
}

// PurgeFiles removes any spill files, missing files are ignored
func (e *Evidence) PurgeFiles() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.request.purge()
	e.response.purge()
}

// Strip drops the request/response text but keeps their digests
func (e *Evidence) Strip() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range []*payload{&e.request, &e.response} {
		if p.value == nil {
			continue
		}
		p.digest()
		p.purge()
		empty := ""
		p.value = &empty
	}
}

// Equal compares url, custom fields and payload digests
func (e *Evidence) Equal(other *Evidence) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e == other {
		return true
	}
	a := e.snapshot()
	b := other.snapshot()
	return a.url == b.url &&
		a.hasReq == b.hasReq && a.reqID == b.reqID &&
		a.hasRes == b.hasRes && a.resID == b.resID &&
		reflect.DeepEqual(a.custom, b.custom)
}

// Hash of the same fields used by Equal
func (e *Evidence) Hash() uint64 {
	s := e.snapshot()
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(s.url))
	h.Write([]byte{0})
	h.Write([]byte(s.reqID))
	h.Write([]byte{0})
	h.Write([]byte(s.resID))
	h.Write([]byte{0})

	keys := make([]string, 0, len(s.custom))
	for k := range s.custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(canonicalValue(s.custom[k])))
		h.Write([]byte{0})
	}
	return binary.BigEndian.Uint64(h.Sum(nil))
}

type evidenceSnapshot struct {
	url    string
	reqID  string
	hasReq bool
	resID  string
	hasRes bool
	custom map[string]interface{}
}

func (e *Evidence) snapshot() evidenceSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := evidenceSnapshot{url: e.url, custom: make(map[string]interface{}, len(e.custom))}
	for k, v := range e.custom {
		s.custom[k] = v
	}
	s.reqID, s.hasReq = e.request.digest()
	s.resID, s.hasRes = e.response.digest()
	return s
}

func (e *Evidence) String() string {
	return fmt.Sprintf("Evidence: %s (%d custom)", e.URL(), len(e.Custom()))
}

// Digest returns the hex encoded 128 bit BLAKE2b digest of s
func Digest(s string) string {
	h, _ := blake2b.New(digestSize, nil)
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

func canonicalValue(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func toStringPtr(value interface{}) *string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return &v
	case *string:
		return copyString(v)
	default:
		s := fmt.Sprint(v)
		return &s
	}
}
