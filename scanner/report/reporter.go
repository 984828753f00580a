package report

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/scanhound/hound"
	"go.uber.org/atomic"
)

// Option configures a Reporter
type Option func(r *Reporter)

// WithOutput sets where findings are printed
func WithOutput(out hound.Output) Option {
	return func(r *Reporter) {
		r.out = out
	}
}

// WithFindingStore checkpoints every registered issue
func WithFindingStore(store hound.FindingStorer) Option {
	return func(r *Reporter) {
		r.store = store
	}
}

// WithSpillDir sets the directory evidence spill files are created in
func WithSpillDir(dir string) Option {
	return func(r *Reporter) {
		r.spillDir = dir
	}
}

// WithSpillThreshold sets the payload size evidence is spilled at
func WithSpillThreshold(n int) Option {
	return func(r *Reporter) {
		r.spillThreshold = n
	}
}

// WithDebugMessages toggles keeping debug messages in the output
func WithDebugMessages(include bool) Option {
	return func(r *Reporter) {
		r.includeDebug = include
	}
}

// Reporter collects issues, data and injection points per domain
type Reporter struct {
	catalog        *hound.Catalog
	out            hound.Output
	store          hound.FindingStorer
	spillDir       string
	spillThreshold int
	includeDebug   bool

	// output and archive are read from the log hook so they must not need mu
	output  *atomic.String
	archive *atomic.String

	mu              sync.RWMutex
	domain          string
	issues          map[string]map[string][]*hound.Issue
	data            map[string]map[string]interface{}
	injectionPoints map[string][]*hound.InjectionPoint

	infoMu   sync.Mutex
	info     map[string]interface{}
	messages map[string][]string
}

// New reporter using catalog for the vulnerability list in the output
func New(catalog *hound.Catalog, opts ...Option) *Reporter {
	if catalog == nil {
		catalog = hound.DefaultCatalog()
	}
	r := &Reporter{
		catalog:         catalog,
		out:             NewConsoleOutput(os.Stdout),
		spillThreshold:  hound.DefaultSpillThreshold,
		includeDebug:    true,
		output:          atomic.NewString(""),
		archive:         atomic.NewString(""),
		issues:          make(map[string]map[string][]*hound.Issue),
		data:            make(map[string]map[string]interface{}),
		injectionPoints: make(map[string][]*hound.InjectionPoint),
		info:            make(map[string]interface{}),
		messages:        make(map[string][]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetFindingStore to checkpoint issues into, must be called before any issue is registered
func (r *Reporter) SetFindingStore(store hound.FindingStorer) {
	r.store = store
}

// Catalog of vulnerabilities this reporter knows about
func (r *Reporter) Catalog() *hound.Catalog {
	return r.catalog
}

// Init resolves the output target. A directory gets a generated file name,
// an existing file is never overwritten (a timestamped name is used on save).
func (r *Reporter) Init(outputPath string) error {
	if outputPath == "" {
		return nil
	}
	abs, err := filepath.Abs(outputPath)
	if err != nil {
		return errors.Wrap(err, "failed to resolve output path")
	}

	if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
		abs = filepath.Join(abs, fmt.Sprintf("scanhound_%d.json", time.Now().Unix()))
	} else if err == nil || fileExists(abs+".zip") {
		log.Warn().Str("output", abs).Msg("output file already exists, a new name will be used when saving")
	}
	r.output.Store(abs)
	return nil
}

// Setup the bucket for domain and make it the active one
func (r *Reporter) Setup(domain string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.domain = domain
	if _, ok := r.issues[domain]; !ok {
		r.issues[domain] = make(map[string][]*hound.Issue)
	}
	if _, ok := r.data[domain]; !ok {
		r.data[domain] = make(map[string]interface{})
	}
}

// Domain currently active
func (r *Reporter) Domain() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.domain
}

// IsRegistered if the active domain has at least one issue for vuln
func (r *Reporter) IsRegistered(vuln *hound.Vulnerability) bool {
	if vuln == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.issues[r.domain][vuln.Name]) > 0
}

// Register issue unless an issue with the same url and equal evidence already
// exists for the vulnerability in the active domain. Returns true when issue
// is the first one stored for its vulnerability.
func (r *Reporter) Register(issue *hound.Issue) bool {
	if issue == nil {
		return false
	}
	if issue.Evidence == nil {
		issue.Evidence = hound.NewEvidence(issue.URL, nil, nil, nil)
	}
	name := issue.VulnName()
	hasOutput := r.output.Load() != ""

	r.mu.Lock()
	domain := r.domain
	bucket, ok := r.issues[domain]
	if !ok {
		bucket = make(map[string][]*hound.Issue)
		r.issues[domain] = bucket
	}

	for _, finding := range bucket[name] {
		if finding.URL == issue.URL && finding.Evidence.Equal(issue.Evidence) {
			r.mu.Unlock()
			log.Debug().Str("id", issue.ID).Str("duplicate_of", finding.ID).Msg("duplicate issue")
			return false
		}
	}
	first := len(bucket[name]) == 0

	var spillErr error
	if !hasOutput {
		issue.Evidence.Strip()
	} else {
		spillErr = issue.Evidence.CacheToFile(r.spillDir, r.spillThreshold)
	}
	bucket[name] = append(bucket[name], issue)
	r.mu.Unlock()

	if spillErr != nil {
		log.Debug().Err(spillErr).Str("id", issue.ID).Msg("error caching evidence")
	}

	if r.store != nil {
		if err := r.store.AddIssue(domain, issue); err != nil {
			log.Warn().Err(err).Str("id", issue.ID).Msg("failed to checkpoint issue")
		}
	}
	return first
}

// Display registers the issue and prints msg according to its severity. Only
// the first issue of a vulnerability is printed unless it is DisplayAll.
func (r *Reporter) Display(msg string, issue *hound.Issue) {
	if issue == nil {
		return
	}
	if issue.Evidence == nil {
		issue.Evidence = hound.NewEvidence(issue.URL, nil, nil, map[string]interface{}{"message": strings.TrimSpace(msg)})
	}
	first := r.Register(issue)

	vuln := issue.Vulnerability
	if vuln == nil || !(vuln.DisplayAll || first) {
		return
	}
	switch issue.Severity {
	case hound.SeverityCritical, hound.SeverityHigh:
		r.out.Vuln(msg)
	case hound.SeverityMedium:
		r.out.Warn(msg)
	default:
		r.out.Info(msg)
	}
}

// DisplayResults converts each result to an issue and displays it
func (r *Reporter) DisplayResults(results []*hound.Result, padding string) {
	for _, res := range results {
		r.Display(padding+res.Message, hound.IssueFromResult(res))
	}
}

// RegisterData merges value under key in the active domain, or the global
// bucket when no domain is active. Slices extend, maps merge, anything else
// replaces the existing value.
func (r *Reporter) RegisterData(key string, value interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.data[r.domain]
	if !ok {
		bucket = make(map[string]interface{})
		r.data[r.domain] = bucket
	}
	existing, ok := bucket[key]
	if !ok {
		bucket[key] = value
		return
	}
	bucket[key] = mergeValue(existing, value)
}

// RegisterInfo stores run metadata, only kept when an output file is configured
func (r *Reporter) RegisterInfo(key string, value interface{}) {
	if r.output.Load() == "" {
		return
	}
	r.infoMu.Lock()
	r.info[key] = value
	r.infoMu.Unlock()
}

// RegisterMessage appends a UTC timestamped line under kind. Debug messages are
// dropped unless enabled, nothing is kept without an output file.
func (r *Reporter) RegisterMessage(text, kind string) {
	if r.output.Load() == "" {
		return
	}
	if kind == hound.MessageDebug && !r.includeDebug {
		return
	}
	line := fmt.Sprintf("[%s UTC]: %s", time.Now().UTC().Format("2006-01-02 15:04:05.000000"), text)

	r.infoMu.Lock()
	r.messages[kind] = append(r.messages[kind], line)
	r.infoMu.Unlock()
}

// RegisterInjectionPoints for the active domain, only kept when an output file is configured
func (r *Reporter) RegisterInjectionPoints(points []*hound.InjectionPoint) {
	if r.output.Load() == "" || len(points) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range points {
		if p != nil {
			r.injectionPoints[r.domain] = append(r.injectionPoints[r.domain], p)
		}
	}
}

// Issues registered for domain keyed by vulnerability name
func (r *Reporter) Issues(domain string) map[string][]*hound.Issue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	issues := make(map[string][]*hound.Issue, len(r.issues[domain]))
	for name, list := range r.issues[domain] {
		issues[name] = append([]*hound.Issue(nil), list...)
	}
	return issues
}

// Data registered for domain, "" is the global bucket
func (r *Reporter) Data(domain string) map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data := make(map[string]interface{}, len(r.data[domain]))
	for k, v := range r.data[domain] {
		data[k] = v
	}
	return data
}

// InjectionPoints registered for domain
func (r *Reporter) InjectionPoints(domain string) []*hound.InjectionPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*hound.InjectionPoint(nil), r.injectionPoints[domain]...)
}

// Messages of kind registered so far
func (r *Reporter) Messages(kind string) []string {
	r.infoMu.Lock()
	defer r.infoMu.Unlock()
	return append([]string(nil), r.messages[kind]...)
}

// Info value registered under key
func (r *Reporter) Info(key string) (interface{}, bool) {
	r.infoMu.Lock()
	defer r.infoMu.Unlock()
	v, ok := r.info[key]
	return v, ok
}

// OutputFile is the archive written by SaveOutput, or the one it will write
func (r *Reporter) OutputFile() string {
	if archive := r.archive.Load(); archive != "" {
		return archive
	}
	if output := r.output.Load(); output != "" {
		return output + ".zip"
	}
	return ""
}

func mergeValue(existing, value interface{}) interface{} {
	ev := reflect.ValueOf(existing)
	vv := reflect.ValueOf(value)
	if !ev.IsValid() || !vv.IsValid() {
		return value
	}

	switch {
	case ev.Kind() == reflect.Slice && vv.Kind() == reflect.Slice:
		if ev.Type() == vv.Type() {
			merged := reflect.MakeSlice(ev.Type(), 0, ev.Len()+vv.Len())
			merged = reflect.AppendSlice(merged, ev)
			return reflect.AppendSlice(merged, vv).Interface()
		}
		merged := make([]interface{}, 0, ev.Len()+vv.Len())
		for i := 0; i < ev.Len(); i++ {
			merged = append(merged, ev.Index(i).Interface())
		}
		for i := 0; i < vv.Len(); i++ {
			merged = append(merged, vv.Index(i).Interface())
		}
		return merged
	case ev.Kind() == reflect.Map && vv.Kind() == reflect.Map:
		if ev.Type() == vv.Type() {
			merged := reflect.MakeMapWithSize(ev.Type(), ev.Len()+vv.Len())
			for _, k := range ev.MapKeys() {
				merged.SetMapIndex(k, ev.MapIndex(k))
			}
			for _, k := range vv.MapKeys() {
				merged.SetMapIndex(k, vv.MapIndex(k))
			}
			return merged.Interface()
		}
		merged := make(map[string]interface{}, ev.Len()+vv.Len())
		for _, k := range ev.MapKeys() {
			merged[fmt.Sprint(k.Interface())] = ev.MapIndex(k).Interface()
		}
		for _, k := range vv.MapKeys() {
			merged[fmt.Sprint(k.Interface())] = vv.MapIndex(k).Interface()
		}
		return merged
	}
	return value
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
