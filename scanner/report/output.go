package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/scanhound/hound"
)

// ErrNoOutput returned by SaveOutput when Init was never given a path
var ErrNoOutput = errors.New("no output file configured")

// GlobalDataKey holds the data registered without an active domain. Host
// names can not contain an underscore so it never collides with a domain.
const GlobalDataKey = "_global"

// IssueDetail is an issue as written to the report
type IssueDetail struct {
	ID       string                 `json:"id"`
	URL      string                 `json:"url"`
	Evidence map[string]interface{} `json:"evidence"`
}

// VulnDetail is a catalog entry as written to the report
type VulnDetail struct {
	Severity    hound.Severity `json:"severity"`
	Description string         `json:"description"`
	ID          string         `json:"id"`
}

// Document is the JSON report written into the archive
type Document struct {
	Info            map[string]interface{}               `json:"_info"`
	Data            map[string]interface{}               `json:"data"`
	Issues          map[string]map[string][]*IssueDetail `json:"issues"`
	Evidence        map[string]interface{}               `json:"evidence"`
	Vulnerabilities map[string]*VulnDetail               `json:"vulnerabilities"`
	InjectionPoints map[string][]*hound.InjectionPoint   `json:"injection_points"`
}

// SaveOutput writes the report archive and returns its path. Spill files are
// only purged once the archive was written, on error all state is kept.
func (r *Reporter) SaveOutput() (string, error) {
	output := r.output.Load()
	if output == "" {
		return "", ErrNoOutput
	}

	start := time.Now()
	doc := r.buildDocument()
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode report")
	}

	filename, err := writeArchive(output, data)
	if err != nil {
		return "", errors.Wrap(err, "error writing output file")
	}
	r.archive.Store(filename)
	r.purgeEvidence()

	size := int64(0)
	if fi, err := os.Stat(filename); err == nil {
		size = fi.Size()
	}
	log.Info().Str("file", filename).Int("size", len(data)).Int64("compressed", size).
		Dur("took", time.Since(start)).Msg("saved output")
	return filename, nil
}

func (r *Reporter) buildDocument() *Document {
	doc := &Document{
		Info:            r.infoSnapshot(),
		Data:            make(map[string]interface{}),
		Issues:          make(map[string]map[string][]*IssueDetail),
		Evidence:        make(map[string]interface{}),
		Vulnerabilities: make(map[string]*VulnDetail),
		InjectionPoints: make(map[string][]*hound.InjectionPoint),
	}

	for _, v := range r.catalog.All() {
		doc.Vulnerabilities[v.Name] = &VulnDetail{Severity: v.Severity, Description: v.Description, ID: v.ID}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for domain, bucket := range r.data {
		if domain == "" {
			domain = GlobalDataKey
		}
		doc.Data[domain] = convertMap(bucket)
	}

	for domain, vulns := range r.issues {
		doc.Issues[domain] = make(map[string][]*IssueDetail, len(vulns))
		for name, issues := range vulns {
			details := make([]*IssueDetail, 0, len(issues))
			for _, issue := range issues {
				details = append(details, evidenceDetail(issue, doc.Evidence))
			}
			doc.Issues[domain][name] = details
		}
	}

	for domain, points := range r.injectionPoints {
		doc.InjectionPoints[domain] = append([]*hound.InjectionPoint(nil), points...)
	}
	return doc
}

func evidenceDetail(issue *hound.Issue, evidence map[string]interface{}) *IssueDetail {
	detail := &IssueDetail{ID: issue.ID, URL: issue.URL, Evidence: make(map[string]interface{})}
	ev := issue.Evidence
	if ev == nil {
		return detail
	}
	for k, v := range ev.Custom() {
		detail.Evidence[k] = convertValue(v)
	}
	if id, ok := ev.RequestID(); ok {
		detail.Evidence[hound.KeyRequest] = id
		if text, ok := ev.Request(); ok {
			evidence[id] = text
		} else if _, exists := evidence[id]; !exists {
			evidence[id] = nil
		}
	}
	if id, ok := ev.ResponseID(); ok {
		detail.Evidence[hound.KeyResponse] = id
		if text, ok := ev.Response(); ok {
			evidence[id] = text
		} else if _, exists := evidence[id]; !exists {
			evidence[id] = nil
		}
	}
	return detail
}

func (r *Reporter) infoSnapshot() map[string]interface{} {
	r.infoMu.Lock()
	defer r.infoMu.Unlock()
	info := convertMap(r.info)
	messages := make(map[string]interface{}, len(r.messages))
	for kind, lines := range r.messages {
		messages[kind] = append([]string(nil), lines...)
	}
	info["messages"] = messages
	return info
}

func (r *Reporter) purgeEvidence() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, vulns := range r.issues {
		for _, issues := range vulns {
			for _, issue := range issues {
				if issue.Evidence != nil {
					issue.Evidence.PurgeFiles()
				}
			}
		}
	}
}

func convertMap(m map[string]interface{}) map[string]interface{} {
	converted := make(map[string]interface{}, len(m))
	for k, v := range m {
		converted[k] = convertValue(v)
	}
	return converted
}

// convertValue makes v safe for encoding/json, values that can not be encoded
// are stringified
func convertValue(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]interface{}:
		return convertMap(val)
	case *hound.Evidence:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() != reflect.String {
		converted := make(map[string]interface{}, rv.Len())
		for _, k := range rv.MapKeys() {
			converted[fmt.Sprint(k.Interface())] = convertValue(rv.MapIndex(k).Interface())
		}
		return converted
	}

	if _, err := json.Marshal(v); err != nil {
		log.Debug().Err(err).Msg("error serializing data, storing it as a string")
		return spew.Sprintf("%v", v)
	}
	return v
}

// archiveName picks <output>.zip, or a timestamped name beside it if that exists
func archiveName(output string) string {
	filename := output
	if fileExists(filename + ".zip") {
		filename = filepath.Join(filepath.Dir(output), fmt.Sprintf("%s_%d.json", filepath.Base(output), time.Now().Unix()))
	}
	return filename + ".zip"
}

func writeArchive(output string, data []byte) (string, error) {
	archive := archiveName(output)
	if err := os.MkdirAll(filepath.Dir(archive), 0755); err != nil {
		return "", err
	}

	f, err := os.OpenFile(archive, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", err
	}

	if err := writeZip(f, filepath.Base(archive[:len(archive)-len(".zip")]), data); err != nil {
		f.Close()
		os.Remove(archive)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(archive)
		return "", err
	}
	return archive, nil
}

func writeZip(w io.Writer, name string, data []byte) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.SpeedBetterCompression)))

	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zstd.ZipMethodWinZip,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	if _, err := entry.Write(data); err != nil {
		return err
	}
	return zw.Close()
}

// ReadArchive returns the JSON document stored in a report archive
func ReadArchive(path string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open archive")
	}
	defer zr.Close()
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	if len(zr.File) == 0 {
		return nil, errors.New("archive is empty")
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open report entry")
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
