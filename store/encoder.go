package store

import (
	"bytes"
	"time"

	"github.com/vmihailenco/msgpack/v4"
	"gitlab.com/scanhound/hound"
)

// IssueRecord is the stored form of a registered issue
type IssueRecord struct {
	ID            string                 `msgpack:"id"`
	Domain        string                 `msgpack:"domain"`
	Vulnerability string                 `msgpack:"vuln"`
	Severity      hound.Severity         `msgpack:"severity"`
	URL           string                 `msgpack:"url"`
	RequestID     string                 `msgpack:"request_id"`
	ResponseID    string                 `msgpack:"response_id"`
	Custom        map[string]interface{} `msgpack:"custom"`
	Registered    time.Time              `msgpack:"registered"`
}

// NewIssueRecord captures issue, payload text is referenced by digest only
func NewIssueRecord(domain string, issue *hound.Issue) *IssueRecord {
	rec := &IssueRecord{
		ID:            issue.ID,
		Domain:        domain,
		Vulnerability: issue.VulnName(),
		Severity:      issue.Severity,
		URL:           issue.URL,
		Registered:    time.Now().UTC(),
	}
	if issue.Evidence != nil {
		rec.RequestID, _ = issue.Evidence.RequestID()
		rec.ResponseID, _ = issue.Evidence.ResponseID()
		rec.Custom = issue.Evidence.Custom()
	}
	return rec
}

// MakeKey of a predicate and id
func MakeKey(id []byte, predicate string) []byte {
	key := []byte(predicate)
	key = append(key, byte(':'))
	key = append(key, id...)
	return key
}

// GetID of key from a pred:key
func GetID(key []byte) []byte {
	split := bytes.SplitN(key, []byte(":"), 2)
	if len(split) == 1 {
		return []byte{}
	}
	return split[1]
}

// GetPredicate from pred:key
func GetPredicate(key []byte) []byte {
	split := bytes.SplitN(key, []byte(":"), 2)
	return split[0]
}

// EncodeIssue record
func EncodeIssue(rec *IssueRecord) ([]byte, error) {
	return msgpack.Marshal(rec)
}

// DecodeIssue record
func DecodeIssue(val []byte) (*IssueRecord, error) {
	rec := &IssueRecord{}
	if err := msgpack.Unmarshal(val, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// EncodeTime usually Now
func EncodeTime(t time.Time) ([]byte, error) {
	return msgpack.Marshal(t)
}

// DecodeTime value
func DecodeTime(val []byte) (time.Time, error) {
	var t time.Time
	err := msgpack.Unmarshal(val, &t)
	return t, err
}
