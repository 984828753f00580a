package store

import (
	"os"
	"sort"

	badger "github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/scanhound/hound"
)

const (
	issuePredicate  = "issue"
	domainPredicate = "domain"
)

// FindingStore checkpoints registered issues so an interrupted scan keeps them
type FindingStore struct {
	Store    *badger.DB
	filepath string
	inMemory bool
}

var _ Storer = (*FindingStore)(nil)

// NewFindingStore stored under filepath
func NewFindingStore(filepath string) *FindingStore {
	return &FindingStore{filepath: filepath}
}

// NewMemoryFindingStore that is never written to disk
func NewMemoryFindingStore() *FindingStore {
	return &FindingStore{inMemory: true}
}

// Init the finding storage
func (s *FindingStore) Init() error {
	var err error

	if s.inMemory {
		s.Store, err = badger.Open(badger.DefaultOptions("").WithInMemory(true))
		return err
	}

	if err = os.MkdirAll(s.filepath, 0755); err != nil {
		return err
	}

	s.Store, err = badger.Open(badger.DefaultOptions(s.filepath))

	if errors.Is(err, badger.ErrTruncateNeeded) {
		log.Warn().Msg("there was a failure re-opening database, trying to recover")
		opts := badger.DefaultOptions(s.filepath)
		opts.Truncate = true
		s.Store, err = badger.Open(opts)
	}

	if err != nil {
		return err
	}
	return nil
}

// AddIssue for domain, keyed issue:<domain>:<id>
func (s *FindingStore) AddIssue(domain string, issue *hound.Issue) error {
	rec := NewIssueRecord(domain, issue)
	val, err := EncodeIssue(rec)
	if err != nil {
		return errors.Wrap(err, "failed to encode issue")
	}
	seen, err := EncodeTime(rec.Registered)
	if err != nil {
		return err
	}

	return s.Store.Update(func(txn *badger.Txn) error {
		if err := txn.Set(MakeKey([]byte(domain+":"+issue.ID), issuePredicate), val); err != nil {
			return err
		}
		return txn.Set(MakeKey([]byte(domain), domainPredicate), seen)
	})
}

// Issues stored for domain
func (s *FindingStore) Issues(domain string) ([]*IssueRecord, error) {
	records := make([]*IssueRecord, 0)
	prefix := MakeKey([]byte(domain+":"), issuePredicate)

	err := s.Store.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := DecodeIssue(val)
			if err != nil {
				return errors.Wrap(err, "failed to decode issue")
			}
			// domains with ports share the prefix of the bare host
			if rec.Domain == domain {
				records = append(records, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Registered.Before(records[j].Registered)
	})
	return records, nil
}

// Domains that have at least one stored issue
func (s *FindingStore) Domains() ([]string, error) {
	domains := make([]string, 0)
	err := s.Store.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(domainPredicate + ":")})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			domains = append(domains, string(GetID(it.Item().KeyCopy(nil))))
		}
		return nil
	})
	sort.Strings(domains)
	return domains, err
}

// Close the finding store
func (s *FindingStore) Close() error {
	return s.Store.Close()
}
