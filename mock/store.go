package mock

import (
	"sync"

	"gitlab.com/scanhound/hound"
)

type FindingStore struct {
	AddIssueFn func(domain string, issue *hound.Issue) error

	mu     sync.Mutex
	Issues map[string][]*hound.Issue
}

func (f *FindingStore) AddIssue(domain string, issue *hound.Issue) error {
	f.mu.Lock()
	f.Issues[domain] = append(f.Issues[domain], issue)
	f.mu.Unlock()
	return f.AddIssueFn(domain, issue)
}

func MakeMockFindingStore() *FindingStore {
	f := &FindingStore{Issues: make(map[string][]*hound.Issue)}
	f.AddIssueFn = func(domain string, issue *hound.Issue) error {
		return nil
	}
	return f
}
