package mock

import "sync"

// LinkRecorder keeps edges in memory
type LinkRecorder struct {
	mu        sync.Mutex
	Links     map[string][]string
	Redirects map[string][]string
}

func (l *LinkRecorder) AddLink(from, to string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Links[from] = append(l.Links[from], to)
	return nil
}

func (l *LinkRecorder) AddRedirect(from, to string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Redirects[from] = append(l.Redirects[from], to)
	return nil
}

func MakeMockLinkRecorder() *LinkRecorder {
	return &LinkRecorder{Links: make(map[string][]string), Redirects: make(map[string][]string)}
}
