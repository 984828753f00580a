package mock

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"gitlab.com/scanhound/hound"
)

type Fetcher struct {
	GetFn func(ctx context.Context, url string) (*hound.Response, error)

	mu      sync.Mutex
	fetched []string
}

func (f *Fetcher) Get(ctx context.Context, url string) (*hound.Response, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()
	return f.GetFn(ctx, url)
}

// Fetched urls in call order
func (f *Fetcher) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

// MakeMockFetcher serves pages by url, anything else is a 404
func MakeMockFetcher(pages map[string]*hound.Response) *Fetcher {
	f := &Fetcher{}
	f.GetFn = func(ctx context.Context, url string) (*hound.Response, error) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "mock fetch")
		}
		if resp, ok := pages[url]; ok {
			return resp, nil
		}
		return MakeMockResponse(url, 404, "", nil), nil
	}
	return f
}
