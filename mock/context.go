package mock

import (
	"context"

	"gitlab.com/scanhound/hound"
)

// Context with no collaborators set
func Context(ctx context.Context) *hound.Context {
	return &hound.Context{
		Ctx:      ctx,
		Scope:    nil,
		Reporter: nil,
		Fetcher:  nil,
		Checker:  nil,
		Links:    nil,
	}
}
