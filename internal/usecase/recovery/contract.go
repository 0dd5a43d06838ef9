package recovery

import (
	"context"

	"github.com/kailas-cloud/contactdex/internal/domain/search/request"
	"github.com/kailas-cloud/contactdex/internal/domain/search/result"
)

// Attempt adjusts how the pipeline runs for one recovery try.
type Attempt struct {
	// BypassIndex matches by scanning records instead of consulting the index.
	BypassIndex bool
	// Literal treats the whole query as one substring phrase, skipping classification.
	Literal bool
	// MaxResults caps the match set when positive.
	MaxResults int
}

// Executor runs the search pipeline once under the request's own time budget.
type Executor interface {
	Execute(ctx context.Context, req request.Request, a Attempt) (*result.SearchResult, error)
}
