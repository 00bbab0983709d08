package dispatch

import (
	"context"

	"github.com/mnehpets/callspec/callspec"
	"github.com/mnehpets/callspec/envelope"
)

// Call is a received call as handlers see it.
type Call struct {
	Kind    Kind
	Request *envelope.Request
	// WebContext holds the promoted request headers, or is nil when the
	// call declares no web context.
	WebContext *callspec.WebContext
	// ID numbers the call within its Dispatcher.
	ID int64
}

// ResourceID is the resource id of the call path, or "".
func (c *Call) ResourceID() string {
	return c.Request.Spec.Path().ResourceID()
}

// RestHandler serves the CRUD calls of resource type R.
type RestHandler[R any] interface {
	Get(ctx context.Context, call *Call, id string) (R, error)
	// Post creates a resource and returns it as stored.
	Post(ctx context.Context, call *Call, resource R) (R, error)
	Put(ctx context.Context, call *Call, id string, resource R) (R, error)
	Delete(ctx context.Context, call *Call, id string) error
}

// QueryHandler serves a named query over resource type R. Its parameters
// are call.Request.URLParams.
type QueryHandler[R any] func(ctx context.Context, call *Call) ([]R, error)

// RPCHandler serves a free-form call by filling in the response.
type RPCHandler func(ctx context.Context, call *Call, resp *envelope.ResponseBuilder) error
