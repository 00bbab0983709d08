package callspec

import (
	"github.com/mnehpets/callspec/params"
	"github.com/mnehpets/callspec/typed"
)

// WebContextSpec declares request headers that are promoted into a
// WebContext, a convenience view for handlers.
type WebContextSpec struct {
	headers *params.Spec
}

// NewWebContextSpec declares a web context made of the header keys.
func NewWebContextSpec(keys ...typed.Keyed) (*WebContextSpec, error) {
	ps, err := params.NewSpec(keys...)
	if err != nil {
		return nil, err
	}
	return &WebContextSpec{headers: ps}, nil
}

// Headers declares the promoted headers.
func (s *WebContextSpec) Headers() *params.Spec { return s.headers }

// From builds the WebContext of a request's headers.
func (s *WebContextSpec) From(headers *params.Map) *WebContext {
	ctx := &WebContext{values: params.NewMap(s.headers)}
	if headers == nil {
		return ctx
	}
	for _, name := range s.headers.Names() {
		if v, ok := headers.Get(name); ok {
			// Both maps are declared with the same type for name.
			_ = ctx.values.Put(name, v)
		}
	}
	return ctx
}

// WebContext holds the promoted header values of one request.
type WebContext struct {
	values *params.Map
}

func (c *WebContext) Get(name string) (any, bool) {
	return c.values.Get(name)
}

// Names returns the names of the present values.
func (c *WebContext) Names() []string {
	return c.values.Names()
}

// ContextValue returns the value of k.
func ContextValue[T any](c *WebContext, k typed.Key[T]) (T, bool) {
	if c == nil {
		var zero T
		return zero, false
	}
	return params.Value(c.values, k)
}
