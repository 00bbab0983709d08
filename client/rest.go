package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mnehpets/callspec/body"
	"github.com/mnehpets/callspec/callspec"
	"github.com/mnehpets/callspec/envelope"
	"github.com/mnehpets/callspec/reason"
	"github.com/mnehpets/callspec/typed"
	"github.com/mnehpets/callspec/urlparams"
)

// RequestOption adjusts a request before it is sent, typically to set
// declared headers.
type RequestOption func(*envelope.RequestBuilder)

// Header sets a declared request header.
func Header(name string, v any) RequestOption {
	return func(b *envelope.RequestBuilder) { b.Header(name, v) }
}

// Rest calls the CRUD operations of one resource type.
type Rest[R any] struct {
	client *Client
	spec   *callspec.RestCallSpec
}

// NewRest returns a typed client for spec, which must declare resources of
// type R.
func NewRest[R any](c *Client, spec *callspec.RestCallSpec) (*Rest[R], error) {
	if spec == nil {
		return nil, callspec.ErrNilSpec
	}
	if want := typed.TypeOf[R](); spec.ResourceType() != want {
		return nil, fmt.Errorf("client: %v declares %v resources, not %v", spec.Path(), spec.ResourceType(), want)
	}
	return &Rest[R]{client: c, spec: spec}, nil
}

func (r *Rest[R]) Get(ctx context.Context, id string, opts ...RequestOption) (R, error) {
	return r.one(ctx, callspec.MethodGet, id, nil, opts)
}

// Post creates a resource and returns it as stored by the server.
func (r *Rest[R]) Post(ctx context.Context, resource R, opts ...RequestOption) (R, error) {
	return r.one(ctx, callspec.MethodPost, "", &resource, opts)
}

func (r *Rest[R]) Put(ctx context.Context, id string, resource R, opts ...RequestOption) (R, error) {
	return r.one(ctx, callspec.MethodPut, id, &resource, opts)
}

func (r *Rest[R]) Delete(ctx context.Context, id string, opts ...RequestOption) error {
	b := envelope.NewRequestBuilder(r.bind(id)).Method(callspec.MethodDelete)
	_, err := r.client.send(ctx, b, opts)
	return err
}

// Query runs the named query q with params, which may be nil when the query
// declares none.
func (r *Rest[R]) Query(ctx context.Context, q *callspec.QuerySpec, params *urlparams.Params, opts ...RequestOption) ([]R, error) {
	if q == nil {
		return nil, callspec.ErrNilSpec
	}
	if want := typed.TypeOf[R](); q.ResourceType() != want {
		return nil, fmt.Errorf("client: query %s returns %v, not %v", q.QueryName(), q.ResourceType(), want)
	}
	b := envelope.NewRequestBuilder(q.WebServiceCallSpec).Method(callspec.MethodGet)
	if params != nil {
		b.URLParams(params)
	}
	b.URLParam(callspec.QueryNameParam, q.QueryName())
	resp, err := r.client.send(ctx, b, opts)
	if err != nil {
		return nil, err
	}
	list, ok := resp.Body.(*body.List)
	if !ok {
		return nil, reason.Errorf(reason.BadRequest, "query %s: unexpected %T body", q.QueryName(), resp.Body)
	}
	out := make([]R, 0, len(list.Values))
	for _, v := range list.Values {
		res, _ := v.(R)
		out = append(out, res)
	}
	return out, nil
}

func (r *Rest[R]) bind(id string) *callspec.WebServiceCallSpec {
	if id == "" {
		return r.spec.WebServiceCallSpec
	}
	return r.spec.ForResource(id).WebServiceCallSpec
}

func (r *Rest[R]) one(ctx context.Context, m callspec.Method, id string, resource *R, opts []RequestOption) (R, error) {
	var zero R
	b := envelope.NewRequestBuilder(r.bind(id)).Method(m)
	if resource != nil {
		bd, err := body.NewSimple(r.spec.RequestSpec().Body(), *resource)
		if err != nil {
			return zero, reason.Wrap(reason.BadRequest, err, "")
		}
		b.Body(bd)
	}
	resp, err := r.client.send(ctx, b, opts)
	if err != nil {
		return zero, err
	}
	if resp.Status == http.StatusNoContent {
		return zero, nil
	}
	s, ok := resp.Body.(*body.Simple)
	if !ok {
		return zero, reason.Errorf(reason.BadRequest, "%s %v: unexpected %T body", m, r.spec.Path(), resp.Body)
	}
	res, _ := s.Value.(R)
	return res, nil
}

func (c *Client) send(ctx context.Context, b *envelope.RequestBuilder, opts []RequestOption) (*envelope.Response, error) {
	for _, opt := range opts {
		opt(b)
	}
	req, err := b.Build()
	if err != nil {
		return nil, reason.Wrap(reason.BadRequest, err, "")
	}
	return c.Call(ctx, req)
}
