package callspec

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mnehpets/callspec/body"
	"github.com/mnehpets/callspec/callpath"
	"github.com/mnehpets/callspec/params"
	"github.com/mnehpets/callspec/typed"
	"github.com/mnehpets/callspec/urlparams"
)

// headers holds the declarations every builder shares. The first error is
// kept and reported by Build.
type headers struct {
	methods    MethodSet
	request    *params.SpecBuilder
	response   *params.SpecBuilder
	urlParams  *urlparams.Spec
	webContext *WebContextSpec
	err        error
}

func newHeaders() headers {
	return headers{
		request:   params.NewSpecBuilder(),
		response:  params.NewSpecBuilder(),
		urlParams: urlparams.Empty,
	}
}

func (h *headers) setWebContext(ctx *WebContextSpec) {
	if h.err != nil {
		return
	}
	if ctx == nil {
		h.err = ErrNilSpec
		return
	}
	if h.webContext != nil {
		h.err = ErrDuplicateWebContext
		return
	}
	h.webContext = ctx
	h.request.Merge(ctx.Headers())
}

func (h *headers) setURLParams(s *urlparams.Spec) {
	if h.err != nil {
		return
	}
	if s == nil {
		h.err = ErrNilSpec
		return
	}
	h.urlParams = s
}

func (h *headers) build(path callpath.CallPath, defaults MethodSet, reqBody, respBody *body.Spec) (*WebServiceCallSpec, error) {
	if h.err != nil {
		return nil, h.err
	}
	if path.IsNull() {
		return nil, fmt.Errorf("callspec: call path is required")
	}
	reqHeaders, err := h.request.Build()
	if err != nil {
		return nil, err
	}
	respHeaders, err := h.response.Build()
	if err != nil {
		return nil, err
	}
	req, err := NewRequestSpec(reqHeaders, h.urlParams, reqBody)
	if err != nil {
		return nil, err
	}
	resp, err := NewResponseSpec(respHeaders, respBody)
	if err != nil {
		return nil, err
	}
	methods := h.methods
	if methods.IsEmpty() {
		methods = defaults
	}
	return &WebServiceCallSpec{
		path:       path,
		methods:    methods,
		request:    req,
		response:   resp,
		webContext: h.webContext,
	}, nil
}

// WebServiceCallSpecBuilder assembles a WebServiceCallSpec. A builder may be
// built more than once; later changes do not affect earlier results.
type WebServiceCallSpecBuilder struct {
	path     callpath.CallPath
	h        headers
	reqBody  *body.Spec
	respBody *body.Spec
}

// NewBuilder returns a builder for a call at path. Bodies default to empty
// and the method set defaults to every method.
func NewBuilder(path callpath.CallPath) *WebServiceCallSpecBuilder {
	return &WebServiceCallSpecBuilder{
		path:     path,
		h:        newHeaders(),
		reqBody:  body.EmptySpec(),
		respBody: body.EmptySpec(),
	}
}

// SupportsMethod adds ms to the supported methods.
func (b *WebServiceCallSpecBuilder) SupportsMethod(ms ...Method) *WebServiceCallSpecBuilder {
	b.h.methods |= NewMethodSet(ms...)
	return b
}

func (b *WebServiceCallSpecBuilder) AddRequestHeader(keys ...typed.Keyed) *WebServiceCallSpecBuilder {
	b.h.request.Add(keys...)
	return b
}

func (b *WebServiceCallSpecBuilder) AddResponseHeader(keys ...typed.Keyed) *WebServiceCallSpecBuilder {
	b.h.response.Add(keys...)
	return b
}

func (b *WebServiceCallSpecBuilder) URLParams(s *urlparams.Spec) *WebServiceCallSpecBuilder {
	b.h.setURLParams(s)
	return b
}

func (b *WebServiceCallSpecBuilder) RequestBody(s *body.Spec) *WebServiceCallSpecBuilder {
	if s == nil && b.h.err == nil {
		b.h.err = ErrNilSpec
	}
	b.reqBody = s
	return b
}

func (b *WebServiceCallSpecBuilder) ResponseBody(s *body.Spec) *WebServiceCallSpecBuilder {
	if s == nil && b.h.err == nil {
		b.h.err = ErrNilSpec
	}
	b.respBody = s
	return b
}

// WebContext declares the web context. Its headers are added to the request
// headers. It may be set once.
func (b *WebServiceCallSpecBuilder) WebContext(ctx *WebContextSpec) *WebServiceCallSpecBuilder {
	b.h.setWebContext(ctx)
	return b
}

func (b *WebServiceCallSpecBuilder) Build() (*WebServiceCallSpec, error) {
	return b.h.build(b.path, AllMethods, b.reqBody, b.respBody)
}

// RestCallSpecBuilder assembles a RestCallSpec.
type RestCallSpecBuilder struct {
	path     callpath.CallPath
	resource reflect.Type
	name     string
	registry *typed.Registry
	h        headers
}

// NewRestBuilder returns a builder for the CRUD calls of resource type t.
func NewRestBuilder(path callpath.CallPath, t reflect.Type) *RestCallSpecBuilder {
	return &RestCallSpecBuilder{path: path, resource: t, h: newHeaders()}
}

// RestBuilderFor is NewRestBuilder for the resource type R.
func RestBuilderFor[R any](path callpath.CallPath) *RestCallSpecBuilder {
	return NewRestBuilder(path, typed.TypeOf[R]())
}

// Registry names the resource type through reg.
func (b *RestCallSpecBuilder) Registry(reg *typed.Registry) *RestCallSpecBuilder {
	b.registry = reg
	return b
}

// ResourceName overrides the resource name.
func (b *RestCallSpecBuilder) ResourceName(name string) *RestCallSpecBuilder {
	b.name = name
	return b
}

func (b *RestCallSpecBuilder) SupportsMethod(ms ...Method) *RestCallSpecBuilder {
	b.h.methods |= NewMethodSet(ms...)
	return b
}

func (b *RestCallSpecBuilder) AddRequestHeader(keys ...typed.Keyed) *RestCallSpecBuilder {
	b.h.request.Add(keys...)
	return b
}

func (b *RestCallSpecBuilder) AddResponseHeader(keys ...typed.Keyed) *RestCallSpecBuilder {
	b.h.response.Add(keys...)
	return b
}

func (b *RestCallSpecBuilder) URLParams(s *urlparams.Spec) *RestCallSpecBuilder {
	b.h.setURLParams(s)
	return b
}

func (b *RestCallSpecBuilder) WebContext(ctx *WebContextSpec) *RestCallSpecBuilder {
	b.h.setWebContext(ctx)
	return b
}

// Build returns the spec. The default methods are GET, POST, PUT and DELETE.
func (b *RestCallSpecBuilder) Build() (*RestCallSpec, error) {
	if b.resource == nil {
		return nil, fmt.Errorf("callspec: resource type is required")
	}
	res := body.SimpleSpec(b.resource)
	defaults := NewMethodSet(MethodGet, MethodPost, MethodPut, MethodDelete)
	ws, err := b.h.build(b.path, defaults, res, res)
	if err != nil {
		return nil, err
	}
	name := b.name
	switch {
	case name != "":
	case b.registry != nil:
		name = b.registry.Name(b.resource)
	default:
		name = strings.TrimPrefix(b.path.ServicePath(), "/")
	}
	return &RestCallSpec{WebServiceCallSpec: ws, resourceType: b.resource, resourceName: name}, nil
}

// QueryNameParam is the reserved URL parameter naming the query of a call.
const QueryNameParam = "queryName"

var queryNameKey = typed.NewKey[string](QueryNameParam)

// QuerySpecBuilder assembles a QuerySpec.
type QuerySpecBuilder struct {
	path     callpath.CallPath
	name     string
	resource reflect.Type
	h        headers
}

// NewQueryBuilder returns a builder for the query named name over resource
// type t. Queries are always sent with GET.
func NewQueryBuilder(path callpath.CallPath, name string, t reflect.Type) *QuerySpecBuilder {
	b := &QuerySpecBuilder{path: path, name: name, resource: t, h: newHeaders()}
	b.h.methods = NewMethodSet(MethodGet)
	return b
}

func (b *QuerySpecBuilder) AddRequestHeader(keys ...typed.Keyed) *QuerySpecBuilder {
	b.h.request.Add(keys...)
	return b
}

func (b *QuerySpecBuilder) AddResponseHeader(keys ...typed.Keyed) *QuerySpecBuilder {
	b.h.response.Add(keys...)
	return b
}

// Params declares the query's URL parameters. QueryNameParam is declared
// in addition.
func (b *QuerySpecBuilder) Params(s *urlparams.Spec) *QuerySpecBuilder {
	b.h.setURLParams(s)
	return b
}

func (b *QuerySpecBuilder) WebContext(ctx *WebContextSpec) *QuerySpecBuilder {
	b.h.setWebContext(ctx)
	return b
}

func (b *QuerySpecBuilder) Build() (*QuerySpec, error) {
	if b.name == "" {
		return nil, fmt.Errorf("callspec: query name is required")
	}
	if b.resource == nil {
		return nil, fmt.Errorf("callspec: resource type is required")
	}
	if b.h.err != nil {
		return nil, b.h.err
	}
	ups, err := urlparams.NewSpecBuilder().Merge(b.h.urlParams).Add(queryNameKey).Build()
	if err != nil {
		return nil, err
	}
	h := b.h
	h.urlParams = ups
	ws, err := h.build(b.path, h.methods, body.EmptySpec(), body.ListSpec(b.resource))
	if err != nil {
		return nil, err
	}
	return &QuerySpec{WebServiceCallSpec: ws, queryName: b.name, resourceType: b.resource}, nil
}
