// Package envelope carries calls over HTTP.
//
// A Request or Response envelope holds the typed headers, URL parameters and
// body of one call together with the spec that declares them. Four pieces
// move envelopes on and off the wire: RequestSender and ResponseReceiver on
// the client, RequestReceiver and ResponseSender on the server. Every failure
// they report is a *reason.Error.
package envelope

import (
	"fmt"
	"net/http"

	"github.com/mnehpets/callspec/body"
	"github.com/mnehpets/callspec/callspec"
	"github.com/mnehpets/callspec/params"
	"github.com/mnehpets/callspec/reason"
	"github.com/mnehpets/callspec/urlparams"
)

const (
	HeaderContentType = "Content-Type"
	// HeaderMethodOverride carries the true method of a call tunnelled as POST.
	HeaderMethodOverride = "X-HTTP-Method-Override"
	// HeaderErrorReason carries the reason token of a failed call.
	HeaderErrorReason = reason.Header
	// HeaderContext carries a sealed web context issued by the server.
	HeaderContext = "X-Callspec-Context"
	// ParamInline marks a request whose headers and URL parameters are also
	// embedded in its body.
	ParamInline = "callspec_inline"
)

// Request is the envelope of one call.
type Request struct {
	Method    callspec.Method
	Headers   *params.Map
	URLParams *urlparams.Params
	Body      body.Body
	// Spec is bound to the concrete call path, including any resource id.
	Spec    *callspec.WebServiceCallSpec
	Inlined bool
}

// Response is the envelope of a call's result.
type Response struct {
	Status  int
	Headers *params.Map
	Body    body.Body
	Spec    *callspec.ResponseSpec
}

// RequestBuilder assembles a Request. The first error is kept and returned
// by Build.
type RequestBuilder struct {
	spec      *callspec.WebServiceCallSpec
	method    callspec.Method
	headers   *params.Map
	urlParams *urlparams.Params
	body      body.Body
	inlined   bool
	err       error
}

// NewRequestBuilder returns a builder for a call to spec. The method
// defaults to GET when supported, otherwise to the first supported method.
func NewRequestBuilder(spec *callspec.WebServiceCallSpec) *RequestBuilder {
	req := spec.RequestSpec()
	m := callspec.MethodGet
	if !spec.Supports(m) {
		if ms := spec.SupportedMethods().Methods(); len(ms) > 0 {
			m = ms[0]
		}
	}
	return &RequestBuilder{
		spec:      spec,
		method:    m,
		headers:   params.NewMap(req.Headers()),
		urlParams: urlparams.New(req.URLParams()),
		body:      body.Empty(req.Body()),
	}
}

func (b *RequestBuilder) Method(m callspec.Method) *RequestBuilder {
	b.method = m
	return b
}

// Header sets a declared request header.
func (b *RequestBuilder) Header(name string, v any) *RequestBuilder {
	if b.err == nil {
		b.err = b.headers.Put(name, v)
	}
	return b
}

// URLParam sets a declared URL parameter.
func (b *RequestBuilder) URLParam(name string, v any) *RequestBuilder {
	if b.err == nil {
		b.err = b.urlParams.Put(name, v)
	}
	return b
}

// URLParams replaces the URL parameters.
func (b *RequestBuilder) URLParams(p *urlparams.Params) *RequestBuilder {
	if b.err == nil && p.Spec() != b.spec.RequestSpec().URLParams() {
		b.err = fmt.Errorf("envelope: URL params declared by a different spec")
	}
	b.urlParams = p
	return b
}

func (b *RequestBuilder) Body(bd body.Body) *RequestBuilder {
	if b.err == nil && (bd == nil || bd.Spec() != b.spec.RequestSpec().Body()) {
		b.err = fmt.Errorf("%w: request body declared by a different spec", body.ErrShape)
	}
	b.body = bd
	return b
}

func (b *RequestBuilder) Inlined(inlined bool) *RequestBuilder {
	b.inlined = inlined
	return b
}

func (b *RequestBuilder) Build() (*Request, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.spec.Supports(b.method) {
		return nil, fmt.Errorf("envelope: %s not supported by %v", b.method, b.spec)
	}
	return &Request{
		Method:    b.method,
		Headers:   b.headers,
		URLParams: b.urlParams,
		Body:      b.body,
		Spec:      b.spec,
		Inlined:   b.inlined,
	}, nil
}

// ResponseBuilder assembles a Response.
type ResponseBuilder struct {
	spec    *callspec.ResponseSpec
	status  int
	headers *params.Map
	body    body.Body
	err     error
}

func NewResponseBuilder(spec *callspec.ResponseSpec) *ResponseBuilder {
	return &ResponseBuilder{
		spec:    spec,
		headers: params.NewMap(spec.Headers()),
		body:    body.Empty(spec.Body()),
	}
}

// Status sets the status code. Zero selects 200, or 204 for an empty body.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.status = code
	return b
}

func (b *ResponseBuilder) Header(name string, v any) *ResponseBuilder {
	if b.err == nil {
		b.err = b.headers.Put(name, v)
	}
	return b
}

func (b *ResponseBuilder) Body(bd body.Body) *ResponseBuilder {
	if b.err == nil && (bd == nil || bd.Spec() != b.spec.Body()) {
		b.err = fmt.Errorf("%w: response body declared by a different spec", body.ErrShape)
	}
	b.body = bd
	return b
}

// Value sets a simple body holding v.
func (b *ResponseBuilder) Value(v any) *ResponseBuilder {
	s, err := body.NewSimple(b.spec.Body(), v)
	if b.err == nil && err != nil {
		b.err = err
	}
	if err == nil {
		b.body = s
	}
	return b
}

func (b *ResponseBuilder) Build() (*Response, error) {
	if b.err != nil {
		return nil, b.err
	}
	status := b.status
	if status == 0 {
		status = http.StatusOK
		if IsEmpty(b.body) {
			status = http.StatusNoContent
		}
	}
	return &Response{Status: status, Headers: b.headers, Body: b.body, Spec: b.spec}, nil
}
