// Package callspec declares the shape of RPC and REST calls: the call path,
// the supported methods, and the header, URL parameter and body declarations
// of the request and the response.
//
// Call specifications are assembled by builders and are immutable once built,
// so a single specification may be shared by any number of concurrent calls.
package callspec

import (
	"errors"

	"github.com/mnehpets/callspec/body"
	"github.com/mnehpets/callspec/params"
	"github.com/mnehpets/callspec/urlparams"
)

var (
	ErrNilSpec             = errors.New("callspec: nil sub-spec")
	ErrDuplicateWebContext = errors.New("callspec: web context spec already set")
)

// RequestSpec declares the headers, URL parameters and body of a request.
type RequestSpec struct {
	headers   *params.Spec
	urlParams *urlparams.Spec
	body      *body.Spec
}

// NewRequestSpec returns a RequestSpec. None of the sub-specs may be nil.
func NewRequestSpec(headers *params.Spec, urlParams *urlparams.Spec, bodySpec *body.Spec) (*RequestSpec, error) {
	if headers == nil || urlParams == nil || bodySpec == nil {
		return nil, ErrNilSpec
	}
	return &RequestSpec{headers: headers, urlParams: urlParams, body: bodySpec}, nil
}

func (s *RequestSpec) Headers() *params.Spec      { return s.headers }
func (s *RequestSpec) URLParams() *urlparams.Spec { return s.urlParams }
func (s *RequestSpec) Body() *body.Spec           { return s.body }

// ResponseSpec declares the headers and body of a response.
type ResponseSpec struct {
	headers *params.Spec
	body    *body.Spec
}

// NewResponseSpec returns a ResponseSpec. None of the sub-specs may be nil.
func NewResponseSpec(headers *params.Spec, bodySpec *body.Spec) (*ResponseSpec, error) {
	if headers == nil || bodySpec == nil {
		return nil, ErrNilSpec
	}
	return &ResponseSpec{headers: headers, body: bodySpec}, nil
}

func (s *ResponseSpec) Headers() *params.Spec { return s.headers }
func (s *ResponseSpec) Body() *body.Spec      { return s.body }
