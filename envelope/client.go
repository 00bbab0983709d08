package envelope

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mnehpets/callspec/callpath"
	"github.com/mnehpets/callspec/callspec"
	"github.com/mnehpets/callspec/codec"
	"github.com/mnehpets/callspec/reason"
	"github.com/mnehpets/callspec/urlparams"
)

// maxErrorBody bounds the response text kept on a received error.
const maxErrorBody = 64 << 10

// RequestSender turns a Request into an *http.Request.
type RequestSender struct {
	Codec     codec.Codec
	URLParams *urlparams.Codec
	// TunnelPut sends PUT as POST with the method override header.
	TunnelPut bool
}

// NewRequestSender returns a sender using c for bodies and up for URL
// parameters.
func NewRequestSender(c codec.Codec, up *urlparams.Codec) *RequestSender {
	return &RequestSender{Codec: c, URLParams: up}
}

// NewHTTPRequest builds the HTTP request for req against baseURL. Headers
// are written in spec order. GET and HEAD requests carry no body unless the
// request is inlined.
func (s *RequestSender) NewHTTPRequest(ctx context.Context, baseURL string, req *Request) (*http.Request, error) {
	method := req.Method
	h := make(http.Header)
	if method == callspec.MethodPut && s.TunnelPut {
		h.Set(HeaderMethodOverride, string(method))
		method = callspec.MethodPost
	}
	if err := writeHeaders(h, req.Headers); err != nil {
		return nil, reason.Wrap(reason.BadRequest, err, "encoding request headers")
	}
	pairs, err := s.URLParams.Pairs(req.URLParams)
	if err != nil {
		return nil, reason.Wrap(reason.BadRequest, err, "encoding URL parameters")
	}

	var data []byte
	if req.Method != callspec.MethodGet && req.Method != callspec.MethodHead {
		data, err = EncodeBody(s.Codec, req.Body)
		if err != nil {
			return nil, reason.Wrap(reason.BadRequest, err, "encoding request body")
		}
	}
	if req.Inlined {
		var hs []urlparams.Pair
		for _, name := range req.Headers.Spec().Names() {
			if v := h.Get(name); v != "" {
				hs = append(hs, urlparams.Pair{Name: name, Value: v})
			}
		}
		data, err = encodeInline(s.Codec, hs, pairs, data)
		if err != nil {
			return nil, reason.Wrap(reason.BadRequest, err, "encoding inline body")
		}
		pairs = append(pairs, urlparams.Pair{Name: ParamInline, Value: "true"})
	}

	u := strings.TrimSuffix(baseURL, "/") + EscapedPath(req.Spec.Path()) + urlparams.EncodePairs(pairs)
	var rd io.Reader = http.NoBody
	if len(data) > 0 {
		rd = bytes.NewReader(data)
	}
	hr, err := http.NewRequestWithContext(ctx, string(method), u, rd)
	if err != nil {
		return nil, reason.Wrap(reason.BadRequest, err, "building request")
	}
	for k, vs := range h {
		hr.Header[k] = vs
	}
	if len(data) > 0 {
		hr.Header.Set(HeaderContentType, s.Codec.ContentType())
		hr.ContentLength = int64(len(data))
	}
	return hr, nil
}

// EscapedPath returns the URL path of p with the resource id escaped.
func EscapedPath(p callpath.CallPath) string {
	if !p.HasResourceID() {
		return p.PathPrefix()
	}
	return p.PathPrefix() + "/" + url.PathEscape(p.ResourceID())
}

// ResponseReceiver parses an *http.Response into a Response.
type ResponseReceiver struct {
	Codec codec.Codec
}

func NewResponseReceiver(c codec.Codec) *ResponseReceiver {
	return &ResponseReceiver{Codec: c}
}

// Receive reads and closes resp.Body. A non-2xx status or an error reason
// header yields a *reason.Error carrying the response text.
func (rr *ResponseReceiver) Receive(resp *http.Response, spec *callspec.ResponseSpec) (*Response, error) {
	defer resp.Body.Close()
	token := resp.Header.Get(HeaderErrorReason)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || token != "" {
		return nil, errorFromResponse(resp, token)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, reason.Wrap(reason.LocalNetworkFailure, err, "reading response body")
	}
	headers, err := readHeaders(resp.Header, spec.Headers())
	if err != nil {
		return nil, reason.Wrap(reason.BadRequest, err, "decoding response headers")
	}
	if len(data) > 0 && !codec.SameMediaType(resp.Header.Get(HeaderContentType), rr.Codec.ContentType()) {
		return nil, reason.Errorf(reason.BadRequest, "response content type %q, want %q",
			resp.Header.Get(HeaderContentType), rr.Codec.ContentType())
	}
	b, err := DecodeBody(rr.Codec, spec.Body(), data)
	if err != nil {
		return nil, reason.Wrap(reason.BadRequest, err, "decoding response body")
	}
	return &Response{Status: resp.StatusCode, Headers: headers, Body: b, Spec: spec}, nil
}

func errorFromResponse(resp *http.Response, token string) *reason.Error {
	r, ok := reason.Parse(token)
	if !ok {
		r = reason.FromStatus(resp.StatusCode)
	}
	return &reason.Error{
		Reason:  r,
		Message: "server responded " + resp.Status,
		Body:    responseText(resp),
	}
}

// responseText returns the start of the response body. Read failures are
// ignored: the text only adds context to an error.
func responseText(resp *http.Response) string {
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
