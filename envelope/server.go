package envelope

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/mnehpets/callspec/callspec"
	"github.com/mnehpets/callspec/codec"
	"github.com/mnehpets/callspec/reason"
	"github.com/mnehpets/callspec/urlparams"
)

// DefaultMaxBodyBytes bounds request bodies when RequestReceiver.MaxBodyBytes
// is zero.
const DefaultMaxBodyBytes = 10 << 20

// RequestReceiver parses an *http.Request into a Request.
type RequestReceiver struct {
	Codec        codec.Codec
	URLParams    *urlparams.Codec
	MaxBodyBytes int64
}

func NewRequestReceiver(c codec.Codec, up *urlparams.Codec) *RequestReceiver {
	return &RequestReceiver{Codec: c, URLParams: up}
}

// Receive parses r as a call to spec. The returned request's spec is bound
// to the parsed call path. A POST carrying the method override header is
// received as the overriding method. For inlined requests, values embedded
// in the body fill headers and URL parameters absent from the request
// itself. Web-context headers are never taken from the body; they arrive as
// request headers only.
func (rr *RequestReceiver) Receive(r *http.Request, spec *callspec.WebServiceCallSpec) (*Request, error) {
	path, err := spec.Parser().Parse(r.URL.Path)
	if err != nil {
		return nil, reason.From(err)
	}
	if !spec.Path().Matches(path) {
		return nil, reason.Errorf(reason.InvalidCallPath, "%s is not a call to %s", r.URL.Path, spec.Path().PathPrefix())
	}
	spec = spec.CreateCopy(path)

	method, err := callspec.ParseMethod(r.Method)
	if err != nil {
		return nil, reason.Wrap(reason.BadRequest, err, "")
	}
	if o := r.Header.Get(HeaderMethodOverride); o != "" && method == callspec.MethodPost {
		if method, err = callspec.ParseMethod(o); err != nil {
			return nil, reason.Wrap(reason.BadRequest, err, "method override")
		}
	}
	if !spec.Supports(method) {
		return nil, reason.Errorf(reason.BadRequest, "method %s not supported by %s", method, path.PathPrefix())
	}

	data, err := rr.readBody(r)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 && !codec.SameMediaType(r.Header.Get(HeaderContentType), rr.Codec.ContentType()) {
		return nil, reason.Errorf(reason.BadRequest, "unsupported content type %q", r.Header.Get(HeaderContentType))
	}

	query := r.URL.Query()
	header := r.Header
	inline := query.Get(ParamInline) == "true"
	query.Del(ParamInline)
	if inline && len(data) > 0 {
		in, err := decodeInline(rr.Codec, data)
		if err != nil {
			return nil, reason.Wrap(reason.BadRequest, err, "decoding inline body")
		}
		header = header.Clone()
		wc := spec.WebContext()
		for _, m := range in.headers {
			if header.Get(m.Name) != "" {
				continue
			}
			if isContextHeader(wc, m.Name) {
				continue
			}
			v, err := text(rr.Codec, m)
			if err != nil {
				return nil, reason.Wrap(reason.BadRequest, err, "")
			}
			header.Set(m.Name, v)
		}
		for _, m := range in.urlParams {
			if query.Has(m.Name) {
				continue
			}
			v, err := text(rr.Codec, m)
			if err != nil {
				return nil, reason.Wrap(reason.BadRequest, err, "")
			}
			query.Set(m.Name, v)
		}
		data = in.body
	}

	reqSpec := spec.RequestSpec()
	headers, err := readHeaders(header, reqSpec.Headers())
	if err != nil {
		return nil, reason.Wrap(reason.BadRequest, err, "decoding request headers")
	}
	ups, err := rr.URLParams.DecodeValues(query, reqSpec.URLParams())
	if err != nil {
		return nil, reason.Wrap(reason.BadRequest, err, "decoding URL parameters")
	}
	b, err := DecodeBody(rr.Codec, reqSpec.Body(), data)
	if err != nil {
		return nil, reason.Wrap(reason.BadRequest, err, "decoding request body")
	}
	return &Request{
		Method:    method,
		Headers:   headers,
		URLParams: ups,
		Body:      b,
		Spec:      spec,
		Inlined:   inline,
	}, nil
}

func isContextHeader(wc *callspec.WebContextSpec, name string) bool {
	if wc == nil {
		return false
	}
	for _, h := range wc.Headers().Names() {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}

func (rr *RequestReceiver) readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	limit := rr.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, reason.Wrap(reason.BadRequest, err, "request body too large")
		}
		return nil, reason.Wrap(reason.UnexpectedRetryableError, err, "reading request body")
	}
	return data, nil
}

// ResponseSender writes a Response to an http.ResponseWriter.
type ResponseSender struct {
	Codec codec.Codec
}

func NewResponseSender(c codec.Codec) *ResponseSender {
	return &ResponseSender{Codec: c}
}

// Send writes resp. Nothing has been written when an encoding error is
// returned.
func (s *ResponseSender) Send(w http.ResponseWriter, resp *Response) error {
	data, err := EncodeBody(s.Codec, resp.Body)
	if err != nil {
		return reason.Wrap(reason.UnexpectedPermanentError, err, "encoding response body")
	}
	if err := writeHeaders(w.Header(), resp.Headers); err != nil {
		return reason.Wrap(reason.UnexpectedPermanentError, err, "encoding response headers")
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	if len(data) > 0 {
		w.Header().Set(HeaderContentType, s.Codec.ContentType())
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	}
	w.WriteHeader(status)
	if len(data) == 0 {
		return nil
	}
	_, err = w.Write(data)
	return err
}

// SendError writes err as a failed call.
func (s *ResponseSender) SendError(w http.ResponseWriter, err error) {
	reason.Write(w, err)
}
