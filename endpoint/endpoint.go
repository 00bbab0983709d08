// Package endpoint provides the HTTP handler abstraction calls are served
// through.
//
// A request passes through two phases:
//
//  1. Processors: middleware that may inspect or rewrite the request, set
//     response headers, or stop the chain with an error.
//  2. Endpoint: the EndpointFunc runs the call and returns a Renderer. It does
//     not write to the response directly; the Renderer writes the status,
//     headers and body.
//
// Errors returned by either phase are written as failed calls: the status of
// their reason.Reason, the reason header, and a plain text message.
package endpoint

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/mnehpets/callspec/reason"
)

// EndpointError is a client-visible error classified by a reason.
type EndpointError struct {
	Reason reason.Reason
	// Message is a short, human-readable description suitable for an HTTP error body.
	Message string
	Cause   error
}

func (e *EndpointError) Error() string {
	if e == nil {
		return "endpoint: error: <nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Reason.Status())
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *EndpointError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Error creates a new EndpointError. An err that already carries an
// EndpointError is returned unchanged.
func Error(r reason.Reason, message string, err error) error {
	var ee *EndpointError
	if errors.As(err, &ee) {
		return err
	}
	return &EndpointError{Reason: r, Message: message, Cause: err}
}

// toReason converts the errors of a handler chain for writing.
func toReason(err error) *reason.Error {
	var ee *EndpointError
	if errors.As(err, &ee) && ee != nil {
		return &reason.Error{Reason: ee.Reason, Message: ee.Message, Cause: ee.Cause}
	}
	return reason.From(err)
}

// respond stops a handler chain with a response other than an error.
type respond struct {
	renderer Renderer
}

func (r *respond) Error() string { return "endpoint: early response" }

// Respond returns an error that stops the chain and renders renderer in
// place of the EndpointFunc. Processors use it to answer requests, such as
// CORS preflights, themselves.
func Respond(renderer Renderer) error {
	return &respond{renderer: renderer}
}

// Renderers are values that write a response into an http.ResponseWriter.
//
// Protocol:
//   - Renderers MUST call w.WriteHeader() to write the HTTP response status
//     and headers.
//   - Renderers may optionally write the Content-Type header before
//     calling w.WriteHeader().
//
// If Render returns a non-nil error, writing the response failed. The
// response may already be partially written.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// RendererFunc adapts a function to a Renderer.
type RendererFunc func(w http.ResponseWriter, r *http.Request) error

func (f RendererFunc) Render(w http.ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// Processor is middleware-style logic that runs before the Renderer.
//
// Protocol:
//   - Processors MUST call next(...), unless they intend to
//     short-circuit the request.
//   - Processors MUST NOT call w.WriteHeader(...).
//   - Processors MUST NOT write to the response body.
//
// If any processor returns a non-nil error, the chain stops immediately.
type Processor interface {
	Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error

func (f ProcessorFunc) Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error {
	return f(w, r, next)
}

// EndpointFunc runs a call and returns the Renderer of its result.
type EndpointFunc func(w http.ResponseWriter, r *http.Request) (Renderer, error)

// EndpointHandler is the http.Handler running processors followed by an
// EndpointFunc.
type EndpointHandler struct {
	Endpoint   EndpointFunc
	Processors []Processor
}

// Handler constructs an EndpointHandler.
func Handler(fn EndpointFunc, processors ...Processor) *EndpointHandler {
	return &EndpointHandler{
		Endpoint:   fn,
		Processors: processors,
	}
}

// HandleFunc adapts an EndpointFunc into an http.HandlerFunc.
func HandleFunc(fn EndpointFunc, processors ...Processor) http.HandlerFunc {
	return Handler(fn, processors...).ServeHTTP
}

type hooksKey struct{}

// Defer registers a function to be called before the response headers are written.
// The function fn must not call WriteHeader itself.
//
// Outside an EndpointHandler, Defer is a no-op.
func Defer(ctx context.Context, fn func(http.ResponseWriter)) {
	hooks, ok := ctx.Value(hooksKey{}).(*[]func(http.ResponseWriter))
	if ok && hooks != nil {
		*hooks = append(*hooks, fn)
	}
}

// Commit executes all deferred functions registered via Defer, in LIFO
// order. It should be called exactly once before writing headers.
func Commit(ctx context.Context, w http.ResponseWriter) {
	hooks, ok := ctx.Value(hooksKey{}).(*[]func(http.ResponseWriter))
	if ok && hooks != nil {
		for i := len(*hooks) - 1; i >= 0; i-- {
			(*hooks)[i](w)
		}
		// Clear hooks to prevent re-execution
		*hooks = nil
	}
}

func render(w http.ResponseWriter, r *http.Request, renderer Renderer) error {
	if c, ok := renderer.(io.Closer); ok {
		defer c.Close()
	}
	Commit(r.Context(), w)
	return renderer.Render(w, r)
}

// ServeHTTP implements http.Handler.
func (h *EndpointHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Endpoint == nil {
		reason.Write(w, reason.New(reason.UnexpectedPermanentError, "endpoint: nil EndpointFunc"))
		return
	}

	if r.Context().Value(hooksKey{}) == nil {
		var hooks []func(http.ResponseWriter)
		ctx := context.WithValue(r.Context(), hooksKey{}, &hooks)
		r = r.WithContext(ctx)
	}

	// Call each processor in order, followed by the EndpointFunc.
	var run func(i int, w2 http.ResponseWriter, r2 *http.Request) error
	run = func(i int, w2 http.ResponseWriter, r2 *http.Request) error {
		if i < len(h.Processors) {
			if h.Processors[i] == nil {
				return errors.New("endpoint: nil processor")
			}
			return h.Processors[i].Process(w2, r2, func(w3 http.ResponseWriter, r3 *http.Request) error {
				return run(i+1, w3, r3)
			})
		}

		renderer, err := h.Endpoint(w2, r2)
		if err != nil {
			return err
		}
		if renderer == nil {
			return errors.New("endpoint: nil renderer")
		}
		return render(w2, r2, renderer)
	}

	err := run(0, w, r)
	if err == nil {
		return
	}
	var early *respond
	if errors.As(err, &early) && early.renderer != nil {
		if err = render(w, r, early.renderer); err == nil {
			return
		}
	}
	Commit(r.Context(), w)
	reason.Write(w, toReason(err))
}
