package dispatch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"

	"github.com/mnehpets/callspec/body"
	"github.com/mnehpets/callspec/callspec"
	"github.com/mnehpets/callspec/codec"
	"github.com/mnehpets/callspec/endpoint"
	"github.com/mnehpets/callspec/envelope"
	"github.com/mnehpets/callspec/reason"
	"github.com/mnehpets/callspec/typed"
	"github.com/mnehpets/callspec/urlparams"
)

// Options configures a Dispatcher.
type Options struct {
	// ResourcePrefix is the path prefix of resource calls. Paths outside
	// it are RPCs.
	ResourcePrefix string
	// Codec encodes bodies. Default: codec.JSON.
	Codec codec.Codec
	// Registry provides object descriptors for URL parameters.
	Registry *typed.Registry
	// MaxBodyBytes bounds request bodies. Default: envelope.DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// Processors run before every call.
	Processors []endpoint.Processor
	// Logger receives failed calls. Default: discard.
	Logger *log.Logger
}

type route struct {
	kind      Kind
	spec      *callspec.WebServiceCallSpec
	queryName string
	serve     func(ctx context.Context, call *Call) (*envelope.Response, error)
}

func (rt *route) key() string {
	return rt.kind.String() + " " + rt.spec.Path().PathPrefix() + "?" + rt.queryName
}

// Dispatcher is a registry of calls. Use it as an http.Handler, or pass
// Endpoint to endpoint.Handler.
type Dispatcher struct {
	mu     sync.RWMutex
	routes []*route
	keys   map[string]struct{}

	prefix   string
	receiver *envelope.RequestReceiver
	sender   *envelope.ResponseSender
	handler  http.Handler
	logger   *log.Logger
	seq      Sequence
}

// New creates a Dispatcher.
func New(opts Options) *Dispatcher {
	c := opts.Codec
	if c == nil {
		c = codec.JSON{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	receiver := envelope.NewRequestReceiver(c, urlparams.NewCodec(opts.Registry))
	receiver.MaxBodyBytes = opts.MaxBodyBytes
	d := &Dispatcher{
		keys:     make(map[string]struct{}),
		prefix:   opts.ResourcePrefix,
		receiver: receiver,
		sender:   envelope.NewResponseSender(c),
		logger:   logger,
	}
	d.handler = endpoint.Handler(d.Endpoint, opts.Processors...)
	return d
}

// register adds rt. Registering the same call twice panics.
func (d *Dispatcher) register(rt *route) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := rt.key()
	if _, exists := d.keys[k]; exists {
		panic("dispatch: call collision: " + k)
	}
	d.keys[k] = struct{}{}
	d.routes = append(d.routes, rt)
	// Longest prefix first, so nested service paths win.
	sort.SliceStable(d.routes, func(i, j int) bool {
		return len(d.routes[i].spec.Path().PathPrefix()) > len(d.routes[j].spec.Path().PathPrefix())
	})
}

func (d *Dispatcher) lookup(kind Kind, path, queryName string) *route {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, rt := range d.routes {
		if rt.kind != kind || rt.queryName != queryName {
			continue
		}
		if p, err := rt.spec.Parser().Parse(path); err == nil && rt.spec.Path().Matches(p) {
			return rt
		}
	}
	return nil
}

func (d *Dispatcher) checkKind(want Kind, spec *callspec.WebServiceCallSpec) {
	got := RPC
	if d.prefix != "" && hasPathPrefix(spec.Path().PathPrefix(), d.prefix) {
		got = ResourceAccess
	}
	if (want == RPC) != (got == RPC) {
		panic(fmt.Sprintf("dispatch: %s call at %s is classified as %s", want, spec.Path().PathPrefix(), got))
	}
}

// RegisterResource registers the CRUD calls of spec, served by h.
func RegisterResource[R any](d *Dispatcher, spec *callspec.RestCallSpec, h RestHandler[R]) {
	if spec.ResourceType() != typed.TypeOf[R]() {
		panic(fmt.Sprintf("dispatch: %s declares %v, handler serves %v", spec.Path().PathPrefix(), spec.ResourceType(), typed.TypeOf[R]()))
	}
	d.checkKind(ResourceAccess, spec.WebServiceCallSpec)
	respSpec := spec.ResponseSpec()
	d.register(&route{
		kind: ResourceAccess,
		spec: spec.WebServiceCallSpec,
		serve: func(ctx context.Context, call *Call) (*envelope.Response, error) {
			id := call.ResourceID()
			rb := envelope.NewResponseBuilder(respSpec)
			switch call.Request.Method {
			case callspec.MethodGet:
				if id == "" {
					return nil, reason.New(reason.BadRequest, "resource id required")
				}
				r, err := h.Get(ctx, call, id)
				if err != nil {
					return nil, err
				}
				rb.Value(r)
			case callspec.MethodPost:
				if id != "" {
					return nil, reason.New(reason.BadRequest, "resource id not allowed on create")
				}
				in, err := resourceOf[R](call.Request.Body)
				if err != nil {
					return nil, err
				}
				r, err := h.Post(ctx, call, in)
				if err != nil {
					return nil, err
				}
				rb.Status(http.StatusCreated).Value(r)
			case callspec.MethodPut:
				if id == "" {
					return nil, reason.New(reason.BadRequest, "resource id required")
				}
				in, err := resourceOf[R](call.Request.Body)
				if err != nil {
					return nil, err
				}
				r, err := h.Put(ctx, call, id, in)
				if err != nil {
					return nil, err
				}
				rb.Value(r)
			case callspec.MethodDelete:
				if id == "" {
					return nil, reason.New(reason.BadRequest, "resource id required")
				}
				if err := h.Delete(ctx, call, id); err != nil {
					return nil, err
				}
				rb.Status(http.StatusNoContent)
			default:
				return nil, reason.Errorf(reason.BadRequest, "%s not supported on resources", call.Request.Method)
			}
			return rb.Build()
		},
	})
}

func resourceOf[R any](b body.Body) (R, error) {
	var zero R
	s, ok := b.(*body.Simple)
	if !ok || s.Value == nil {
		return zero, reason.New(reason.BadRequest, "resource body required")
	}
	r, ok := s.Value.(R)
	if !ok {
		return zero, reason.Errorf(reason.BadRequest, "resource body of type %T", s.Value)
	}
	return r, nil
}

// RegisterQuery registers the named query spec, served by h.
func RegisterQuery[R any](d *Dispatcher, spec *callspec.QuerySpec, h QueryHandler[R]) {
	if spec.ResourceType() != typed.TypeOf[R]() {
		panic(fmt.Sprintf("dispatch: query %s declares %v, handler serves %v", spec.QueryName(), spec.ResourceType(), typed.TypeOf[R]()))
	}
	d.checkKind(ResourceQuery, spec.WebServiceCallSpec)
	bodySpec := spec.ResponseSpec().Body()
	d.register(&route{
		kind:      ResourceQuery,
		spec:      spec.WebServiceCallSpec,
		queryName: spec.QueryName(),
		serve: func(ctx context.Context, call *Call) (*envelope.Response, error) {
			rs, err := h(ctx, call)
			if err != nil {
				return nil, err
			}
			values := make([]any, len(rs))
			for i, r := range rs {
				values[i] = r
			}
			list, err := body.NewList(bodySpec, values...)
			if err != nil {
				return nil, err
			}
			return envelope.NewResponseBuilder(spec.ResponseSpec()).Status(http.StatusOK).Body(list).Build()
		},
	})
}

// RegisterRPC registers spec, served by h.
func RegisterRPC(d *Dispatcher, spec *callspec.WebServiceCallSpec, h RPCHandler) {
	d.checkKind(RPC, spec)
	d.register(&route{
		kind: RPC,
		spec: spec,
		serve: func(ctx context.Context, call *Call) (*envelope.Response, error) {
			rb := envelope.NewResponseBuilder(spec.ResponseSpec())
			if err := h(ctx, call, rb); err != nil {
				return nil, err
			}
			return rb.Build()
		},
	})
}

// Endpoint is the endpoint.EndpointFunc dispatching one call.
func (d *Dispatcher) Endpoint(_ http.ResponseWriter, r *http.Request) (endpoint.Renderer, error) {
	id := d.seq.Next()
	resp, err := d.dispatch(r, id)
	if err != nil {
		re := reason.From(err)
		d.logger.Printf("dispatch: call %d %s %s: %v", id, r.Method, r.URL.Path, re)
		return nil, re
	}
	return endpoint.RendererFunc(func(w http.ResponseWriter, _ *http.Request) error {
		return d.sender.Send(w, resp)
	}), nil
}

func (d *Dispatcher) dispatch(r *http.Request, id int64) (resp *envelope.Response, err error) {
	queryName := r.URL.Query().Get(callspec.QueryNameParam)
	kind := Classify(r.URL.Path, queryName, d.prefix)
	rt := d.lookup(kind, r.URL.Path, queryName)
	if rt == nil {
		return nil, reason.Errorf(reason.InvalidCallPath, "no %s call at %s", kind, r.URL.Path)
	}
	req, err := d.receiver.Receive(r, rt.spec)
	if err != nil {
		return nil, err
	}
	call := &Call{Kind: kind, Request: req, ID: id}
	if wc := rt.spec.WebContext(); wc != nil {
		call.WebContext = wc.From(req.Headers)
	}

	defer func() {
		if p := recover(); p != nil {
			d.logger.Printf("dispatch: call %d panic: %v", id, p)
			resp, err = nil, reason.New(reason.UnexpectedPermanentError, "internal error")
		}
	}()
	return rt.serve(r.Context(), call)
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.handler.ServeHTTP(w, r)
}

// Entry describes a registered call.
type Entry struct {
	Kind    string   `json:"kind"`
	Path    string   `json:"path"`
	Query   string   `json:"query,omitempty"`
	Methods []string `json:"methods"`
}

// Catalog lists the registered calls, ordered by path.
func (d *Dispatcher) Catalog() []Entry {
	d.mu.RLock()
	entries := make([]Entry, 0, len(d.routes))
	for _, rt := range d.routes {
		var methods []string
		for _, m := range rt.spec.SupportedMethods().Methods() {
			methods = append(methods, string(m))
		}
		entries = append(entries, Entry{
			Kind:    rt.kind.String(),
			Path:    rt.spec.Path().PathPrefix(),
			Query:   rt.queryName,
			Methods: methods,
		})
	}
	d.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Path != entries[j].Path {
			return entries[i].Path < entries[j].Path
		}
		return entries[i].Query < entries[j].Query
	})
	return entries
}

// CatalogEndpoint serves Catalog as JSON.
func (d *Dispatcher) CatalogEndpoint(_ http.ResponseWriter, _ *http.Request) (endpoint.Renderer, error) {
	return &endpoint.ValueRenderer{Value: d.Catalog()}, nil
}
