// Package client sends calls declared by callspec to a server.
//
// Client is synchronous and safe for concurrent use. Rest wraps it with typed
// CRUD and query calls for one resource, and Async runs calls in submission
// order on a single background goroutine.
package client

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/mnehpets/callspec/codec"
	"github.com/mnehpets/callspec/config"
	"github.com/mnehpets/callspec/envelope"
	"github.com/mnehpets/callspec/reason"
	"github.com/mnehpets/callspec/typed"
	"github.com/mnehpets/callspec/urlparams"
)

var ErrNilConfig = errors.New("client: nil config")

// Client sends request envelopes and receives response envelopes.
type Client struct {
	http     *http.Client
	baseURL  string
	inline   bool
	logger   *log.Logger
	mu       sync.Mutex
	token    string
	sender   *envelope.RequestSender
	receiver *envelope.ResponseReceiver
}

type options struct {
	httpClient   *http.Client
	tokenSource  oauth2.TokenSource
	codec        codec.Codec
	logger       *log.Logger
	registry     *typed.Registry
	contextToken string
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient replaces the HTTP client built from the config.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTokenSource authorizes every request with a bearer token from ts.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(o *options) { o.tokenSource = ts }
}

// WithCodec selects the body codec. Default: codec.JSON.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithLogger logs failed calls. Default: discard.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry provides object descriptors for URL parameters.
func WithRegistry(reg *typed.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithContextToken sends a sealed web context issued by the server on every
// call. A token re-issued by the server in a response replaces it.
func WithContextToken(token string) Option {
	return func(o *options) { o.contextToken = token }
}

// New returns a Client for the server described by cfg. cfg is validated on
// a copy; the caller's value is not modified.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	c := *cfg
	if err := c.Validate(); err != nil {
		return nil, err
	}

	o := options{codec: codec.JSON{}}
	for _, opt := range opts {
		opt(&o)
	}
	hc := o.httpClient
	if hc == nil {
		hc = c.HTTPClient()
	}
	if o.tokenSource != nil {
		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		authed := *hc
		authed.Transport = &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, o.tokenSource),
			Base:   base,
		}
		hc = &authed
	}
	logger := o.logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	sender := envelope.NewRequestSender(o.codec, urlparams.NewCodec(o.registry))
	sender.TunnelPut = c.TunnelPut
	return &Client{
		http:     hc,
		baseURL:  c.BaseURL,
		inline:   c.Inline,
		logger:   logger,
		token:    o.contextToken,
		sender:   sender,
		receiver: envelope.NewResponseReceiver(o.codec),
	}, nil
}

// Call sends req and returns the server's response. Every failure is a
// *reason.Error; transport failures are reported as LocalNetworkFailure.
func (c *Client) Call(ctx context.Context, req *envelope.Request) (*envelope.Response, error) {
	if c.inline && !req.Inlined {
		r := *req
		r.Inlined = true
		req = &r
	}
	resp, err := c.call(ctx, req)
	if err != nil {
		c.logger.Printf("callspec: %s %s: %v", req.Method, req.Spec.Path(), err)
		return nil, err
	}
	return resp, nil
}

func (c *Client) call(ctx context.Context, req *envelope.Request) (*envelope.Response, error) {
	hr, err := c.sender.NewHTTPRequest(ctx, c.baseURL, req)
	if err != nil {
		return nil, err
	}
	if token := c.ContextToken(); token != "" {
		hr.Header.Set(envelope.HeaderContext, token)
	}
	resp, err := c.http.Do(hr)
	if err != nil {
		return nil, reason.Wrap(reason.LocalNetworkFailure, err, "")
	}
	if token := resp.Header.Get(envelope.HeaderContext); token != "" {
		c.mu.Lock()
		c.token = token
		c.mu.Unlock()
	}
	return c.receiver.Receive(resp, req.Spec.ResponseSpec())
}

// ContextToken returns the sealed web context sent with each call, or "".
func (c *Client) ContextToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}
