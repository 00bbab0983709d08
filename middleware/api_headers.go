package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/mnehpets/callspec/endpoint"
	"github.com/mnehpets/callspec/envelope"
)

// APIHeadersProcessor sets the response headers recommended for a JSON API
// and answers CORS preflight requests.
//
// The defaults from NewAPIHeadersProcessor are:
//   - Strict-Transport-Security: max-age=31536000; includeSubDomains
//   - Referrer-Policy: no-referrer
//   - X-Frame-Options: DENY
//   - X-Content-Type-Options: nosniff
//   - Content-Security-Policy: default-src 'none'; frame-ancestors 'none'
//
// CORS is off until configured with WithCORS.
type APIHeadersProcessor struct {
	// HSTS configures Strict-Transport-Security. Nil disables it.
	HSTS *HSTSConfig

	// ReferrerPolicy sets Referrer-Policy. Empty disables it.
	ReferrerPolicy string

	// FrameOptions sets X-Frame-Options. Empty disables it.
	FrameOptions string

	// NoSniff sets X-Content-Type-Options: nosniff.
	NoSniff bool

	// ContentSecurityPolicy sets Content-Security-Policy. Empty disables it.
	ContentSecurityPolicy string

	// CORS configures cross-origin access. Nil disables it.
	CORS *CORSConfig
}

// HSTSConfig configures HTTP Strict Transport Security.
type HSTSConfig struct {
	// MaxAge in seconds. A value <= 0 omits the header.
	MaxAge            int
	IncludeSubDomains bool
	Preload           bool
}

// CORSConfig configures Cross-Origin Resource Sharing.
//
// The headers used by callspec clients are always allowed or exposed in
// addition to the configured ones: Content-Type, X-HTTP-Method-Override and
// X-Callspec-Context are allowed, X-Callspec-Error-Reason and
// X-Callspec-Context are exposed.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call the API. "*" allows any
	// origin unless AllowCredentials is set.
	AllowedOrigins []string

	// AllowedMethods defaults to GET, POST, PUT, DELETE and OPTIONS.
	AllowedMethods []string

	AllowedHeaders []string
	ExposedHeaders []string

	AllowCredentials bool

	// MaxAge is how long, in seconds, a preflight result can be cached.
	MaxAge int
}

var (
	defaultCORSMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
	}
	callspecRequestHeaders = []string{
		envelope.HeaderContentType, envelope.HeaderMethodOverride, envelope.HeaderContext,
	}
	callspecResponseHeaders = []string{envelope.HeaderErrorReason, envelope.HeaderContext}
)

// APIHeadersOption configures an APIHeadersProcessor.
type APIHeadersOption func(*APIHeadersProcessor)

// NewAPIHeadersProcessor returns a processor with the API defaults.
func NewAPIHeadersProcessor(opts ...APIHeadersOption) *APIHeadersProcessor {
	p := &APIHeadersProcessor{
		HSTS: &HSTSConfig{
			MaxAge:            31536000,
			IncludeSubDomains: true,
		},
		ReferrerPolicy:        "no-referrer",
		FrameOptions:          "DENY",
		NoSniff:               true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithHSTS replaces the HSTS settings.
func WithHSTS(maxAge int, includeSubDomains, preload bool) APIHeadersOption {
	return func(p *APIHeadersProcessor) {
		p.HSTS = &HSTSConfig{MaxAge: maxAge, IncludeSubDomains: includeSubDomains, Preload: preload}
	}
}

// WithoutHSTS disables Strict-Transport-Security, typically for plain HTTP
// development servers.
func WithoutHSTS() APIHeadersOption {
	return func(p *APIHeadersProcessor) { p.HSTS = nil }
}

func WithReferrerPolicy(policy string) APIHeadersOption {
	return func(p *APIHeadersProcessor) { p.ReferrerPolicy = policy }
}

func WithFrameOptions(options string) APIHeadersOption {
	return func(p *APIHeadersProcessor) { p.FrameOptions = options }
}

func WithCSP(policy string) APIHeadersOption {
	return func(p *APIHeadersProcessor) { p.ContentSecurityPolicy = policy }
}

// WithCORS enables cross-origin access.
func WithCORS(config *CORSConfig) APIHeadersOption {
	return func(p *APIHeadersProcessor) { p.CORS = config }
}

// Process implements endpoint.Processor.
func (p *APIHeadersProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	h := w.Header()
	if v := p.HSTS.value(); v != "" {
		h.Set("Strict-Transport-Security", v)
	}
	if p.ReferrerPolicy != "" {
		h.Set("Referrer-Policy", p.ReferrerPolicy)
	}
	if p.FrameOptions != "" {
		h.Set("X-Frame-Options", p.FrameOptions)
	}
	if p.NoSniff {
		h.Set("X-Content-Type-Options", "nosniff")
	}
	if p.ContentSecurityPolicy != "" {
		h.Set("Content-Security-Policy", p.ContentSecurityPolicy)
	}

	if p.CORS != nil && r.Header.Get("Origin") != "" {
		p.CORS.apply(h, r)
		if isPreflight(r) {
			return endpoint.Respond(&endpoint.NoContentRenderer{})
		}
	}
	return next(w, r)
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

func (c *HSTSConfig) value() string {
	if c == nil || c.MaxAge <= 0 {
		return ""
	}
	v := "max-age=" + strconv.Itoa(c.MaxAge)
	if c.IncludeSubDomains {
		v += "; includeSubDomains"
	}
	if c.Preload {
		v += "; preload"
	}
	return v
}

// apply sets the CORS headers for a request carrying an Origin header.
func (c *CORSConfig) apply(h http.Header, r *http.Request) {
	origin := r.Header.Get("Origin")
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" && !c.AllowCredentials {
			h.Set("Access-Control-Allow-Origin", "*")
			break
		}
		if allowed == origin {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			break
		}
	}
	if c.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	h.Set("Access-Control-Expose-Headers", joinUnique(callspecResponseHeaders, c.ExposedHeaders))

	if r.Method != http.MethodOptions {
		return
	}
	methods := c.AllowedMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	h.Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))
	h.Set("Access-Control-Allow-Headers", joinUnique(callspecRequestHeaders, c.AllowedHeaders))
	if c.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(c.MaxAge))
	}
}

// joinUnique joins header names, dropping case-insensitive duplicates.
func joinUnique(base, extra []string) string {
	var names, seen []string
	for _, name := range slices.Concat(base, extra) {
		canonical := http.CanonicalHeaderKey(name)
		if !slices.Contains(seen, canonical) {
			seen = append(seen, canonical)
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

var _ endpoint.Processor = (*APIHeadersProcessor)(nil)
