package middleware

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/mnehpets/callspec/callspec"
	"github.com/mnehpets/callspec/codec"
	"github.com/mnehpets/callspec/endpoint"
	"github.com/mnehpets/callspec/envelope"
	"github.com/mnehpets/callspec/reason"
)

var (
	ErrTokenFormat  = errors.New("invalid context token format")
	ErrTokenInvalid = errors.New("invalid context token")
	ErrTokenExpired = errors.New("context token expired")
	ErrSealerConfig = errors.New("invalid context sealer configuration")
)

// maxTokenLen bounds the client-controlled data decoded for one token.
const maxTokenLen = 8192

// DefaultKeySize is the key length of the default AEAD, XChaCha20-Poly1305.
const DefaultKeySize = chacha20poly1305.KeySize

// ContextSealer seals the web context of a call into an opaque token that a
// client can present on later calls in the X-Callspec-Context header.
//
// Format: [keyID] "." base64url(nonce || AEAD.Seal(payload))
// where payload is CBOR and the additional data names the web-context
// headers, so a token only opens for the context it was issued for.
// keys holds every accepted key; keyID selects the sealing key.
type ContextSealer struct {
	keyID string
	keys  map[string]cipher.AEAD
	spec  *callspec.WebContextSpec
	ttl   time.Duration
	now   func() time.Time
	aad   []byte
}

type sealedContext struct {
	Expires int64             `cbor:"1,keyasint,omitempty"`
	Values  map[string]string `cbor:"2,keyasint"`
}

// SealerOption configures a ContextSealer.
type SealerOption func(*sealerConfig)

type sealerConfig struct {
	newAEAD func([]byte) (cipher.AEAD, error)
	ttl     time.Duration
	now     func() time.Time
}

// WithAEAD replaces the AEAD constructor, for example with AES-GCM.
func WithAEAD(f func([]byte) (cipher.AEAD, error)) SealerOption {
	return func(c *sealerConfig) { c.newAEAD = f }
}

// WithTTL bounds the lifetime of issued tokens. Zero means no expiry.
func WithTTL(d time.Duration) SealerOption {
	return func(c *sealerConfig) { c.ttl = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) SealerOption {
	return func(c *sealerConfig) { c.now = now }
}

// NewContextSealer returns a sealer for the web context described by spec.
func NewContextSealer(spec *callspec.WebContextSpec, keyID string, keys map[string][]byte, opts ...SealerOption) (*ContextSealer, error) {
	cfg := sealerConfig{newAEAD: chacha20poly1305.NewX, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if spec == nil || cfg.newAEAD == nil || cfg.now == nil {
		return nil, ErrSealerConfig
	}
	if _, ok := keys[keyID]; !ok {
		return nil, fmt.Errorf("%w: key %q not found", ErrSealerConfig, keyID)
	}
	s := &ContextSealer{
		keyID: keyID,
		keys:  make(map[string]cipher.AEAD, len(keys)),
		spec:  spec,
		ttl:   cfg.ttl,
		now:   cfg.now,
		aad:   []byte("callspec-context:" + strings.Join(spec.Headers().Names(), ",")),
	}
	for id, k := range keys {
		if id == "" || strings.Contains(id, ".") {
			return nil, fmt.Errorf("%w: bad key id %q", ErrSealerConfig, id)
		}
		aead, err := cfg.newAEAD(k)
		if err != nil {
			return nil, fmt.Errorf("invalid key %s: %w", id, err)
		}
		s.keys[id] = aead
	}
	return s, nil
}

// Seal returns a token carrying the present values of wc in their header
// text form.
func (s *ContextSealer) Seal(wc *callspec.WebContext) (string, error) {
	values := make(map[string]string)
	if wc != nil {
		for _, name := range wc.Names() {
			v, _ := wc.Get(name)
			text, err := codec.MarshalText(v)
			if err != nil {
				return "", fmt.Errorf("context value %s: %w", name, err)
			}
			values[name] = text
		}
	}
	return s.seal(values)
}

func (s *ContextSealer) seal(values map[string]string) (string, error) {
	payload := sealedContext{Values: values}
	if s.ttl > 0 {
		payload.Expires = s.now().Add(s.ttl).Unix()
	}
	plain, err := cbor.Marshal(payload)
	if err != nil {
		return "", err
	}

	aead := s.keys[s.keyID]
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, plain, s.aad)
	return s.keyID + "." + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open authenticates token and returns its header values by name.
func (s *ContextSealer) Open(token string) (map[string]string, error) {
	payload, err := s.open(token)
	if err != nil {
		return nil, err
	}
	return payload.Values, nil
}

func (s *ContextSealer) open(token string) (*sealedContext, error) {
	if len(token) == 0 || len(token) > maxTokenLen {
		return nil, ErrTokenFormat
	}
	keyID, enc, ok := strings.Cut(token, ".")
	if !ok || keyID == "" || enc == "" {
		return nil, ErrTokenFormat
	}
	aead, ok := s.keys[keyID]
	if !ok {
		return nil, ErrTokenInvalid
	}
	sealed, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return nil, ErrTokenFormat
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrTokenFormat
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, s.aad)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	var payload sealedContext
	if err := cbor.Unmarshal(plain, &payload); err != nil {
		return nil, ErrTokenInvalid
	}
	if payload.Expires != 0 && s.now().Unix() >= payload.Expires {
		return nil, ErrTokenExpired
	}
	headers := s.spec.Headers()
	for name := range payload.Values {
		if !headers.Contains(name) {
			return nil, ErrTokenInvalid
		}
	}
	return &payload, nil
}

// ContextProcessor makes a sealed X-Callspec-Context header the only source
// of the web-context request headers. Values the client sends for those
// headers are dropped; a request without a token continues with no web
// context.
//
// When RefreshWithin is set and the sealer issues expiring tokens, a token
// that expires within that window is re-issued with a full lifetime in the
// X-Callspec-Context response header.
type ContextProcessor struct {
	Sealer        *ContextSealer
	RefreshWithin time.Duration
}

// Process implements endpoint.Processor.
func (p *ContextProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if p.Sealer == nil {
		return endpoint.Error(reason.UnexpectedPermanentError, "", ErrSealerConfig)
	}
	token := r.Header.Get(envelope.HeaderContext)

	r = r.Clone(r.Context())
	r.Header.Del(envelope.HeaderContext)
	for _, name := range p.Sealer.spec.Headers().Names() {
		r.Header.Del(name)
	}
	if token == "" {
		return next(w, r)
	}

	payload, err := p.Sealer.open(token)
	if err != nil {
		return endpoint.Error(reason.Unauthorized, "invalid context token", err)
	}
	for name, v := range payload.Values {
		r.Header.Set(name, v)
	}
	if p.expiresSoon(payload) {
		fresh, err := p.Sealer.seal(payload.Values)
		if err != nil {
			return endpoint.Error(reason.UnexpectedPermanentError, "", err)
		}
		endpoint.Defer(r.Context(), func(w http.ResponseWriter) {
			w.Header().Set(envelope.HeaderContext, fresh)
		})
	}
	return next(w, r)
}

func (p *ContextProcessor) expiresSoon(payload *sealedContext) bool {
	if p.RefreshWithin <= 0 || p.Sealer.ttl <= 0 || payload.Expires == 0 {
		return false
	}
	return time.Unix(payload.Expires, 0).Sub(p.Sealer.now()) < p.RefreshWithin
}

var _ endpoint.Processor = (*ContextProcessor)(nil)
