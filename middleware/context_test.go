package middleware

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mnehpets/callspec/callspec"
	"github.com/mnehpets/callspec/endpoint"
	"github.com/mnehpets/callspec/envelope"
	"github.com/mnehpets/callspec/params"
	"github.com/mnehpets/callspec/reason"
	"github.com/mnehpets/callspec/typed"
)

var (
	tenantKey = typed.NewKey[string]("X-Tenant")
	regionKey = typed.NewKey[int]("X-Region-Id")
)

func newAESGCMAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func randomKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, DefaultKeySize)
	if _, err := rand.Read(k); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return k
}

func contextSpec(t *testing.T) *callspec.WebContextSpec {
	t.Helper()
	spec, err := callspec.NewWebContextSpec(tenantKey, regionKey)
	if err != nil {
		t.Fatalf("NewWebContextSpec: %v", err)
	}
	return spec
}

func webContext(t *testing.T, spec *callspec.WebContextSpec, tenant string, region int) *callspec.WebContext {
	t.Helper()
	m := params.NewMap(spec.Headers())
	if err := params.Set(m, tenantKey, tenant); err != nil {
		t.Fatal(err)
	}
	if err := params.Set(m, regionKey, region); err != nil {
		t.Fatal(err)
	}
	return spec.From(m)
}

func TestContextSealer_RoundTrip(t *testing.T) {
	spec := contextSpec(t)
	s, err := NewContextSealer(spec, "a", map[string][]byte{"a": randomKey(t)})
	if err != nil {
		t.Fatalf("NewContextSealer: %v", err)
	}

	token, err := s.Seal(webContext(t, spec, "acme", 7))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !strings.HasPrefix(token, "a.") {
		t.Fatalf("token should start with the key id: %q", token)
	}
	got, err := s.Open(token)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := map[string]string{"X-Tenant": "acme", "X-Region-Id": "7"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Open mismatch (-want +got):\n%s", diff)
	}
}

func TestContextSealer_KeyRotation(t *testing.T) {
	spec := contextSpec(t)
	keys := map[string][]byte{"old": randomKey(t), "new": randomKey(t)}
	oldSealer, err := NewContextSealer(spec, "old", keys)
	if err != nil {
		t.Fatal(err)
	}
	token, err := oldSealer.Seal(webContext(t, spec, "acme", 1))
	if err != nil {
		t.Fatal(err)
	}

	newSealer, err := NewContextSealer(spec, "new", keys)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := newSealer.Open(token); err != nil {
		t.Fatalf("token sealed with a retired key should open: %v", err)
	}

	retired, err := NewContextSealer(spec, "new", map[string][]byte{"new": keys["new"]})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := retired.Open(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Open with dropped key: got %v, want %v", err, ErrTokenInvalid)
	}
}

func TestContextSealer_CustomAEAD(t *testing.T) {
	spec := contextSpec(t)
	key := make([]byte, 16)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	s, err := NewContextSealer(spec, "gcm", map[string][]byte{"gcm": key}, WithAEAD(newAESGCMAEAD))
	if err != nil {
		t.Fatalf("NewContextSealer: %v", err)
	}
	token, err := s.Seal(webContext(t, spec, "acme", 2))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Open(token); err != nil {
		t.Fatalf("Open: %v", err)
	}
}

func TestContextSealer_Expiry(t *testing.T) {
	spec := contextSpec(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s, err := NewContextSealer(spec, "a", map[string][]byte{"a": randomKey(t)},
		WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	token, err := s.Seal(webContext(t, spec, "acme", 3))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Open(token); err != nil {
		t.Fatalf("fresh token: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := s.Open(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired token: got %v, want %v", err, ErrTokenExpired)
	}
}

func TestContextSealer_BoundToContextSpec(t *testing.T) {
	keys := map[string][]byte{"a": randomKey(t)}
	spec := contextSpec(t)
	s, err := NewContextSealer(spec, "a", keys)
	if err != nil {
		t.Fatal(err)
	}
	token, err := s.Seal(webContext(t, spec, "acme", 4))
	if err != nil {
		t.Fatal(err)
	}

	tenantOnly, err := callspec.NewWebContextSpec(tenantKey)
	if err != nil {
		t.Fatal(err)
	}
	other, err := NewContextSealer(tenantOnly, "a", keys)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Open(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("token for another context: got %v, want %v", err, ErrTokenInvalid)
	}
}

func TestContextSealer_OpenRejects(t *testing.T) {
	spec := contextSpec(t)
	s, err := NewContextSealer(spec, "a", map[string][]byte{"a": randomKey(t)})
	if err != nil {
		t.Fatal(err)
	}
	token, err := s.Seal(webContext(t, spec, "acme", 5))
	if err != nil {
		t.Fatal(err)
	}
	keyID, enc, _ := strings.Cut(token, ".")
	tampered := []byte(enc)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrTokenFormat},
		{"no separator", "abc", ErrTokenFormat},
		{"empty key id", "." + enc, ErrTokenFormat},
		{"bad base64", keyID + ".!!!", ErrTokenFormat},
		{"too short", keyID + ".AAAA", ErrTokenFormat},
		{"too long", keyID + "." + strings.Repeat("A", maxTokenLen), ErrTokenFormat},
		{"unknown key", "b." + enc, ErrTokenInvalid},
		{"tampered", keyID + "." + string(tampered), ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Open(tt.token); !errors.Is(err, tt.want) {
				t.Errorf("Open: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewContextSealer_Config(t *testing.T) {
	spec := contextSpec(t)
	key := randomKey(t)
	tests := []struct {
		name  string
		spec  *callspec.WebContextSpec
		keyID string
		keys  map[string][]byte
	}{
		{"nil spec", nil, "a", map[string][]byte{"a": key}},
		{"nil keys", spec, "a", nil},
		{"missing key", spec, "b", map[string][]byte{"a": key}},
		{"dotted key id", spec, "a.1", map[string][]byte{"a.1": key}},
		{"short key", spec, "a", map[string][]byte{"a": key[:8]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewContextSealer(tt.spec, tt.keyID, tt.keys); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestContextProcessor(t *testing.T) {
	spec := contextSpec(t)
	s, err := NewContextSealer(spec, "a", map[string][]byte{"a": randomKey(t)})
	if err != nil {
		t.Fatal(err)
	}
	token, err := s.Seal(webContext(t, spec, "acme", 9))
	if err != nil {
		t.Fatal(err)
	}

	var seen http.Header
	h := endpoint.Handler(func(w http.ResponseWriter, r *http.Request) (endpoint.Renderer, error) {
		seen = r.Header.Clone()
		return &endpoint.NoContentRenderer{}, nil
	}, &ContextProcessor{Sealer: s})

	t.Run("token values replace client headers", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/rpc/whoami", nil)
		r.Header.Set(envelope.HeaderContext, token)
		r.Header.Set("X-Tenant", "mallory")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusNoContent {
			t.Fatalf("status: got %d", w.Code)
		}
		if got := seen.Values("X-Tenant"); !cmp.Equal(got, []string{"acme"}) {
			t.Errorf("X-Tenant: got %q, want only the sealed value", got)
		}
		if got := seen.Get("X-Region-Id"); got != "9" {
			t.Errorf("X-Region-Id: got %q, want %q", got, "9")
		}
		if got := seen.Get(envelope.HeaderContext); got != "" {
			t.Errorf("token header should be removed, got %q", got)
		}
	})

	t.Run("no token drops client context headers", func(t *testing.T) {
		seen = nil
		r := httptest.NewRequest("GET", "/api/rpc/whoami", nil)
		r.Header.Set("X-Tenant", "mallory")
		r.Header.Set("X-Region-Id", "1")
		r.Header.Set("X-Request-Id", "r1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusNoContent || seen == nil {
			t.Fatalf("status: got %d, endpoint ran: %v", w.Code, seen != nil)
		}
		if got := seen.Get("X-Tenant") + seen.Get("X-Region-Id"); got != "" {
			t.Errorf("client-sent context headers reached the endpoint: %q", got)
		}
		if got := seen.Get("X-Request-Id"); got != "r1" {
			t.Errorf("unrelated header: got %q", got)
		}
		if got := r.Header.Get("X-Tenant"); got != "mallory" {
			t.Errorf("caller's request was modified: %q", got)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		seen = nil
		r := httptest.NewRequest("GET", "/api/rpc/whoami", nil)
		r.Header.Set(envelope.HeaderContext, "a.bogus")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if seen != nil {
			t.Error("endpoint should not run")
		}
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if got := w.Header().Get(reason.Header); got != reason.Unauthorized.String() {
			t.Errorf("reason header: got %q", got)
		}
	})

	t.Run("nil sealer", func(t *testing.T) {
		seen = nil
		nh := endpoint.Handler(func(w http.ResponseWriter, r *http.Request) (endpoint.Renderer, error) {
			seen = r.Header.Clone()
			return &endpoint.NoContentRenderer{}, nil
		}, &ContextProcessor{})
		w := httptest.NewRecorder()
		nh.ServeHTTP(w, httptest.NewRequest("GET", "/api/rpc/whoami", nil))
		if seen != nil || w.Code != http.StatusInternalServerError {
			t.Errorf("status: got %d, endpoint ran: %v", w.Code, seen != nil)
		}
	})
}

func TestContextProcessor_Refresh(t *testing.T) {
	spec := contextSpec(t)
	now := time.Unix(1_700_000_000, 0)
	s, err := NewContextSealer(spec, "a", map[string][]byte{"a": randomKey(t)},
		WithTTL(time.Hour), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	issued := now
	token, err := s.Seal(webContext(t, spec, "acme", 9))
	if err != nil {
		t.Fatal(err)
	}

	h := endpoint.Handler(func(w http.ResponseWriter, r *http.Request) (endpoint.Renderer, error) {
		return &endpoint.NoContentRenderer{}, nil
	}, &ContextProcessor{Sealer: s, RefreshWithin: 15 * time.Minute})

	call := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest("GET", "/api/rpc/whoami", nil)
		r.Header.Set(envelope.HeaderContext, token)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	now = issued.Add(10 * time.Minute)
	if w := call(); w.Header().Get(envelope.HeaderContext) != "" {
		t.Errorf("fresh token was re-issued")
	}

	now = issued.Add(50 * time.Minute)
	w := call()
	if w.Code != http.StatusNoContent {
		t.Fatalf("status: got %d", w.Code)
	}
	fresh := w.Header().Get(envelope.HeaderContext)
	if fresh == "" || fresh == token {
		t.Fatalf("token near expiry was not re-issued: %q", fresh)
	}

	now = issued.Add(90 * time.Minute)
	if _, err := s.Open(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("old token: got %v, want %v", err, ErrTokenExpired)
	}
	values, err := s.Open(fresh)
	if err != nil {
		t.Fatalf("re-issued token: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"X-Tenant": "acme", "X-Region-Id": "9"}, values); diff != "" {
		t.Errorf("re-issued values (-want +got):\n%s", diff)
	}
}
