package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mnehpets/callspec/endpoint"
)

func okEndpoint(called *bool) endpoint.EndpointFunc {
	return func(w http.ResponseWriter, r *http.Request) (endpoint.Renderer, error) {
		*called = true
		return &endpoint.NoContentRenderer{Status: http.StatusOK}, nil
	}
}

func TestAPIHeadersProcessor_Defaults(t *testing.T) {
	called := false
	h := endpoint.Handler(okEndpoint(&called), NewAPIHeadersProcessor())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/notes", nil))

	if !called {
		t.Fatal("endpoint was not called")
	}
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	want := map[string]string{
		"Strict-Transport-Security":   "max-age=31536000; includeSubDomains",
		"Referrer-Policy":             "no-referrer",
		"X-Frame-Options":             "DENY",
		"X-Content-Type-Options":      "nosniff",
		"Content-Security-Policy":     "default-src 'none'; frame-ancestors 'none'",
		"Access-Control-Allow-Origin": "",
	}
	for name, v := range want {
		if got := w.Header().Get(name); got != v {
			t.Errorf("%s: got %q, want %q", name, got, v)
		}
	}
}

func TestAPIHeadersProcessor_Options(t *testing.T) {
	p := NewAPIHeadersProcessor(
		WithHSTS(7776000, false, true),
		WithReferrerPolicy("same-origin"),
		WithFrameOptions(""),
		WithCSP(""),
	)
	w := httptest.NewRecorder()
	err := p.Process(w, httptest.NewRequest("GET", "/", nil), func(http.ResponseWriter, *http.Request) error { return nil })
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=7776000; preload" {
		t.Errorf("HSTS: got %q", got)
	}
	if got := w.Header().Get("Referrer-Policy"); got != "same-origin" {
		t.Errorf("Referrer-Policy: got %q", got)
	}
	for _, name := range []string{"X-Frame-Options", "Content-Security-Policy"} {
		if _, ok := w.Header()[name]; ok {
			t.Errorf("%s should not be set", name)
		}
	}

	w = httptest.NewRecorder()
	_ = NewAPIHeadersProcessor(WithoutHSTS()).Process(w, httptest.NewRequest("GET", "/", nil), func(http.ResponseWriter, *http.Request) error { return nil })
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS should be disabled, got %q", got)
	}
}

func TestAPIHeadersProcessor_CORSSimpleRequest(t *testing.T) {
	p := NewAPIHeadersProcessor(WithCORS(&CORSConfig{
		AllowedOrigins: []string{"https://app.example.com"},
		ExposedHeaders: []string{"X-Request-Id", "x-callspec-error-reason"},
	}))

	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{"allowed", "https://app.example.com", "https://app.example.com"},
		{"other origin", "https://evil.example.com", ""},
		{"same origin", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/rpc", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			called := false
			err := p.Process(w, r, func(http.ResponseWriter, *http.Request) error {
				called = true
				return nil
			})
			if err != nil || !called {
				t.Fatalf("Process: err=%v called=%v", err, called)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin: got %q, want %q", got, tt.wantOrigin)
			}
			if tt.origin == "" {
				return
			}
			if got, want := w.Header().Get("Access-Control-Expose-Headers"), "X-Callspec-Error-Reason, X-Callspec-Context, X-Request-Id"; got != want {
				t.Errorf("Expose-Headers: got %q, want %q", got, want)
			}
			if got := w.Header().Get("Access-Control-Allow-Methods"); got != "" {
				t.Errorf("Allow-Methods should be preflight only, got %q", got)
			}
		})
	}
}

func TestAPIHeadersProcessor_WildcardWithCredentials(t *testing.T) {
	p := NewAPIHeadersProcessor(WithCORS(&CORSConfig{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
	}))
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	_ = p.Process(w, r, func(http.ResponseWriter, *http.Request) error { return nil })

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("wildcard must not be used with credentials, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials: got %q", got)
	}
}

func TestAPIHeadersProcessor_Preflight(t *testing.T) {
	p := NewAPIHeadersProcessor(WithCORS(&CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"Authorization", "content-type"},
		MaxAge:         600,
	}))
	called := false
	h := endpoint.Handler(okEndpoint(&called), p)

	r := httptest.NewRequest("OPTIONS", "/api/rest/notes", nil)
	r.Header.Set("Origin", "https://app.example.com")
	r.Header.Set("Access-Control-Request-Method", "PUT")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if called {
		t.Error("endpoint should not be called for a preflight request")
	}
	if w.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusNoContent)
	}
	want := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, X-HTTP-Method-Override, X-Callspec-Context, Authorization",
		"Access-Control-Max-Age":       "600",
	}
	for name, v := range want {
		if got := w.Header().Get(name); got != v {
			t.Errorf("%s: got %q, want %q", name, got, v)
		}
	}
}

func TestAPIHeadersProcessor_OptionsWithoutCORS(t *testing.T) {
	called := false
	h := endpoint.Handler(okEndpoint(&called), NewAPIHeadersProcessor())
	r := httptest.NewRequest("OPTIONS", "/", nil)
	r.Header.Set("Origin", "https://app.example.com")
	r.Header.Set("Access-Control-Request-Method", "GET")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if !called {
		t.Error("without CORS the request should reach the endpoint")
	}
}
