package reason

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mnehpets/callspec/callpath"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		reason Reason
		status int
	}{
		{BadRequest, 400},
		{InvalidCallPath, 404},
		{UnexpectedRetryableError, 503},
		{UnexpectedPermanentError, 500},
		{Unauthorized, 401},
		{ServerUnavailable, 503},
		{PreconditionFailed, 412},
		{ServerMessageToUser, 422},
		{LocalNetworkFailure, 504},
	}
	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			if got := tt.reason.Status(); got != tt.status {
				t.Errorf("Status() = %d, want %d", got, tt.status)
			}
		})
	}
}

func TestFromStatusIdentity(t *testing.T) {
	// Composing the two mappings is the identity on every status a reason
	// travels as.
	for _, r := range All() {
		code := r.Status()
		if got := FromStatus(code).Status(); got != code {
			t.Errorf("FromStatus(%d).Status() = %d", code, got)
		}
	}
	if got := FromStatus(http.StatusServiceUnavailable); got != ServerUnavailable {
		t.Errorf("FromStatus(503) = %v, want SERVER_UNAVAILABLE", got)
	}
}

func TestFromStatusUnmapped(t *testing.T) {
	tests := []struct {
		code int
		want Reason
	}{
		{http.StatusConflict, BadRequest},
		{http.StatusTeapot, BadRequest},
		{http.StatusBadGateway, UnexpectedPermanentError},
		{302, UnexpectedPermanentError},
	}
	for _, tt := range tests {
		if got := FromStatus(tt.code); got != tt.want {
			t.Errorf("FromStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	want := map[Reason]bool{
		UnexpectedRetryableError: true,
		ServerUnavailable:        true,
		LocalNetworkFailure:      true,
	}
	for _, r := range All() {
		if got := r.Retryable(); got != want[r] {
			t.Errorf("%v.Retryable() = %v", r, got)
		}
	}
}

func TestParse(t *testing.T) {
	for _, r := range All() {
		got, ok := Parse(r.String())
		if !ok || got != r {
			t.Errorf("Parse(%q) = %v, %v", r.String(), got, ok)
		}
	}
	if _, ok := Parse("NOPE"); ok {
		t.Error("Parse(NOPE) should fail")
	}
	if s := Reason(42).String(); s != "Reason(42)" {
		t.Errorf("String() = %q", s)
	}
}

func TestFrom(t *testing.T) {
	pathErr := &callpath.ParseError{Kind: callpath.InvalidBasePath, Path: "/x"}
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"reason error", Errorf(Unauthorized, "no token"), Unauthorized},
		{"wrapped reason error", fmt.Errorf("calling: %w", New(PreconditionFailed, "stale")), PreconditionFailed},
		{"parse error", fmt.Errorf("parse: %w", pathErr), InvalidCallPath},
		{"deadline", context.DeadlineExceeded, UnexpectedRetryableError},
		{"other", errors.New("boom"), UnexpectedPermanentError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Of(tt.err); got != tt.want {
				t.Errorf("Of() = %v, want %v", got, tt.want)
			}
		})
	}
	if From(nil) != nil {
		t.Error("From(nil) should be nil")
	}
}

func TestErrorIs(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("call: %w", Wrap(LocalNetworkFailure, cause, "sending"))
	if !errors.Is(err, &Error{Reason: LocalNetworkFailure}) {
		t.Error("errors.Is should match on reason")
	}
	if errors.Is(err, &Error{Reason: BadRequest}) {
		t.Error("errors.Is should not match a different reason")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	var re *Error
	if !errors.As(err, &re) || !re.Retryable() {
		t.Errorf("As = %v", re)
	}
	want := "LOCAL_NETWORK_FAILURE: sending: dial tcp: refused"
	if re.Error() != want {
		t.Errorf("Error() = %q, want %q", re.Error(), want)
	}
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		token  string
		body   string
	}{
		{"message", Errorf(PreconditionFailed, "version %d is stale", 3), 412, "PRECONDITION_FAILED", "version 3 is stale\n"},
		{"parse error", &callpath.ParseError{Kind: callpath.InvalidServiceName, Path: "/api/nope"}, 404, "INVALID_CALLPATH", (&callpath.ParseError{Kind: callpath.InvalidServiceName, Path: "/api/nope"}).Error() + "\n"},
		{"hidden cause", errors.New("db password wrong"), 500, "UNEXPECTED_PERMANENT_ERROR", "Internal Server Error\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Write(rec, tt.err)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get(Header); got != tt.token {
				t.Errorf("reason header = %q, want %q", got, tt.token)
			}
			if got := rec.Body.String(); got != tt.body {
				t.Errorf("body = %q, want %q", got, tt.body)
			}
		})
	}
}
