// Package reason classifies call failures. Every failure that crosses the
// wire carries a Reason, transmitted as an HTTP status and an error-reason
// header, so a client can tell retryable failures from permanent ones.
package reason

import (
	"fmt"
	"net/http"
)

// Reason is a classified failure category.
type Reason int

const (
	BadRequest Reason = iota + 1
	InvalidCallPath
	UnexpectedRetryableError
	UnexpectedPermanentError
	Unauthorized
	ServerUnavailable
	PreconditionFailed
	ServerMessageToUser
	LocalNetworkFailure
)

var reasons = []struct {
	reason Reason
	token  string
	status int
}{
	{BadRequest, "BAD_REQUEST", http.StatusBadRequest},
	{InvalidCallPath, "INVALID_CALLPATH", http.StatusNotFound},
	{UnexpectedRetryableError, "UNEXPECTED_RETRYABLE_ERROR", http.StatusServiceUnavailable},
	{UnexpectedPermanentError, "UNEXPECTED_PERMANENT_ERROR", http.StatusInternalServerError},
	{Unauthorized, "UNAUTHORIZED", http.StatusUnauthorized},
	{ServerUnavailable, "SERVER_UNAVAILABLE", http.StatusServiceUnavailable},
	{PreconditionFailed, "PRECONDITION_FAILED", http.StatusPreconditionFailed},
	{ServerMessageToUser, "SERVER_MESSAGE_TO_USER", http.StatusUnprocessableEntity},
	{LocalNetworkFailure, "LOCAL_NETWORK_FAILURE", http.StatusGatewayTimeout},
}

// canonical is the reverse mapping for statuses shared by several reasons.
var canonical = map[int]Reason{
	http.StatusServiceUnavailable: ServerUnavailable,
}

// All returns every reason in declaration order.
func All() []Reason {
	out := make([]Reason, len(reasons))
	for i, r := range reasons {
		out[i] = r.reason
	}
	return out
}

func (r Reason) valid() bool {
	return r >= BadRequest && r <= LocalNetworkFailure
}

func (r Reason) String() string {
	if !r.valid() {
		return fmt.Sprintf("Reason(%d)", int(r))
	}
	return reasons[r-1].token
}

// Status is the HTTP status code the reason travels as. Unknown reasons map
// to 500.
func (r Reason) Status() int {
	if !r.valid() {
		return http.StatusInternalServerError
	}
	return reasons[r-1].status
}

// Retryable reports whether a call failing for r may succeed if repeated.
func (r Reason) Retryable() bool {
	switch r {
	case UnexpectedRetryableError, ServerUnavailable, LocalNetworkFailure:
		return true
	}
	return false
}

// Parse returns the reason named by token.
func Parse(token string) (Reason, bool) {
	for _, r := range reasons {
		if r.token == token {
			return r.reason, true
		}
	}
	return 0, false
}

// FromStatus returns the canonical reason for an HTTP status code. Unmapped
// 4xx codes are BadRequest, anything else unmapped is UnexpectedPermanentError.
func FromStatus(code int) Reason {
	if r, ok := canonical[code]; ok {
		return r
	}
	for _, r := range reasons {
		if r.status == code {
			return r.reason
		}
	}
	if code >= 400 && code < 500 {
		return BadRequest
	}
	return UnexpectedPermanentError
}
