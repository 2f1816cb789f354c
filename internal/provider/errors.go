package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies adapter failures so the scheduler can pick a policy
// without inspecting provider-specific payloads.
type Kind int

const (
	// KindAuth means the credential is bad or missing. Fatal, never retried.
	KindAuth Kind = iota
	// KindRateLimited means the backend asked us to slow down.
	KindRateLimited
	// KindUnavailable covers network failures, timeouts and 5xx responses.
	KindUnavailable
	// KindMalformed means the backend violated the batch contract
	// (unparsable payload or a segment count mismatch).
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "Auth"
	case KindRateLimited:
		return "RateLimited"
	case KindUnavailable:
		return "Unavailable"
	case KindMalformed:
		return "Malformed"
	default:
		return "Unknown"
	}
}

// Error is the uniform failure type surfaced by every adapter.
type Error struct {
	Kind     Kind
	Provider string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: [%s] %s", e.Provider, e.Kind, e.Message)
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, providerID, message string) *Error {
	return &Error{Kind: kind, Provider: providerID, Message: message}
}

func wrapError(kind Kind, providerID, message string, cause error) *Error {
	return &Error{Kind: kind, Provider: providerID, Message: message, Cause: cause}
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsRetryable reports whether the scheduler should retry the batch
// with backoff.
func IsRetryable(err error) bool {
	k, ok := KindOf(err)
	return ok && (k == KindRateLimited || k == KindUnavailable)
}

// classifyStatus maps an HTTP status code onto the failure taxonomy.
func classifyStatus(providerID string, status int, body string) *Error {
	msg := fmt.Sprintf("HTTP %d: %s", status, truncate(body, 200))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return newError(KindAuth, providerID, msg)
	case status == http.StatusTooManyRequests:
		return newError(KindRateLimited, providerID, msg)
	case status >= 500:
		return newError(KindUnavailable, providerID, msg)
	default:
		return newError(KindMalformed, providerID, msg)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
