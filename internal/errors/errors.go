// Package errors provides structured error types for repo-intel.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors for the failure modes the service distinguishes.
var (
	ErrInvalidURL         = errors.New("invalid repository URL")
	ErrInvalidName        = errors.New("invalid GitHub name")
	ErrRepoNotFound       = errors.New("repository not found")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrNetworkTimeout     = errors.New("network timeout")
	ErrConnection         = errors.New("connection failed")
	ErrUpstream           = errors.New("upstream API error")
	ErrSecretUnavailable  = errors.New("no secret source yielded a token")
	ErrAgentTimeout       = errors.New("agent invocation timed out")
	ErrAgentInvocation    = errors.New("agent invocation failed")
	ErrInvalidResponse    = errors.New("invalid response format from agent")
	ErrCircularDependency = errors.New("circular dependency detected in workflow")
	ErrUnknownAgent       = errors.New("unknown agent")
	ErrInvalidRequest     = errors.New("invalid request")
)

// APIError represents an error from an external API call.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error wrapping ErrUpstream.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message, Err: ErrUpstream}
}

// RateLimitError carries the reset time so the API boundary can emit a
// Retry-After hint. Reset is nil when the upstream did not report one.
type RateLimitError struct {
	Reset *time.Time
}

func (e *RateLimitError) Error() string {
	if e.Reset != nil {
		return fmt.Sprintf("rate limit exceeded, resets at %s", e.Reset.UTC().Format(time.RFC3339))
	}
	return "rate limit exceeded"
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// RetryAfter returns the whole seconds until the reset time, or 0 when unknown.
func (e *RateLimitError) RetryAfter(now time.Time) int {
	if e.Reset == nil {
		return 0
	}
	d := e.Reset.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d.Seconds()) + 1
}

// Machine-readable error codes surfaced at the API boundary.
const (
	CodeInvalidURL         = "INVALID_URL"
	CodeInvalidName        = "INVALID_GITHUB_NAME"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeRepoNotFound       = "REPOSITORY_NOT_FOUND"
	CodeRateLimited        = "RATE_LIMITED"
	CodeNetworkTimeout     = "NETWORK_TIMEOUT"
	CodeConnection         = "CONNECTION_ERROR"
	CodeUpstream           = "GITHUB_API_ERROR"
	CodeSecretUnavailable  = "SECRET_UNAVAILABLE"
	CodeAgentTimeout       = "AGENT_TIMEOUT"
	CodeAgentInvocation    = "AGENT_INVOCATION_FAILED"
	CodeInvalidResponse    = "INVALID_RESPONSE_FORMAT"
	CodeCircularDependency = "CIRCULAR_DEPENDENCY"
	CodeUnknownAgent       = "UNKNOWN_AGENT"
	CodeInternal           = "INTERNAL_ERROR"
)

// Code maps an error to its machine-readable code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return CodeInvalidURL
	case errors.Is(err, ErrInvalidName):
		return CodeInvalidName
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ErrRepoNotFound):
		return CodeRepoNotFound
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrNetworkTimeout):
		return CodeNetworkTimeout
	case errors.Is(err, ErrConnection):
		return CodeConnection
	case errors.Is(err, ErrSecretUnavailable):
		return CodeSecretUnavailable
	case errors.Is(err, ErrAgentTimeout):
		return CodeAgentTimeout
	case errors.Is(err, ErrInvalidResponse):
		return CodeInvalidResponse
	case errors.Is(err, ErrAgentInvocation):
		return CodeAgentInvocation
	case errors.Is(err, ErrCircularDependency):
		return CodeCircularDependency
	case errors.Is(err, ErrUnknownAgent):
		return CodeUnknownAgent
	case errors.Is(err, ErrUpstream):
		return CodeUpstream
	default:
		return CodeInternal
	}
}

// HTTPStatus maps an error to the status class the API boundary responds with:
// 4xx for validation/not-found/malformed-input, 429 for rate limits,
// 503/504 for upstream failures and timeouts, 500 otherwise.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidURL), errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrCircularDependency),
		errors.Is(err, ErrUnknownAgent):
		return http.StatusBadRequest
	case errors.Is(err, ErrRepoNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrAgentTimeout), errors.Is(err, ErrNetworkTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrAgentInvocation), errors.Is(err, ErrInvalidResponse),
		errors.Is(err, ErrUpstream), errors.Is(err, ErrConnection),
		errors.Is(err, ErrSecretUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
