package output

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a failure a command reports to the user. Code selects the exit
// status; Hint tells the user what to do next.
type Error struct {
	Code       string
	Message    string
	Hint       string
	HTTPStatus int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.Hint == "" {
		return e.Message
	}
	return e.Message + ": " + e.Hint
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same code, so callers
// can test with errors.Is(err, &Error{Code: CodeNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code != "" && t.Code == e.Code
}

// ExitCode returns the process exit status for this error.
func (e *Error) ExitCode() int { return ExitCodeFor(e.Code) }

// ErrUsage reports bad arguments or flags.
func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

// ErrUsageHint reports bad arguments or flags with a suggested fix.
func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

func ErrNotFound(resource, identifier string) *Error {
	msg := resource + " not found"
	if identifier != "" {
		msg += ": " + identifier
	}
	return &Error{Code: CodeNotFound, Message: msg, HTTPStatus: http.StatusNotFound}
}

// ErrAuth reports a missing or rejected API key.
func ErrAuth(msg string) *Error {
	return &Error{Code: CodeAuth, Message: msg, Hint: "Run: lunchbox auth login --key <api-key>"}
}

func ErrForbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg, HTTPStatus: http.StatusForbidden}
}

// ErrRateLimit reports throttling. retryAfter is in seconds; zero means
// unknown.
func ErrRateLimit(retryAfter int) *Error {
	e := &Error{
		Code:       CodeRateLimit,
		Message:    "Rate limited",
		Hint:       "Try again later",
		HTTPStatus: http.StatusTooManyRequests,
		Retryable:  true,
	}
	if retryAfter > 0 {
		e.Hint = fmt.Sprintf("Try again in %d seconds", retryAfter)
	}
	return e
}

func ErrNetwork(cause error) *Error {
	return &Error{Code: CodeNetwork, Message: "Network error", Hint: cause.Error(), Retryable: true, Cause: cause}
}

// ErrAPI reports an unexpected response. 5xx responses are retryable.
func ErrAPI(status int, msg string) *Error {
	return &Error{Code: CodeAPI, Message: msg, HTTPStatus: status, Retryable: status >= 500}
}

// ErrStorage reports a local favourites, cache or config write failure.
// action completes "Could not ...".
func ErrStorage(action string, cause error) *Error {
	return &Error{Code: CodeStorage, Message: "Could not " + action, Hint: cause.Error(), Cause: cause}
}

// ErrUnavailable reports an open circuit breaker.
func ErrUnavailable(cause error) *Error {
	return &Error{
		Code:      CodeUnavailable,
		Message:   "Search service unavailable",
		Hint:      "Too many recent failures; wait a few seconds and retry",
		Retryable: true,
		Cause:     cause,
	}
}

// AsError returns err's *Error, or wraps err as an api_error.
func AsError(err error) *Error {
	if e, ok := errors.AsType[*Error](err); ok {
		return e
	}
	return &Error{Code: CodeAPI, Message: err.Error(), Cause: err}
}
