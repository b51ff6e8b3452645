package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/lunchbox/lunchbox-cli/internal/output"
	"github.com/lunchbox/lunchbox-cli/internal/resilience"
)

// Error is a non-2xx response from the search API.
type Error struct {
	StatusCode  int
	Code        string // API error code, e.g. VALIDATION_ERROR
	Description string
	RetryAfter  time.Duration
}

func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("search api: %d %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("search api: status %d", e.StatusCode)
}

// Retryable reports whether repeating the request may succeed.
func (e *Error) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type errorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// MapError converts a client error into an *output.Error so the CLI can
// render it with a hint and exit code. It is the collection controller's
// error mapper.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var outErr *output.Error
	if errors.As(err, &outErr) {
		return outErr
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return output.ErrUnavailable(err)
	}

	var limitErr *resilience.LimitError
	if errors.As(err, &limitErr) {
		e := output.ErrRateLimit(int(limitErr.RetryAfter.Round(time.Second) / time.Second))
		e.Cause = err
		return e
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			e := output.ErrAuth("API key rejected")
			e.HTTPStatus = apiErr.StatusCode
			e.Cause = err
			return e
		case http.StatusForbidden:
			e := output.ErrForbidden("Access denied")
			e.Cause = err
			return e
		case http.StatusNotFound:
			e := output.ErrNotFound("restaurant", apiErr.Description)
			e.HTTPStatus = apiErr.StatusCode
			e.Cause = err
			return e
		case http.StatusTooManyRequests:
			e := output.ErrRateLimit(int(apiErr.RetryAfter / time.Second))
			e.Cause = err
			return e
		case http.StatusBadRequest:
			e := output.ErrUsage(firstNonEmpty(apiErr.Description, "Invalid search"))
			e.HTTPStatus = apiErr.StatusCode
			e.Cause = err
			return e
		default:
			e := output.ErrAPI(apiErr.StatusCode, firstNonEmpty(apiErr.Description, http.StatusText(apiErr.StatusCode)))
			e.Cause = err
			return e
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return output.ErrNetwork(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return output.ErrNetwork(err)
	}

	return output.AsError(err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
