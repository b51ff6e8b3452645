package api

import (
	"context"
	"time"
)

// RequestInfo describes one HTTP attempt.
type RequestInfo struct {
	Method    string
	URL       string
	Attempt   int // 1-based
	RequestID string
}

// RequestResult is the outcome of one HTTP attempt.
type RequestResult struct {
	StatusCode int
	Duration   time.Duration
	Retryable  bool
	Error      error
}

// Hooks observes the client's HTTP traffic.
type Hooks interface {
	OnRequestStart(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd(ctx context.Context, info RequestInfo, result RequestResult)
	OnRetry(ctx context.Context, info RequestInfo, attempt int, err error)
}

// NopHooks ignores every event.
type NopHooks struct{}

func (NopHooks) OnRequestStart(ctx context.Context, _ RequestInfo) context.Context { return ctx }
func (NopHooks) OnRequestEnd(context.Context, RequestInfo, RequestResult)          {}
func (NopHooks) OnRetry(context.Context, RequestInfo, int, error)                  {}
