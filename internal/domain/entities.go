package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrModelUnavailable    = errors.New("model unavailable")
	ErrRateLimited         = errors.New("rate limited")
	ErrAttemptTimeout      = errors.New("attempt timeout")
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	ErrEmptyCompletion     = errors.New("empty completion")
	ErrDeadlineExceeded    = errors.New("request deadline exceeded")
	ErrInternal            = errors.New("internal error")
)

// FailureKind classifies why a single model attempt did not produce a completion.
type FailureKind string

const (
	FailureNone                FailureKind = ""
	FailureValidation          FailureKind = "validation"
	FailureModelUnavailable    FailureKind = "model_unavailable"
	FailureRateLimited         FailureKind = "rate_limited"
	FailureAttemptTimeout      FailureKind = "attempt_timeout"
	FailureUpstreamUnreachable FailureKind = "upstream_unreachable"
	FailureEmptyCompletion     FailureKind = "empty_completion"
	FailureUnexpected          FailureKind = "unexpected"
	FailureDeadlineExceeded    FailureKind = "deadline_exceeded"
)

// CompletionCall is one request to a single candidate model.
type CompletionCall struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// CompletionResult is the single outcome of one orchestration.
// Kind is only set on failure and never serialized; the HTTP layer maps it to a status code.
type CompletionResult struct {
	Success          bool        `json:"success"`
	Response         string      `json:"response,omitempty"`
	Model            string      `json:"model,omitempty"`
	ProcessingTimeMs int64       `json:"processing_time_ms,omitempty"`
	Error            string      `json:"error,omitempty"`
	Kind             FailureKind `json:"-"`
	Attempts         int         `json:"-"`
}

// Prompt is a persisted prompt/response pair.
// Invariants: Prompt and Response trimmed and non-empty.
type Prompt struct {
	ID        string    `json:"_id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"timestamp"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// PromptPage is a newest-first page of persisted prompts.
type PromptPage struct {
	Data       []Prompt   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Repositories (ports)

type PromptRepository interface {
	Create(ctx Context, p Prompt) (Prompt, error)
	List(ctx Context, offset, limit int) ([]Prompt, error)
	Count(ctx Context) (int64, error)
	Delete(ctx Context, id string) error
}

// PageCache (port) caches rendered history pages; implementations may be no-ops.
// Pages are keyed by a generation that Invalidate advances, so a page computed from a read
// that raced a write is stored under a generation no later reader asks for.
type PageCache interface {
	// Generation reports the current generation; ok=false means skip the cache.
	Generation(ctx Context) (gen int64, ok bool)
	GetPage(ctx Context, gen int64, page, limit int) (PromptPage, bool)
	SetPage(ctx Context, gen int64, page, limit int, p PromptPage)
	Invalidate(ctx Context)
}

// Completer (port) performs one chat completion against one model.
type Completer interface {
	Complete(ctx Context, call CompletionCall) (string, error)
}

// Context is an alias to allow decoupling from std context in domain.
type Context = context.Context
