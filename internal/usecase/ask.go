// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/futureblink-ai/internal/domain"
	obsctx "github.com/fairyhunter13/futureblink-ai/internal/observability"
	"github.com/fairyhunter13/futureblink-ai/pkg/textx"
)

// User-visible terminal messages. Provider payloads never reach the caller.
const (
	MsgEmptyPrompt      = "Prompt is required and cannot be empty"
	MsgModelNotFound    = "AI model not found. Please try different models."
	MsgAllUnavailable   = "All AI models are currently unavailable. Please try again in a few moments."
	MsgUnreachable      = "AI service is unreachable. Please try again later."
	MsgDeadlineExceeded = "AI service is taking too long to respond. Please try again."
)

// OutcomeKind tags an attempt Outcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRetryable
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFatal:
		return "fatal"
	default:
		return "retryable"
	}
}

// Outcome is the result of one attempt: Success(Text), Retryable(Failure, Err) or Fatal(Failure, Err).
type Outcome struct {
	Kind    OutcomeKind
	Text    string
	Failure domain.FailureKind
	Err     error
}

// Attempt is the ephemeral record of one try against a single candidate model.
// It only feeds logs, metrics and terminal error selection.
type Attempt struct {
	Number    int
	Model     string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   OutcomeKind
	Failure   domain.FailureKind
	Err       error
}

// AttemptObserver receives every attempt and every final result.
type AttemptObserver interface {
	ObserveAttempt(ctx context.Context, a Attempt)
	ObserveResult(ctx context.Context, prompt string, res domain.CompletionResult)
}

type noopObserver struct{}

func (noopObserver) ObserveAttempt(context.Context, Attempt)                           {}
func (noopObserver) ObserveResult(context.Context, string, domain.CompletionResult) {}

// Generation defaults applied by NewAskService to unset options.
const (
	DefaultAttemptTimeout = 15 * time.Second
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 500
)

// AskOptions is the immutable configuration of an AskService.
type AskOptions struct {
	// Models is the ordered candidate list; the first entry is preferred.
	Models          []string
	AttemptTimeout  time.Duration
	RequestDeadline time.Duration
	// Temperature <= 0 selects DefaultTemperature.
	Temperature float64
	MaxTokens   int
	Policy      FailurePolicy
	Observer    AttemptObserver
}

// AskService runs the sequential model-fallback loop for one prompt at a time.
// It holds no per-request state and is safe for concurrent use.
type AskService struct {
	completer domain.Completer
	models    []string
	opts      AskOptions
	now       func() time.Time
}

// NewAskService constructs an AskService. The model list is copied so later changes to the
// caller's slice cannot affect running orchestrations.
func NewAskService(c domain.Completer, opts AskOptions) *AskService {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultAttemptTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	return &AskService{
		completer: c,
		models:    append([]string(nil), opts.Models...),
		opts:      opts,
		now:       time.Now,
	}
}

// Models returns a copy of the candidate list in priority order.
func (s *AskService) Models() []string { return append([]string(nil), s.models...) }

// Ask produces exactly one CompletionResult for prompt by trying each candidate model in order
// until one succeeds, a fatal failure occurs, or the list is exhausted.
func (s *AskService) Ask(ctx context.Context, prompt string) domain.CompletionResult {
	lg := obsctx.LoggerFromContext(ctx)
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		lg.Warn("invalid prompt received")
		return domain.CompletionResult{Success: false, Error: MsgEmptyPrompt, Kind: domain.FailureValidation}
	}

	start := s.now()
	if s.opts.RequestDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestDeadline)
		defer cancel()
	}
	lg.Info("starting model fallback", slog.Int("prompt_length", len(prompt)), slog.Int("models", len(s.models)))

	var last Attempt
	attempts := 0
loop:
	for i, model := range s.models {
		a := Attempt{Number: i + 1, Model: model, StartedAt: s.now()}
		out := s.attempt(ctx, model, prompt)
		a.Duration = s.now().Sub(a.StartedAt)
		a.Outcome, a.Failure, a.Err = out.Kind, out.Failure, out.Err
		attempts++
		s.opts.Observer.ObserveAttempt(ctx, a)

		switch out.Kind {
		case OutcomeSuccess:
			elapsed := s.now().Sub(start).Milliseconds()
			if elapsed < 0 {
				elapsed = 0
			}
			res := domain.CompletionResult{Success: true, Response: out.Text, Model: model, ProcessingTimeMs: elapsed, Attempts: attempts}
			lg.Info("ai response generated",
				slog.String("model", model),
				slog.Int("attempt", a.Number),
				slog.Int64("processing_time_ms", elapsed),
				slog.Int("response_length", len(out.Text)))
			s.opts.Observer.ObserveResult(ctx, prompt, res)
			return res
		case OutcomeFatal:
			last = a
			lg.Error("fatal model failure, aborting fallback",
				slog.String("model", model),
				slog.Int("attempt", a.Number),
				slog.String("failure", string(a.Failure)),
				slog.Any("error", a.Err))
			break loop
		default:
			last = a
			lg.Warn("model attempt failed, trying next",
				slog.String("model", model),
				slog.Int("attempt", a.Number),
				slog.String("failure", string(a.Failure)),
				slog.Duration("duration", a.Duration),
				slog.Any("error", a.Err))
		}
	}

	res := domain.CompletionResult{Success: false, Error: terminalMessage(last), Kind: last.Failure, Attempts: attempts}
	if res.Kind == domain.FailureNone {
		res.Kind = domain.FailureUnexpected
	}
	lg.Error("all models failed",
		slog.Int("total_attempts", attempts),
		slog.String("last_model", last.Model),
		slog.String("last_failure", string(last.Failure)),
		slog.Any("last_error", last.Err))
	s.opts.Observer.ObserveResult(ctx, prompt, res)
	return res
}

// attempt performs one bounded call and folds its result into an Outcome.
func (s *AskService) attempt(ctx context.Context, model, prompt string) Outcome {
	call := domain.CompletionCall{Model: model, Prompt: prompt, Temperature: s.opts.Temperature, MaxTokens: s.opts.MaxTokens}
	text, err := withAttemptTimeout(ctx, s.opts.AttemptTimeout, func(actx context.Context) (string, error) {
		return s.completer.Complete(actx, call)
	})
	if err != nil {
		kind := Classify(err)
		if ctx.Err() != nil {
			// the request itself is over: overall deadline or caller went away
			kind = domain.FailureDeadlineExceeded
		}
		return s.failure(kind, err)
	}
	cleaned := textx.CleanCompletion(text)
	if strings.TrimSpace(cleaned) == "" {
		return s.failure(domain.FailureEmptyCompletion, fmt.Errorf("%w: model %s", domain.ErrEmptyCompletion, model))
	}
	return Outcome{Kind: OutcomeSuccess, Text: cleaned}
}

func (s *AskService) failure(kind domain.FailureKind, err error) Outcome {
	k := OutcomeRetryable
	if s.opts.Policy.Disposition(kind) == Fatal {
		k = OutcomeFatal
	}
	return Outcome{Kind: k, Failure: kind, Err: err}
}

// terminalMessage selects the single user-visible error for a failed orchestration.
func terminalMessage(last Attempt) string {
	switch {
	case last.Failure == domain.FailureModelUnavailable:
		return MsgModelNotFound
	case last.Failure == domain.FailureUpstreamUnreachable:
		return MsgUnreachable
	case last.Failure == domain.FailureDeadlineExceeded:
		return MsgDeadlineExceeded
	case last.Err != nil:
		return fmt.Sprintf("All AI models failed (last error: %s). Please try again in a few moments.", last.Err.Error())
	default:
		return MsgAllUnavailable
	}
}

type attemptResult[T any] struct {
	v   T
	err error
}

// withAttemptTimeout runs fn under a fresh deadline d derived from ctx and releases it as soon
// as fn settles. If fn has not settled when d elapses, the attempt context is cancelled and an
// error wrapping domain.ErrAttemptTimeout is returned without waiting for fn.
func withAttemptTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	actx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	ch := make(chan attemptResult[T], 1)
	go func() {
		v, err := fn(actx)
		ch <- attemptResult[T]{v: v, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			return r.v, fmt.Errorf("%w after %s: %w", domain.ErrAttemptTimeout, d, r.err)
		}
		return r.v, r.err
	case <-actx.Done():
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%w after %s", domain.ErrAttemptTimeout, d)
	}
}
