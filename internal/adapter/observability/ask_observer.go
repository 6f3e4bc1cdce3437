package observability

import (
	"context"
	"log/slog"

	"github.com/fairyhunter13/futureblink-ai/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/futureblink-ai/internal/domain"
	obsctx "github.com/fairyhunter13/futureblink-ai/internal/observability"
	"github.com/fairyhunter13/futureblink-ai/internal/usecase"
)

// AskObserver turns fallback attempts and results into Prometheus series and a token usage log.
type AskObserver struct {
	Tokens *tokencount.Counter
}

// NewAskObserver returns an observer; counter may be nil to skip token accounting.
func NewAskObserver(counter *tokencount.Counter) *AskObserver {
	return &AskObserver{Tokens: counter}
}

// ObserveAttempt records one model attempt.
func (o *AskObserver) ObserveAttempt(_ context.Context, a usecase.Attempt) {
	failure := string(a.Failure)
	if failure == "" {
		failure = "none"
	}
	AIAttemptsTotal.WithLabelValues(a.Model, a.Outcome.String(), failure).Inc()
	AIAttemptDuration.WithLabelValues(a.Model).Observe(a.Duration.Seconds())
}

// ObserveResult records the final outcome of one orchestration.
func (o *AskObserver) ObserveResult(ctx context.Context, prompt string, res domain.CompletionResult) {
	if !res.Success {
		AICompletionsTotal.WithLabelValues("failure", string(res.Kind)).Inc()
		if res.Attempts > 0 {
			AIAttemptsPerCompletion.Observe(float64(res.Attempts))
		}
		return
	}
	AICompletionsTotal.WithLabelValues("success", "none").Inc()
	AIAttemptsPerCompletion.Observe(float64(res.Attempts))
	if o.Tokens == nil {
		return
	}
	// encodings may be fetched on first use; keep that off the request path
	go o.recordUsage(context.WithoutCancel(ctx), prompt, res)
}

func (o *AskObserver) recordUsage(ctx context.Context, prompt string, res domain.CompletionResult) {
	u := o.Tokens.Usage(prompt, res.Response, res.Model)
	AITokensTotal.WithLabelValues(res.Model, "prompt").Add(float64(u.PromptTokens))
	AITokensTotal.WithLabelValues(res.Model, "completion").Add(float64(u.CompletionTokens))
	obsctx.LoggerFromContext(ctx).Debug("token usage",
		slog.String("model", u.Model),
		slog.Int("prompt_tokens", u.PromptTokens),
		slog.Int("completion_tokens", u.CompletionTokens),
		slog.Int("total_tokens", u.TotalTokens),
		slog.Bool("estimated", u.Estimated))
}
