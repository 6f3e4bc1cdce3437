// Package openrouter implements the chat-completions transport backed by the OpenRouter API.
package openrouter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/futureblink-ai/internal/adapter/observability"
	"github.com/fairyhunter13/futureblink-ai/internal/domain"
	obsctx "github.com/fairyhunter13/futureblink-ai/internal/observability"
)

const maxBodySnippet = 512

// Options configures the OpenRouter transport.
type Options struct {
	APIKey  string
	BaseURL string
	// Referer and Title identify the calling application to OpenRouter.
	Referer string
	Title   string
	// HTTPClient overrides the default instrumented client (tests).
	HTTPClient *http.Client
}

// Client implements domain.Completer against OpenRouter's OpenAI-compatible API.
// It performs exactly one HTTP call per Complete; retries and fallback belong to the caller.
type Client struct {
	apiKey   string
	endpoint string
	referer  string
	title    string
	hc       *http.Client
}

// New constructs a Client. The per-attempt deadline comes from the caller's context, so the
// default http.Client has no timeout of its own.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{
		apiKey:   opts.APIKey,
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		referer:  opts.Referer,
		title:    opts.Title,
		hc:       hc,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// StatusError is returned for non-2xx upstream responses. Body is kept for logs only.
type StatusError struct {
	StatusCode int
	Model      string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openrouter returned status %d for model %s", e.StatusCode, e.Model)
}

// HTTPStatus exposes the upstream status code to classifiers.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// Unwrap maps well-known statuses onto the domain taxonomy.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return domain.ErrModelUnavailable
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	}
	return nil
}

// Complete sends the prompt as a single user message to call.Model and returns the raw completion text.
func (c *Client) Complete(ctx domain.Context, call domain.CompletionCall) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       call.Model,
		Messages:    []chatMessage{{Role: "user", Content: call.Prompt}},
		Temperature: call.Temperature,
		MaxTokens:   call.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("op=openrouter.complete: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("op=openrouter.complete: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	lg := obsctx.LoggerFromContext(ctx)
	lg.Debug("sending request to OpenRouter",
		slog.String("provider", "openrouter"),
		slog.String("endpoint", c.endpoint),
		slog.String("model", call.Model),
		slog.String("authorization", maskKey(c.apiKey)))

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveUpstream("openrouter", 0, time.Since(start))
		return "", err
	}
	observability.ObserveUpstream("openrouter", resp.StatusCode, time.Since(start))
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		lg.Error("failed to read response body", slog.String("provider", "openrouter"), slog.String("model", call.Model), slog.Any("error", err))
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(bodyBytes)
		if len(snippet) > maxBodySnippet {
			snippet = snippet[:maxBodySnippet]
		}
		lg.Warn("ai provider non-2xx",
			slog.String("provider", "openrouter"),
			slog.String("op", "chat"),
			slog.Int("status", resp.StatusCode),
			slog.String("model", call.Model),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
			slog.String("body", snippet))
		return "", &StatusError{StatusCode: resp.StatusCode, Model: call.Model, Body: snippet}
	}

	var out chatResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		lg.Error("ai provider decode error", slog.String("provider", "openrouter"), slog.String("model", call.Model), slog.Any("error", err))
		return "", fmt.Errorf("op=openrouter.decode: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		lg.Warn("ai provider returned no content", slog.String("provider", "openrouter"), slog.String("model", call.Model), slog.Int("choices_count", len(out.Choices)))
		return "", fmt.Errorf("%w: model %s", domain.ErrEmptyCompletion, call.Model)
	}
	if out.Model != "" && out.Model != call.Model {
		lg.Warn("model substitution detected",
			slog.String("requested_model", call.Model),
			slog.String("actual_model", out.Model),
			slog.String("provider", "openrouter"))
	}
	return out.Choices[0].Message.Content, nil
}

// maskKey keeps only the last four characters of a secret for logging.
func maskKey(k string) string {
	if len(k) <= 4 {
		return "Bearer ***"
	}
	return "Bearer ***" + k[len(k)-4:]
}
