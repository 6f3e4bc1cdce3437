// Package tokencount estimates token usage of prompt/completion pairs.
//
// It uses tiktoken-go, a Go port of OpenAI's tiktoken, with the cl100k_base encoding as an
// approximation for the open models served through OpenRouter. When no encoding can be
// loaded it falls back to roughly four characters per token.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Usage is the token accounting of one successful completion.
type Usage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
	Estimated        bool   `json:"estimated"`
}

// Counter provides thread-safe token counting.
type Counter struct {
	mu        sync.RWMutex
	encodings map[string]*tiktoken.Tiktoken
	failed    map[string]bool
	load      func(encoding string) (*tiktoken.Tiktoken, error)
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{
		encodings: make(map[string]*tiktoken.Tiktoken),
		failed:    make(map[string]bool),
		load:      tiktoken.GetEncoding,
	}
}

// encodingFor returns the cached encoding for a model, or nil when it cannot be loaded.
// A failed load is remembered so the hot path never retries it.
func (c *Counter) encodingFor(model string) *tiktoken.Tiktoken {
	name := encodingName(model)

	c.mu.RLock()
	enc, ok := c.encodings[name]
	failed := c.failed[name]
	c.mu.RUnlock()
	if ok || failed {
		return enc
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodings[name]; ok {
		return enc
	}
	if c.failed[name] {
		return nil
	}
	enc, err := c.load(name)
	if err != nil {
		slog.Warn("token encoding unavailable, estimating", slog.String("encoding", name), slog.Any("error", err))
		c.failed[name] = true
		return nil
	}
	c.encodings[name] = enc
	return enc
}

// encodingName maps an OpenRouter model id such as "meta-llama/llama-3.2-3b-instruct:free"
// onto a tiktoken encoding.
func encodingName(model string) string {
	model = strings.ToLower(model)
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	model = strings.TrimSuffix(model, ":free")
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "o1"):
		return "o200k_base"
	default:
		return "cl100k_base"
	}
}

// CountTokens counts tokens of text for model. The second result is false when the
// count is a character-based estimate.
func (c *Counter) CountTokens(text, model string) (int, bool) {
	enc := c.encodingFor(model)
	if enc == nil {
		return estimate(text), false
	}
	return len(enc.Encode(text, nil, nil)), true
}

// Usage computes token usage for a single user-message chat completion.
func (c *Counter) Usage(prompt, completion, model string) Usage {
	// message framing: 3 per message, the role, and 3 priming the assistant reply
	const overhead = 3 + 1 + 3
	promptTokens, exactP := c.CountTokens(prompt, model)
	completionTokens, exactC := c.CountTokens(completion, model)
	promptTokens += overhead
	return Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Model:            model,
		Estimated:        !exactP || !exactC,
	}
}

func estimate(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
