package tokencount

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	tiktoken "github.com/pkoukk/tiktoken-go"
	"github.com/stretchr/testify/assert"
)

func offlineCounter(loads *int32) *Counter {
	c := NewCounter()
	c.load = func(string) (*tiktoken.Tiktoken, error) {
		if loads != nil {
			atomic.AddInt32(loads, 1)
		}
		return nil, errors.New("offline")
	}
	return c
}

func TestEncodingName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		model string
		want  string
	}{
		{"mistralai/mistral-7b-instruct:free", "cl100k_base"},
		{"meta-llama/llama-3.2-3b-instruct:free", "cl100k_base"},
		{"openai/gpt-4o-mini", "o200k_base"},
		{"GPT-4o", "o200k_base"},
		{"", "cl100k_base"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, encodingName(tt.model), tt.model)
	}
}

func TestCountTokens_FallsBackToEstimate(t *testing.T) {
	t.Parallel()
	c := offlineCounter(nil)
	n, exact := c.CountTokens("The quick brown fox jumps", "google/gemma-2-2b-it:free")
	assert.False(t, exact)
	assert.Equal(t, 6, n)

	n, _ = c.CountTokens("", "x")
	assert.Equal(t, 0, n)
	n, _ = c.CountTokens("hi", "x")
	assert.Equal(t, 1, n)
}

func TestCountTokens_FailedLoadIsRemembered(t *testing.T) {
	t.Parallel()
	var loads int32
	c := offlineCounter(&loads)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.CountTokens("hello world", "mistralai/mistral-7b-instruct:free")
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestUsage_Estimated(t *testing.T) {
	t.Parallel()
	c := offlineCounter(nil)
	u := c.Usage("12345678", "1234", "m")
	assert.True(t, u.Estimated)
	assert.Equal(t, 2+7, u.PromptTokens)
	assert.Equal(t, 1, u.CompletionTokens)
	assert.Equal(t, u.PromptTokens+u.CompletionTokens, u.TotalTokens)
	assert.Equal(t, "m", u.Model)
}
