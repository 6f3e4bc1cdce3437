// Package stub provides a fast, deterministic domain.Completer for local runs and tests.
package stub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fairyhunter13/futureblink-ai/internal/domain"
)

// Client answers every call with an echo of the prompt unless the model has a scripted error.
type Client struct {
	// Latency simulates upstream work; the call still honors ctx cancellation.
	Latency time.Duration

	mu     sync.Mutex
	errs   map[string]error
	called []string
}

// New returns a Client with no scripted failures.
func New() *Client { return &Client{errs: map[string]error{}} }

// FailModel makes every call to model return err.
func (c *Client) FailModel(model string, err error) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[model] = err
	return c
}

// Calls returns the models called so far, in order.
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.called...)
}

// Complete implements domain.Completer.
func (c *Client) Complete(ctx context.Context, call domain.CompletionCall) (string, error) {
	c.mu.Lock()
	c.called = append(c.called, call.Model)
	err := c.errs[call.Model]
	c.mu.Unlock()

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("**%s** says: %s", call.Model, strings.TrimSpace(call.Prompt)), nil
}
