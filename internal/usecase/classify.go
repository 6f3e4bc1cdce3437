package usecase

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"

	"github.com/fairyhunter13/futureblink-ai/internal/domain"
)

// Disposition tells the fallback driver what to do after a failed attempt.
type Disposition int

const (
	// Retryable advances to the next candidate model.
	Retryable Disposition = iota
	// Fatal stops the fallback loop for the whole request.
	Fatal
)

func (d Disposition) String() string {
	if d == Fatal {
		return "fatal"
	}
	return "retryable"
}

// FailurePolicy decides which failure kinds abort the fallback loop.
// The zero value treats only an unreachable upstream as fatal.
type FailurePolicy struct {
	// UnexpectedIsFatal makes unclassified errors stop the loop instead of advancing.
	UnexpectedIsFatal bool
}

// Disposition returns whether the given failure kind ends the request.
func (p FailurePolicy) Disposition(kind domain.FailureKind) Disposition {
	switch kind {
	case domain.FailureUpstreamUnreachable, domain.FailureDeadlineExceeded:
		return Fatal
	case domain.FailureUnexpected:
		if p.UnexpectedIsFatal {
			return Fatal
		}
		return Retryable
	default:
		return Retryable
	}
}

type httpStatusError interface{ HTTPStatus() int }

// Classify maps a transport error onto the failure taxonomy. It does not know about
// per-attempt deadlines; callers that own the attempt context refine timeouts themselves.
func Classify(err error) domain.FailureKind {
	if err == nil {
		return domain.FailureNone
	}
	switch {
	case errors.Is(err, domain.ErrModelUnavailable):
		return domain.FailureModelUnavailable
	case errors.Is(err, domain.ErrRateLimited):
		return domain.FailureRateLimited
	case errors.Is(err, domain.ErrEmptyCompletion):
		return domain.FailureEmptyCompletion
	case errors.Is(err, domain.ErrAttemptTimeout), errors.Is(err, context.DeadlineExceeded):
		return domain.FailureAttemptTimeout
	case errors.Is(err, domain.ErrUpstreamUnreachable), isUnreachable(err):
		return domain.FailureUpstreamUnreachable
	}
	var se httpStatusError
	if errors.As(err, &se) {
		switch se.HTTPStatus() {
		case http.StatusNotFound:
			return domain.FailureModelUnavailable
		case http.StatusTooManyRequests:
			return domain.FailureRateLimited
		}
		return domain.FailureUnexpected
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.FailureAttemptTimeout
	}
	return domain.FailureUnexpected
}

// isUnreachable reports DNS resolution failures and refused connections: the upstream host
// itself cannot be reached, so trying another model on the same host is pointless.
func isUnreachable(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
