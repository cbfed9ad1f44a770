package errors

import (
	"context"
	stderrs "errors"
	"net"
)

// Retryable reports whether the error is worth retrying with backoff.
// Transient provider failures are coded ErrorCodeUnavailable by the
// inference client; everything else is treated as permanent.
// Context cancellation is never retryable
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsCode(err, ErrorCodeUnavailable) {
		return true
	}
	var ne net.Error
	if stderrs.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}
