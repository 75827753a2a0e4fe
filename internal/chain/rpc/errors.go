// internal/chain/rpc/errors.go
package rpc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoActiveClients  = errors.New("no active RPC clients")
	ErrTimeout          = errors.New("rpc timeout")
	ErrRateLimit        = errors.New("rpc rate limited")
	ErrConnectionFailed = errors.New("rpc connection failed")
	ErrInvalidResponse  = errors.New("invalid rpc response")
	ErrExecutionRevert  = errors.New("contract execution reverted")
)

// Error wraps an endpoint-level failure with its origin.
type Error struct {
	URL    string
	Method string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc %s (%s): %v", e.Method, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryableError reports whether the operation may succeed against another
// endpoint or on a later attempt.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		switch {
		case errors.Is(rpcErr.Err, ErrTimeout),
			errors.Is(rpcErr.Err, ErrRateLimit),
			errors.Is(rpcErr.Err, ErrConnectionFailed):
			return true
		}
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "429")
}

// IsFatalError reports whether the error is a deterministic failure: a
// contract revert or a decode mismatch repeats identically on every endpoint,
// so retrying only burns requests.
func IsFatalError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrExecutionRevert) || errors.Is(err, ErrInvalidResponse) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "execution reverted") ||
		strings.Contains(errStr, "invalid opcode") ||
		strings.Contains(errStr, "abi: ")
}
