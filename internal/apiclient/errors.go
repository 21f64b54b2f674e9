package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// TransportError wraps a network-level failure (dial, timeout, reset).
// Transport errors are retryable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("apiclient: transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response. Retryable only for 5xx.
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("apiclient: http %d: %s", e.Status, truncate(e.Body, 200))
}

// DecodeError is a malformed or non-JSON response body. Never retryable.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("apiclient: decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is an HTTP 404 from the backend.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound
}

// IsUnavailable reports whether err represents backend unreachability: a
// transport failure or a 5xx. Callers use it to decide on degraded fallbacks.
func IsUnavailable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status >= 500
}

func shouldRetry(status int, err error) bool {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return !errors.Is(err, context.Canceled)
	}
	return status >= 500 && status <= 599
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
