package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrTimeout indicates the request or navigation ran past its deadline.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string { return "timeout: " + e.Err.Error() }

func (e ErrTimeout) Unwrap() error { return e.Err }

// ErrConnection indicates the storefront could not be reached.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string { return "connection: " + e.Err.Error() }

func (e ErrConnection) Unwrap() error { return e.Err }

// ErrForbidden indicates the storefront refused the request (HTTP 403),
// usually bot protection.
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string { return "forbidden: " + e.Err.Error() }

func (e ErrForbidden) Unwrap() error { return e.Err }

// ErrNotFound indicates HTTP 404.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string { return "not_found: " + e.Err.Error() }

func (e ErrNotFound) Unwrap() error { return e.Err }

// ErrRateLimited indicates HTTP 429.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string { return "rate_limited: " + e.Err.Error() }

func (e ErrRateLimited) Unwrap() error { return e.Err }

// ErrServer indicates a 5xx or otherwise unexpected status.
type ErrServer struct {
	Status int
	Err    error
}

func (e ErrServer) Error() string {
	return fmt.Sprintf("server (%d): %s", e.Status, e.Err)
}

func (e ErrServer) Unwrap() error { return e.Err }

// ErrRender indicates the headless browser failed to produce a document.
type ErrRender struct {
	Err error
}

func (e ErrRender) Error() string { return "render: " + e.Err.Error() }

func (e ErrRender) Unwrap() error { return e.Err }

// Classify maps a transport error and HTTP status onto the typed errors above.
// A nil error with a 2xx/3xx status (or no status) stays nil.
func Classify(err error, status int) error {
	if err == nil && status < http.StatusBadRequest {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrConnection{Err: err}
	}

	if status >= http.StatusBadRequest {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", status)
		}
		switch {
		case status == http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case status == http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case status == http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		default:
			return ErrServer{Status: status, Err: wrapped}
		}
	}
	return err
}

// ErrorLabel returns a short metrics label for err.
func ErrorLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	switch {
	case errors.As(err, new(ErrTimeout)):
		return "timeout"
	case errors.As(err, new(ErrConnection)):
		return "connection"
	case errors.As(err, new(ErrForbidden)):
		return "forbidden"
	case errors.As(err, new(ErrNotFound)):
		return "not_found"
	case errors.As(err, new(ErrRateLimited)):
		return "rate_limited"
	case errors.As(err, new(ErrServer)):
		return "server"
	case errors.As(err, new(ErrRender)):
		return "render"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return "other"
}

// IsTransient reports whether retrying err may succeed. Refusals and missing
// pages are permanent, as is caller cancellation.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.As(err, new(ErrForbidden)) || errors.As(err, new(ErrNotFound)) {
		return false
	}
	return true
}
