package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// TransientError wraps an error that is safe to retry (5xx, 408, network).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient. statusCode may be 0.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// RateLimitError marks a provider rejection for exceeding its rate limit.
type RateLimitError struct {
	Err error
	// RetryAfter is the server hint, zero when absent.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return e.Err.Error() }

func (e *RateLimitError) Unwrap() error { return e.Err }

// NewRateLimitError wraps err as a rate-limit rejection.
func NewRateLimitError(err error, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Err: err, RetryAfter: retryAfter}
}

// AsRateLimit returns the RateLimitError in err's chain, if any.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

// IsRateLimited reports whether err's chain holds a RateLimitError.
func IsRateLimited(err error) bool {
	_, ok := AsRateLimit(err)
	return ok
}

// StatusError classifies an HTTP failure: 429 becomes a RateLimitError,
// other retryable statuses a TransientError, and everything else is returned
// as is.
func StatusError(err error, statusCode int, retryAfter time.Duration) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewRateLimitError(err, retryAfter)
	case IsTransientHTTPStatus(statusCode):
		return NewTransientError(err, statusCode)
	default:
		return err
	}
}

// IsTransient reports whether err is worth retrying: an explicit
// TransientError or RateLimitError, a network timeout, a refused or reset
// connection, or a message matching a known transport failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) || IsRateLimited(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transportFailures {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// TripsBreaker reports whether err counts against the provider's health.
// Rate limits are retried but never open the circuit.
func TripsBreaker(err error) bool {
	return IsTransient(err) && !IsRateLimited(err)
}

var transportFailures = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransientHTTPStatus reports whether statusCode signals a temporary
// provider-side problem. 529 is the provider's overloaded status.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		529:
		return true
	default:
		return false
	}
}
