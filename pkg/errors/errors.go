package errors

import "fmt"

// ErrorType classifies failures so callers can decide retry eligibility
// without inspecting message text
type ErrorType string

const (
	// ErrorTypeNetwork covers timeouts, connection resets and refused connections
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit is a platform-side throttle signal (HTTP 429 and friends)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeServerError covers upstream 5xx responses
	ErrorTypeServerError ErrorType = "server_error"
	// ErrorTypeResolution means the platform could not produce a direct media URL
	// (content removed, not a video, malformed API response)
	ErrorTypeResolution ErrorType = "resolution"
	// ErrorTypeFetch is a platform-side download failure that retrying won't fix
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeUnsupported means no strategy accepted the URL
	ErrorTypeUnsupported ErrorType = "unsupported_platform"
	// ErrorTypeConfig is a deployment problem (missing or unauthorized credential)
	ErrorTypeConfig ErrorType = "configuration"
	// ErrorTypeUnknown is everything else
	ErrorTypeUnknown ErrorType = "unknown"
)

// Error is a classified failure from a strategy or the proxy layer
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a classified error without an HTTP status code
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Newf creates a classified error with a formatted message
func Newf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// WithCode creates a classified error carrying the upstream HTTP status
func WithCode(t ErrorType, code int, msg string) *Error {
	return &Error{Type: t, Message: msg, Code: code}
}

// IsRetryable reports whether an error type is transient
func IsRetryable(t ErrorType) bool {
	switch t {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsConnectionBlocked reports whether an error type indicates the platform is
// actively blocking or throttling this client, which warrants a longer backoff
// than a generic transient failure
func IsConnectionBlocked(t ErrorType) bool {
	return t == ErrorTypeNetwork || t == ErrorTypeRateLimit
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}

// ExhaustedError is the terminal failure after the retry loop and the single
// fallback attempt (if any) have both failed. It carries both underlying
// errors for observability.
type ExhaustedError struct {
	Platform string
	Attempts int
	Primary  error
	Fallback error
}

func (e *ExhaustedError) Error() string {
	if e.Fallback != nil {
		return fmt.Sprintf("%s download failed after %d attempts (%v); fallback also failed: %v",
			e.Platform, e.Attempts, e.Primary, e.Fallback)
	}
	return fmt.Sprintf("%s download failed after %d attempts: %v", e.Platform, e.Attempts, e.Primary)
}

// Unwrap exposes the primary error for errors.Is/As chains
func (e *ExhaustedError) Unwrap() error {
	return e.Primary
}
