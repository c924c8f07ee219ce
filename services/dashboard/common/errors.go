package common

import "errors"

// Error codes used in the JSON error envelope
const (
	CodeConfigError      = "CONFIG_ERROR"
	CodeUpstreamError    = "UPSTREAM_ERROR"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeCORSError        = "CORS_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeTooManyAttempts  = "TOO_MANY_ATTEMPTS"
)

// ErrEmptySiteList signals that no site id is configured
var ErrEmptySiteList = errors.New("no site ids configured")

// ErrMissingConnectionSettings signals that the upstream base URL or the auth token is missing
var ErrMissingConnectionSettings = errors.New("upstream connection settings are not configured")

// ErrCacheCorruption signals a stored cache entry that can not be decoded
var ErrCacheCorruption = errors.New("cache entry is corrupt")

// ErrUnexpectedShape signals an upstream response that does not have the expected JSON shape
var ErrUnexpectedShape = errors.New("unexpected upstream response shape")

// ErrAllSitesFailed signals that every configured site failed during one aggregation pass
var ErrAllSitesFailed = errors.New("all site fetches failed")

// ConfigError is a non-retryable error that requires an operator fix
type ConfigError struct {
	Reason string
	Err    error
}

// NewConfigError wraps err as a ConfigError
func NewConfigError(err error) *ConfigError {
	return &ConfigError{
		Reason: err.Error(),
		Err:    err,
	}
}

// Error returns the string representation of the error
func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

// Unwrap returns the wrapped error
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UpstreamError is returned when the upstream analytics API can not provide the requested data
type UpstreamError struct {
	Reason string
}

// Error returns the string representation of the error
func (e *UpstreamError) Error() string {
	return "upstream error: " + e.Reason
}

// IsConfigError returns true if err, or any error it wraps, is a ConfigError
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// IsUpstreamError returns true if err, or any error it wraps, is an UpstreamError
func IsUpstreamError(err error) bool {
	var upErr *UpstreamError
	return errors.As(err, &upErr)
}
