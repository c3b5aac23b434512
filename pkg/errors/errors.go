package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeValidation represents malformed input items or URLs
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeAdapter represents a site adapter failing on a page it accepted
	ErrorTypeAdapter ErrorType = "adapter"
	// ErrorTypeNetwork represents connection, DNS and protocol failures
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeTimeout represents an elapsed per-call timeout
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeNoCandidates represents link discovery finding nothing usable
	ErrorTypeNoCandidates ErrorType = "no_candidates"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ExtractionError represents an error raised while extracting one item
type ExtractionError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *ExtractionError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit:
		return true
	case ErrorTypeAdapter:
		// anti-scraping interstitials often look like malformed detail pages
		return true
	default:
		return false
	}
}

// New creates a new ExtractionError
func New(errType ErrorType, source, message string, err error) *ExtractionError {
	return &ExtractionError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *ExtractionError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewAdapter creates a new adapter error
func NewAdapter(source, message string, err error) *ExtractionError {
	return New(ErrorTypeAdapter, source, message, err)
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *ExtractionError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewTimeout creates a new timeout error
func NewTimeout(source string, after time.Duration, err error) *ExtractionError {
	return New(ErrorTypeTimeout, source, fmt.Sprintf("timed out after %v", after), err)
}

// NewNoCandidates creates a new no-candidate-links error
func NewNoCandidates(source, listingURL string) *ExtractionError {
	return New(ErrorTypeNoCandidates, source, "no usable candidate links on "+listingURL, nil)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *ExtractionError {
	return New(ErrorTypeCache, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source, retryAfter string) *ExtractionError {
	message := "rate limited"
	if retryAfter != "" {
		message += "; retry after " + retryAfter
	}
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ExtractionError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// TypeOf returns the ErrorType carried by err, or "" when err is not an ExtractionError
func TypeOf(err error) ErrorType {
	var ee *ExtractionError
	if stderrors.As(err, &ee) {
		return ee.Type
	}
	return ""
}

// Is reports whether err carries the given ErrorType
func Is(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// IsRetryable reports whether err is an ExtractionError worth retrying
func IsRetryable(err error) bool {
	var ee *ExtractionError
	if stderrors.As(err, &ee) {
		return ee.IsRetryable()
	}
	return false
}
