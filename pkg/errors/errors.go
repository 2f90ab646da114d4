package errors

import (
	goerrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents page fetch / network errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents embedded-data extraction errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypeDelivery represents Telegram delivery errors
	ErrorTypeDelivery ErrorType = "delivery"
	// ErrorTypeValidation represents record validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlError represents a crawler-specific error. Page is the 1-based
// search page the error occurred on, or 0 when the error is not tied to
// a particular page.
type CrawlError struct {
	Type     ErrorType
	Provider string
	Page     int
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *CrawlError) Error() string {
	msg := e.Message
	if e.Page > 0 {
		msg = fmt.Sprintf("page %d: %s", e.Page, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Provider, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Provider, msg)
}

// Unwrap returns the underlying error
func (e *CrawlError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *CrawlError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeDelivery:
		return true
	default:
		return false
	}
}

// New creates a new CrawlError
func New(errType ErrorType, provider, message string, err error) *CrawlError {
	return &CrawlError{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewNetwork creates a new network error for the given page
func NewNetwork(provider string, page int, message string, err error) *CrawlError {
	e := New(ErrorTypeNetwork, provider, message, err)
	e.Page = page
	return e
}

// NewParsing creates a new parsing error for the given page
func NewParsing(provider string, page int, message string, err error) *CrawlError {
	e := New(ErrorTypeParsing, provider, message, err)
	e.Page = page
	return e
}

// NewRateLimit creates a new rate limit error for the given page
func NewRateLimit(provider string, page int, message string, err error) *CrawlError {
	e := New(ErrorTypeRateLimit, provider, message, err)
	e.Page = page
	return e
}

// NewDelivery creates a new delivery error
func NewDelivery(provider, message string, err error) *CrawlError {
	return New(ErrorTypeDelivery, provider, message, err)
}

// isType reports whether err is (or wraps) a CrawlError of the given type.
func isType(err error, t ErrorType) bool {
	var ce *CrawlError
	if goerrors.As(err, &ce) {
		return ce.Type == t
	}
	return false
}

// IsNetwork reports whether err is a page fetch failure.
func IsNetwork(err error) bool {
	return isType(err, ErrorTypeNetwork)
}

// IsParsing reports whether err is an embedded-data extraction failure.
func IsParsing(err error) bool {
	return isType(err, ErrorTypeParsing)
}

// IsRateLimit reports whether err is a rate limit block.
func IsRateLimit(err error) bool {
	return isType(err, ErrorTypeRateLimit)
}

// PageOf returns the page number attached to err, or 0.
func PageOf(err error) int {
	var ce *CrawlError
	if goerrors.As(err, &ce) {
		return ce.Page
	}
	return 0
}
