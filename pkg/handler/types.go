package handler

import (
	"errors"
	"time"
)

// Constants for handler configuration
const (
	// DefaultTimeout is the maximum time to process a request
	DefaultTimeout = 10 * time.Second

	// MaxBodySize is the maximum accepted request body after decoding
	MaxBodySize = 1 << 20 // 1MB
)

// Custom error types for more precise error reporting
var (
	ErrInvalidBody  = errors.New("request body is not valid base64")
	ErrBodyTooLarge = errors.New("request body exceeds maximum allowed size")
	ErrInvalidPath  = errors.New("request path is invalid")
)

// ResponseHeaders common headers to include in adapter generated responses
var ResponseHeaders = map[string]string{
	"Content-Type": "application/json",
}
