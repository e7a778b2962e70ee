package client

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/comic-harvester/pkg/records"
)

// Common errors returned by the client.
var (
	// ErrEmptyLocator is returned when an operation is called without a locator.
	ErrEmptyLocator = errors.New("empty endpoint locator")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents connection, timeout and body read errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a response body that does not match the
	// expected shape.
	ErrorClassDecode ErrorClass = "decode"
)

// APIError is returned by every failed remote operation.
type APIError struct {
	Operation  Operation
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s error", e.Operation, e.Class)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether the class describes a failed exchange rather
// than a malformed body.
func (c ErrorClass) IsTransport() bool {
	switch c {
	case ErrorClassClient, ErrorClassServer, ErrorClassNetwork:
		return true
	default:
		return false
	}
}

// Classify returns the class of err. Errors that are neither an APIError nor
// a records decode failure are classed as network errors.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	if errors.Is(err, records.ErrShape) {
		return ErrorClassDecode
	}
	return ErrorClassNetwork
}

// classifyStatus maps a non-2xx status code to an error class.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		// 1xx and 3xx that the transport did not resolve
		return ErrorClassServer
	}
}
