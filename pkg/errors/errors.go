// Package errors carries typed error codes across service boundaries and
// maps each code onto the HTTP status and message clients see.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeOutOfStock         Code = "OUT_OF_STOCK"
	CodeProductUnavailable Code = "PRODUCT_UNAVAILABLE"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeSignatureInvalid   Code = "SIGNATURE_INVALID"
	CodeGateway            Code = "GATEWAY_ERROR"
	CodeDuplicate          Code = "DUPLICATE"
	CodeAlreadyProcessed   Code = "ALREADY_PROCESSED"
	CodeIdempotency        Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeDependency         Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is surfaced. Codes with OwnMessage echo the
// error's message instead of PublicMessage.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	OwnMessage     bool
}

const (
	retryable  = 1 << iota
	details
	ownMessage
)

func meta(status int, public string, flags int) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      flags&retryable != 0,
		DetailsAllowed: flags&details != 0,
		OwnMessage:     flags&ownMessage != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:         meta(http.StatusBadRequest, "validation failed", details|ownMessage),
	CodeUnauthorized:       meta(http.StatusUnauthorized, "authentication required", 0),
	CodeForbidden:          meta(http.StatusForbidden, "access denied", 0),
	CodeNotFound:           meta(http.StatusNotFound, "resource not found", ownMessage),
	CodeOutOfStock:         meta(http.StatusConflict, "insufficient stock", details|ownMessage),
	CodeProductUnavailable: meta(http.StatusConflict, "product unavailable", details|ownMessage),
	CodeInvalidTransition:  meta(http.StatusConflict, "state transition disallowed", details|ownMessage),
	CodeSignatureInvalid:   meta(http.StatusBadRequest, "signature verification failed", 0),
	CodeGateway:            meta(http.StatusBadGateway, "payment gateway error", retryable|details|ownMessage),
	CodeDuplicate:          meta(http.StatusConflict, "duplicate record", details|ownMessage),
	CodeAlreadyProcessed:   meta(http.StatusConflict, "already processed", details|ownMessage),
	CodeIdempotency:        meta(http.StatusConflict, "idempotency key reused", details|ownMessage),
	CodeInternal:           meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:         meta(http.StatusServiceUnavailable, "dependency unavailable", retryable|details),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As finds the first *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the typed code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	return As(err).Code()
}

// IsRetryable reports whether a caller may try the same operation again.
// Untyped errors count as internal and therefore retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return MetadataFor(CodeOf(err)).Retryable
}
