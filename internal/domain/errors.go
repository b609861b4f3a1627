/**
 * @description
 * Typed error taxonomy shared by the store, the transfer engine and the
 * mediator. Callers branch on the error kind with errors.As, never on
 * message text; the schema-rejection kind in particular exists so the
 * mediator can drive its identity-alias retry loop off a typed signal.
 */

package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed operation.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindNotFound         ErrorKind = "not_found"
	KindForbidden        ErrorKind = "forbidden"
	KindLimitExceeded    ErrorKind = "limit_exceeded"
	KindCurrencyMismatch ErrorKind = "currency_mismatch"
	KindSchemaRejection  ErrorKind = "schema_rejection"
	KindTimeout          ErrorKind = "timeout"
	KindRateLimited      ErrorKind = "rate_limited"
	KindStorage          ErrorKind = "storage"
)

// Error is a classified, user-displayable failure. Code is a stable machine
// code (e.g. "daily_limit_exceeded"); Message is short human-readable text.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two classified errors by kind and code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind && (other.Code == "" || e.Code == other.Code)
}

func NewValidation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NewNotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func NewForbidden(code, message string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: message}
}

func NewLimitExceeded(code, message string) *Error {
	return &Error{Kind: KindLimitExceeded, Code: code, Message: message}
}

func NewCurrencyMismatch(message string) *Error {
	return &Error{Kind: KindCurrencyMismatch, Code: "currency_mismatch", Message: message}
}

// NewSchemaRejection reports that the callee refused a call because of an
// unexpected parameter name. Raised only by the operation-calling boundary.
func NewSchemaRejection(param string) *Error {
	return &Error{
		Kind:    KindSchemaRejection,
		Code:    "unexpected_parameter",
		Message: fmt.Sprintf("unexpected parameter %q", param),
	}
}

func NewTimeout(message string) *Error {
	return &Error{Kind: KindTimeout, Code: "timeout", Message: message}
}

func NewRateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Code: "429", Message: message}
}

func NewStorage(err error) *Error {
	return &Error{Kind: KindStorage, Code: "storage_failed", Message: "the operation could not be completed", Err: err}
}

// KindOf extracts the kind of a classified error, or empty for plain errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsSchemaRejection reports whether err is the typed schema-rejection signal
// the mediator recovers from by trying the next identity alias.
func IsSchemaRejection(err error) bool {
	return KindOf(err) == KindSchemaRejection
}
