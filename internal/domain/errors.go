package domain

import "errors"

// ErrorKind is a machine-readable classification of a domain error
type ErrorKind string

// Domain error kinds
const (
	ErrAuthenticationRequired ErrorKind = "authentication_required" // No resolved user identity
	ErrInvalidCredentials     ErrorKind = "invalid_credentials"     // Bad username/password
	ErrDuplicateUsername      ErrorKind = "duplicate_username"      // Username already taken
	ErrNotFound               ErrorKind = "not_found"               // Missing record, also cross-owner access
	ErrUserNotFound           ErrorKind = "user_not_found"          // Unknown email on password reset
	ErrValidationFailed       ErrorKind = "validation_failed"       // Field-level validation, batch-aware
	ErrInvalidInput           ErrorKind = "invalid_input"           // Malformed request shape
	ErrExpired                ErrorKind = "expired"                 // Verification code past its window
	ErrIncorrectCode          ErrorKind = "incorrect_code"          // Verification code mismatch
	ErrNoCodeIssued           ErrorKind = "no_code_issued"          // No outstanding verification code
	ErrInvalidToken           ErrorKind = "invalid_token"           // External identity token rejected
	ErrIssuerMismatch         ErrorKind = "issuer_mismatch"         // External identity issuer not allowed
	ErrEmailUnverified        ErrorKind = "email_unverified"        // Upstream email not verified
	ErrUpstreamUnavailable    ErrorKind = "upstream_unavailable"    // Mail/exchange/aggregator failure
)

// Error is a domain error with a kind and a human-readable message
type Error struct {
	Kind    ErrorKind // Machine-readable kind
	Message string    // Human-readable message
}

// Error implements the error interface
func (e *Error) Error() string { return e.Message }

// NewError builds a domain error of the given kind
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the kind from a domain error, or "" for other errors
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
