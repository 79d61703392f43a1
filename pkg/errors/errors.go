package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness. Policy denials
// are expected business outcomes carried through the same type; IsDenial
// distinguishes them so callers never log them as failures.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrPolicyDenied       = New("POLICY_DENIED", http.StatusForbidden, "action not permitted")
	ErrSelfReview         = New("SELF_REVIEW", http.StatusForbidden, "you can't review yourself")
	ErrNotParticipant     = New("NOT_PARTICIPANT", http.StatusForbidden, "you need to interact in the thread first")
	ErrDuplicateReview    = New("DUPLICATE_REVIEW", http.StatusConflict, "you've already reviewed in this thread")
	ErrNotOwner           = New("NOT_OWNER", http.StatusForbidden, "only the thread owner can do that")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

var denialCodes = map[string]struct{}{
	ErrPolicyDenied.Code:    {},
	ErrSelfReview.Code:      {},
	ErrNotParticipant.Code:  {},
	ErrDuplicateReview.Code: {},
	ErrNotOwner.Code:        {},
}

// IsDenial reports whether err is a policy denial: an expected, non-erroneous
// business outcome surfaced to the actor but never logged as a failure.
func IsDenial(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	_, ok := denialCodes[e.Code]
	return ok
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
