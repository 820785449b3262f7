package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	// Broad error kinds
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodePrecondition ErrorCode = "PRECONDITION_ERROR"
	CodeTransient    ErrorCode = "TRANSIENT_ERROR"
	CodeConflict     ErrorCode = "CONFLICT_ERROR"

	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	CodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	CodeForbidden     ErrorCode = "FORBIDDEN"
	CodeInternal      ErrorCode = "INTERNAL"

	// Domain-specific precondition codes
	CodeTournamentFull      ErrorCode = "TOURNAMENT_FULL"
	CodeTournamentNotOpen   ErrorCode = "TOURNAMENT_NOT_OPEN"
	CodeAlreadyJoined       ErrorCode = "ALREADY_JOINED"
	CodeUsernameTaken       ErrorCode = "USERNAME_TAKEN"
	CodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	CodeRequestProcessed    ErrorCode = "REQUEST_ALREADY_PROCESSED"
	CodeRateLimited         ErrorCode = "RATE_LIMITED"
)

type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the error code from an error chain.
// Anything that is not an AppError counts as internal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

func IsConflict(err error) bool {
	return IsCode(err, CodeConflict)
}
