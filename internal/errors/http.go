package errors

import (
	"errors"
	"net/http"
)

// HTTPStatus maps an error to the response status the API layer should use.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTransient:
		return http.StatusServiceUnavailable
	case CodePrecondition,
		CodeTournamentFull,
		CodeTournamentNotOpen,
		CodeAlreadyJoined,
		CodeUsernameTaken,
		CodeInsufficientBalance,
		CodeRequestProcessed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the text that is safe to show to the initiating user.
// Internal and transient failures are collapsed into a generic message so
// backend details never leak through the API.
func UserMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "something went wrong, please try again"
	}

	switch appErr.Code {
	case CodeInternal, CodeTransient:
		return "something went wrong, please try again"
	default:
		return appErr.Message
	}
}
