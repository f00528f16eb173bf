package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Code is the coarse error code returned to clients next to the message.
type Code string

const (
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeConflict      Code = "CONFLICT"
	CodeDatabaseError Code = "DATABASE_ERROR"
	CodeInternalError Code = "INTERNAL_ERROR"
)

var (
	// JWT
	ErrInvalidSigningMethod = fmt.Errorf("invalid token signing method")
	ErrInvalidToken         = fmt.Errorf("invalid token")
	ErrTokenExpired         = fmt.Errorf("token expired")

	// Authorization
	ErrEmptyAuthHeader   = fmt.Errorf("authorization header is missing")
	ErrInvalidAuthHeader = fmt.Errorf("authorization header has an invalid format")
	ErrUnauthorized      = fmt.Errorf("not authenticated")
	ErrForbidden         = fmt.Errorf("access denied")

	// Common
	ErrNotFound   = fmt.Errorf("record not found")
	ErrBadRequest = fmt.Errorf("bad request")
	ErrValidation = fmt.Errorf("validation failed")
	ErrConflict   = fmt.Errorf("record already exists")
	ErrDatabase   = fmt.Errorf("database error")
)

type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

func (e *InvalidInputError) Unwrap() error { return ErrValidation }

func NewInvalidInputError(format string, args ...interface{}) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}

// HttpError carries an explicit status and code. Message is what the client
// sees; Err and Context only go to the logs.
type HttpError struct {
	Code    int
	ErrCode Code
	Message string
	Err     error
	Context map[string]interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(status int, message string, err error, ctx map[string]interface{}) *HttpError {
	return &HttpError{
		Code:    status,
		ErrCode: codeForStatus(status),
		Message: message,
		Err:     err,
		Context: ctx,
	}
}

func codeForStatus(status int) Code {
	switch status {
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusConflict:
		return CodeConflict
	default:
		return CodeInternalError
	}
}

// Classify resolves any error into the HTTP status, code and client message
// it should be reported with.
func Classify(err error) (int, Code, string) {
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		return httpErr.Code, httpErr.ErrCode, httpErr.Message
	}

	var invalid *InvalidInputError
	if errors.As(err, &invalid) {
		return http.StatusBadRequest, CodeValidation, invalid.Message
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, CodeValidation, describeValidation(verrs)
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, CodeNotFound, ErrNotFound.Error()
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrEmptyAuthHeader),
		errors.Is(err, ErrInvalidAuthHeader),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrInvalidSigningMethod):
		return http.StatusUnauthorized, CodeUnauthorized, err.Error()
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, CodeForbidden, err.Error()
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, CodeValidation, err.Error()
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, CodeConflict, err.Error()
	case errors.Is(err, ErrDatabase):
		return http.StatusInternalServerError, CodeDatabaseError, "database error"
	default:
		return http.StatusInternalServerError, CodeInternalError, "internal server error"
	}
}

func describeValidation(verrs validator.ValidationErrors) string {
	if len(verrs) == 0 {
		return ErrValidation.Error()
	}
	first := verrs[0]
	msg := fmt.Sprintf("field %q failed on %q", first.Field(), first.Tag())
	if len(verrs) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(verrs)-1)
	}
	return msg
}
