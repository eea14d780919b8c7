package errors

import "fmt"

type ErrorCode string

const (
	// Generic codes
	ErrInternalServer     ErrorCode = "internal_server_error"
	ErrInvalidInput       ErrorCode = "invalid_input"
	ErrInvalidRequestData ErrorCode = "invalid_request_data"
	ErrNotFound           ErrorCode = "not_found"
	ErrAlreadyExists      ErrorCode = "already_exists"
	ErrForbidden          ErrorCode = "forbidden"
	ErrUnauthorized       ErrorCode = "unauthorized"

	// Auth / bearer token codes
	ErrTokenExpired               ErrorCode = "token_expired"
	ErrInvalidTokenFormat         ErrorCode = "invalid_token_format"
	ErrMissingAuthorizationHeader ErrorCode = "missing_authorization_header"

	// Magic-token validation taxonomy. These are recorded verbatim in the
	// analytics sink and collapsed to one generic message at the API boundary.
	ErrMagicTokenInvalid  ErrorCode = "invalid_token"
	ErrMagicTokenNotFound ErrorCode = "token_not_found"
	ErrMagicTokenRevoked  ErrorCode = "token_revoked"
	ErrMagicTokenExpired  ErrorCode = "token_expired"
	ErrMagicTokenServer   ErrorCode = "server_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}
