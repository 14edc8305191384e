package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeRateLimited  ErrorType = "RATE_LIMITED"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidDate       ErrorCode = "INVALID_DATE"
	ErrCodeInvalidEmail      ErrorCode = "INVALID_EMAIL"
	ErrCodeInvalidRole       ErrorCode = "INVALID_ROLE"
	ErrCodeInvalidPayload    ErrorCode = "INVALID_PAYLOAD"
	ErrCodePayloadTooLarge   ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeAttachmentMissing ErrorCode = "ATTACHMENT_REQUIRED"
	ErrCodePasswordMismatch  ErrorCode = "PASSWORD_MISMATCH"
	ErrCodePasswordTooShort  ErrorCode = "PASSWORD_TOO_SHORT"

	ErrCodeDocumentNotFound ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrCodeFileNotFound     ErrorCode = "FILE_NOT_FOUND"
	ErrCodeFileUnavailable  ErrorCode = "FILE_UNAVAILABLE"
	ErrCodeLastAttachment   ErrorCode = "LAST_ATTACHMENT"
	ErrCodeOptionNotFound   ErrorCode = "OPTION_NOT_FOUND"

	ErrCodeUserNotFound     ErrorCode = "USER_NOT_FOUND"
	ErrCodeUsernameTaken    ErrorCode = "USERNAME_TAKEN"
	ErrCodeEmailTaken       ErrorCode = "EMAIL_TAKEN"
	ErrCodeCannotDeleteSelf ErrorCode = "CANNOT_DELETE_SELF"
	ErrCodeWrongPassword    ErrorCode = "WRONG_CURRENT_PASSWORD"
	ErrCodeInsufficientRole ErrorCode = "INSUFFICIENT_ROLE"
	ErrCodeRateLimited      ErrorCode = "RATE_LIMITED"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if ve, ok := e.Details.(ValidationErrors); ok && len(ve.Errors) > 0 {
		return ve.Errors[0].Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// GetDetailedMessage joins every field message, falling back to Message.
func (e *AppError) GetDetailedMessage() string {
	ve, ok := e.Details.(ValidationErrors)
	if !ok || len(ve.Errors) == 0 {
		return e.Message
	}
	messages := make([]string, len(ve.Errors))
	for i, fe := range ve.Errors {
		messages[i] = fe.Message
	}
	return strings.Join(messages, "; ")
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func newAppError(t ErrorType, status int, code ErrorCode, message string) *AppError {
	return &AppError{Type: t, Code: code, Message: message, StatusCode: status}
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, code, message)
}

// NewValidationFieldError reports a single invalid field.
func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationError("Validation failed", ErrCodeValidationFailed).
		WithDetails(ValidationErrors{Errors: []ValidationError{{Field: field, Message: message, Code: string(code)}}})
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, code, message)
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeUnauthorized, http.StatusUnauthorized, code, message)
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeForbidden, http.StatusForbidden, code, message)
}

func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, "INTERNAL_ERROR", message).WithCause(cause)
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeConflict, http.StatusConflict, code, message)
}

func NewTooManyRequestsError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeRateLimited, http.StatusTooManyRequests, code, message)
}

var (
	ErrInvalidCredentials = NewUnauthorizedError("Invalid username or password", ErrCodeInvalidCredentials)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrInsufficientRole   = NewForbiddenError("Forbidden: insufficient role", ErrCodeInsufficientRole)
	ErrPayloadTooLarge    = newAppError(ErrorTypeValidation, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
