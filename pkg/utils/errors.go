package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// 错误代码
const (
	CodeInvalidDate          = "INVALID_DATE"
	CodeNotMonday            = "NOT_MONDAY"
	CodeInvalidValue         = "INVALID_VALUE"
	CodeInvalidMetrics       = "INVALID_METRICS"
	CodeInvalidEmail         = "INVALID_EMAIL"
	CodeWeakPassword         = "WEAK_PASSWORD"
	CodeInvalidRole          = "INVALID_ROLE"
	CodeValidation           = "VALIDATION_ERROR"
	CodeNoOrganization       = "NO_ORGANIZATION"
	CodeOrganizationNotFound = "ORGANIZATION_NOT_FOUND"
	CodeEmailExists          = "EMAIL_EXISTS"
	CodeOrganizationExists   = "ORGANIZATION_EXISTS"
	CodeDuplicateEntry       = "DUPLICATE_ENTRY"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeNoToken              = "NO_TOKEN"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeAuthError            = "AUTH_ERROR"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeNotFound             = "NOT_FOUND"
	CodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	CodeAuthRateLimit        = "AUTH_RATE_LIMIT"
	CodeInternal             = "INTERNAL_ERROR"
)

// statusByCode keeps HTTP status deterministic per error code
var statusByCode = map[string]int{
	CodeInvalidDate:          http.StatusBadRequest,
	CodeNotMonday:            http.StatusBadRequest,
	CodeInvalidValue:         http.StatusBadRequest,
	CodeInvalidMetrics:       http.StatusBadRequest,
	CodeInvalidEmail:         http.StatusBadRequest,
	CodeWeakPassword:         http.StatusBadRequest,
	CodeInvalidRole:          http.StatusBadRequest,
	CodeValidation:           http.StatusBadRequest,
	CodeNoOrganization:       http.StatusBadRequest,
	CodeOrganizationNotFound: http.StatusBadRequest,
	CodeInvalidCredentials:   http.StatusUnauthorized,
	CodeUserNotFound:         http.StatusUnauthorized,
	CodeNoToken:              http.StatusUnauthorized,
	CodeInvalidToken:         http.StatusUnauthorized,
	CodeTokenExpired:         http.StatusUnauthorized,
	CodeAuthError:            http.StatusUnauthorized,
	CodeUnauthorized:         http.StatusUnauthorized,
	CodeForbidden:            http.StatusForbidden,
	CodeNotFound:             http.StatusNotFound,
	CodeMethodNotAllowed:     http.StatusMethodNotAllowed,
	CodeEmailExists:          http.StatusConflict,
	CodeOrganizationExists:   http.StatusConflict,
	CodeDuplicateEntry:       http.StatusConflict,
	CodeRateLimitExceeded:    http.StatusTooManyRequests,
	CodeAuthRateLimit:        http.StatusTooManyRequests,
	CodeInternal:             http.StatusInternalServerError,
}

// StatusForCode 返回错误代码对应的HTTP状态码，未知代码视为500
func StatusForCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FieldError 字段级校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError 业务错误，携带稳定的错误代码
type AppError struct {
	Code    string
	Message string
	Details []FieldError
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status 返回HTTP状态码
func (e *AppError) Status() int {
	return StatusForCode(e.Code)
}

// NewAppError 创建业务错误
func NewAppError(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NewValidationError 创建带字段详情的校验错误
func NewValidationError(details ...FieldError) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: "Validation failed",
		Details: details,
	}
}

// AsAppError extracts an *AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code
func IsCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
