package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/database"
)

// APIResponse 标准API响应结构
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError 错误信息结构
type APIError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// WriteJSONResponse 写入JSON响应
func WriteJSONResponse(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		// 头部已经写出，只能记录
		logrus.WithError(err).Error("failed to encode response")
	}
}

// WriteSuccessResponse 写入成功响应（message 与 data 均可省略）
func WriteSuccessResponse(w http.ResponseWriter, message string, data interface{}) {
	WriteJSONResponse(w, http.StatusOK, APIResponse{Success: true, Message: message, Data: data})
}

// WriteCreatedResponse 写入创建成功响应
func WriteCreatedResponse(w http.ResponseWriter, message string, data interface{}) {
	WriteJSONResponse(w, http.StatusCreated, APIResponse{Success: true, Message: message, Data: data})
}

// WriteErrorResponseWithCode 写入带错误代码的错误响应
func WriteErrorResponseWithCode(w http.ResponseWriter, statusCode int, code, message string, details []FieldError) {
	WriteJSONResponse(w, statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteAppError 按错误代码写入错误响应
func WriteAppError(w http.ResponseWriter, appErr *AppError) {
	WriteErrorResponseWithCode(w, appErr.Status(), appErr.Code, appErr.Message, appErr.Details)
}

// WriteUnauthorizedResponse 写入401错误响应
func WriteUnauthorizedResponse(w http.ResponseWriter, message string) {
	WriteAppError(w, NewAppError(CodeUnauthorized, message))
}

// WriteForbiddenResponse 写入403错误响应
func WriteForbiddenResponse(w http.ResponseWriter, message string) {
	WriteAppError(w, NewAppError(CodeForbidden, message))
}

// WriteNotFoundResponse 写入404错误响应
func WriteNotFoundResponse(w http.ResponseWriter, message string) {
	WriteAppError(w, NewAppError(CodeNotFound, message))
}

// WriteInternalServerErrorResponse 写入500错误响应
func WriteInternalServerErrorResponse(w http.ResponseWriter, message string) {
	WriteAppError(w, NewAppError(CodeInternal, message))
}

// WriteError is the single error boundary for handlers. Known domain and
// constraint errors are rendered with their code; anything else is logged
// with request context and rendered as INTERNAL_ERROR.
func WriteError(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, err error) {
	if appErr, ok := AsAppError(err); ok {
		WriteAppError(w, appErr)
		return
	}

	switch {
	case errors.Is(err, database.ErrDuplicate):
		WriteAppError(w, NewAppError(CodeDuplicateEntry, "A record with this value already exists"))
		return
	case errors.Is(err, database.ErrNotFound):
		WriteAppError(w, NewAppError(CodeNotFound, "Record not found"))
		return
	}

	RequestLogger(logger, r).WithError(err).Error("unhandled request error")
	WriteInternalServerErrorResponse(w, "Internal server error")
}

// RequestLogger 为日志附加请求上下文
func RequestLogger(logger logrus.FieldLogger, r *http.Request) logrus.FieldLogger {
	return logger.WithFields(logrus.Fields{
		"request_id": chimiddleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
		"remote_ip":  r.RemoteAddr,
	})
}

// ParseJSONBody 解析JSON请求体
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// GetQueryParam 获取查询参数，如果不存在则返回默认值
func GetQueryParam(r *http.Request, key, defaultValue string) string {
	if value := r.URL.Query().Get(key); value != "" {
		return value
	}
	return defaultValue
}
