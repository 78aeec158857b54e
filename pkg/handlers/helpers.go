package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"sales-tracker-backend/pkg/middleware"
	"sales-tracker-backend/pkg/models"
	"sales-tracker-backend/pkg/utils"
)

// decodeBody 解析JSON请求体，失败时返回 VALIDATION_ERROR
func decodeBody(r *http.Request, v interface{}) error {
	if err := utils.ParseJSONBody(r, v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return utils.NewValidationError(utils.FieldError{Field: "body", Message: "Request body too large"})
		case errors.Is(err, io.EOF):
			return utils.NewValidationError(utils.FieldError{Field: "body", Message: "Request body is required"})
		}
		return utils.NewValidationError(utils.FieldError{Field: "body", Message: "Invalid JSON body"})
	}
	return nil
}

// identity 当前认证用户
func identity(r *http.Request) (*models.UserProfile, error) {
	return middleware.RequireUser(r.Context())
}

// userIDParam reads {userId} and requires it to be a UUID
func userIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "userId"))
	if _, err := uuid.Parse(id); err != nil {
		return "", &utils.AppError{
			Code:    utils.CodeValidation,
			Message: "Invalid user ID",
			Details: []utils.FieldError{{Field: "userId", Message: "userId must be a valid UUID"}},
		}
	}
	return id, nil
}
