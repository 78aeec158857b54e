package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/services"
	"sales-tracker-backend/pkg/utils"
)

// UsersHandler 用户管理处理器（经理/管理员）
type UsersHandler struct {
	directory *services.DirectoryService
	activity  *services.ActivityService
	logger    logrus.FieldLogger
}

// NewUsersHandler 创建用户处理器
func NewUsersHandler(directory *services.DirectoryService, activity *services.ActivityService, logger logrus.FieldLogger) *UsersHandler {
	return &UsersHandler{directory: directory, activity: activity, logger: logger}
}

// ListUsers GET /api/users
func (h *UsersHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	user, err := identity(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	users, err := h.directory.ListUsers(r.Context(), user)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, "", users)
}

// GetUserWeek GET /api/users/{userId}/activity/week/{weekStartDate}
func (h *UsersHandler) GetUserWeek(w http.ResponseWriter, r *http.Request) {
	user, err := identity(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	targetID, err := userIDParam(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	target, err := h.directory.Member(r.Context(), user, targetID)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	a, err := h.activity.GetWeek(r.Context(), target.ID, chi.URLParam(r, "weekStartDate"))
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	if a == nil {
		utils.WriteSuccessResponse(w, "No activity found for this week", nil)
		return
	}
	utils.WriteSuccessResponse(w, "", a.View(false))
}

// ListUserActivity GET /api/users/{userId}/activity/all?startDate&endDate
func (h *UsersHandler) ListUserActivity(w http.ResponseWriter, r *http.Request) {
	user, err := identity(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	targetID, err := userIDParam(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	target, err := h.directory.Member(r.Context(), user, targetID)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	list, err := h.activity.ListAll(r.Context(), target.ID, utils.GetQueryParam(r, "startDate", ""), utils.GetQueryParam(r, "endDate", ""))
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, "", list)
}
