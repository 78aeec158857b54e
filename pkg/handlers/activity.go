package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/models"
	"sales-tracker-backend/pkg/services"
	"sales-tracker-backend/pkg/utils"
)

// ActivityHandler 个人每周活动处理器
type ActivityHandler struct {
	activity *services.ActivityService
	logger   logrus.FieldLogger
}

// NewActivityHandler 创建活动处理器
func NewActivityHandler(activity *services.ActivityService, logger logrus.FieldLogger) *ActivityHandler {
	return &ActivityHandler{activity: activity, logger: logger}
}

// GetWeek GET /api/activity/week/{weekStartDate}
func (h *ActivityHandler) GetWeek(w http.ResponseWriter, r *http.Request) {
	user, err := identity(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	a, err := h.activity.GetWeek(r.Context(), user.ID, chi.URLParam(r, "weekStartDate"))
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

// SaveWeek POST /api/activity/week
func (h *ActivityHandler) SaveWeek(w http.ResponseWriter, r *http.Request) {
	user, err := identity(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	var req models.WeekActivityRequest
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	a, err := h.activity.SaveWeek(r.Context(), user.ID, &req)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, "Weekly activity saved successfully", a.View(false))
}

// ListAll GET /api/activity/all?startDate&endDate
func (h *ActivityHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	user, err := identity(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	list, err := h.activity.ListAll(r.Context(), user.ID, utils.GetQueryParam(r, "startDate", ""), utils.GetQueryParam(r, "endDate", ""))
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, "", list)
}
