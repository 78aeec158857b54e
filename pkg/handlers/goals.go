package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/models"
	"sales-tracker-backend/pkg/services"
	"sales-tracker-backend/pkg/utils"
)

// GoalsHandler 目标处理器
type GoalsHandler struct {
	goals  *services.GoalsService
	logger logrus.FieldLogger
}

// NewGoalsHandler 创建目标处理器
func NewGoalsHandler(goals *services.GoalsService, logger logrus.FieldLogger) *GoalsHandler {
	return &GoalsHandler{goals: goals, logger: logger}
}

// GetGoals GET /api/goals
func (h *GoalsHandler) GetGoals(w http.ResponseWriter, r *http.Request) {
	user, err := identity(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	data, err := h.goals.Resolve(r.Context(), user)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, "", data)
}

// UpdateGoals PUT /api/goals
func (h *GoalsHandler) UpdateGoals(w http.ResponseWriter, r *http.Request) {
	user, err := identity(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	var req models.GoalsUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	data, err := h.goals.Update(r.Context(), user, &req)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, "Organization goals updated successfully. All team members will see these goals.", data)
}
