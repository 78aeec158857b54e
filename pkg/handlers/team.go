package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/models"
	"sales-tracker-backend/pkg/services"
	"sales-tracker-backend/pkg/utils"
)

// TeamHandler 团队处理器
type TeamHandler struct {
	directory *services.DirectoryService
	goals     *services.GoalsService
	activity  *services.ActivityService
	logger    logrus.FieldLogger
}

// NewTeamHandler 创建团队处理器
func NewTeamHandler(directory *services.DirectoryService, goals *services.GoalsService, activity *services.ActivityService, logger logrus.FieldLogger) *TeamHandler {
	return &TeamHandler{directory: directory, goals: goals, activity: activity, logger: logger}
}

// member resolves {userId} to a user the caller may manage
func (h *TeamHandler) member(r *http.Request) (*models.User, error) {
	user, err := identity(r)
	if err != nil {
		return nil, err
	}
	targetID, err := userIDParam(r)
	if err != nil {
		return nil, err
	}
	return h.directory.Member(r.Context(), user, targetID)
}

// ListMembers GET /api/team/members
func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user, err := identity(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	members, err := h.directory.ListTeamMembers(r.Context(), user)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, "", members)
}

// MemberGoals GET /api/team/member/{userId}/goals
func (h *TeamHandler) MemberGoals(w http.ResponseWriter, r *http.Request) {
	target, err := h.member(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	data, err := h.goals.Resolve(r.Context(), target.Profile())
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, "", data)
}

// MemberWeek GET /api/team/member/{userId}/activity/{weekStartDate}
func (h *TeamHandler) MemberWeek(w http.ResponseWriter, r *http.Request) {
	target, err := h.member(r)
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
		utils.WriteSuccessResponse(w, "No data found for this week", nil)
		return
	}
	utils.WriteSuccessResponse(w, "", a.View(true))
}

// SaveMemberWeek POST /api/team/member/{userId}/activity
func (h *TeamHandler) SaveMemberWeek(w http.ResponseWriter, r *http.Request) {
	target, err := h.member(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	var req models.WeekActivityRequest
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	a, err := h.activity.SaveWeek(r.Context(), target.ID, &req)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, "Team member activity updated successfully", a.View(true))
}

// ListOrganizations GET /api/team/organizations（公开）
func (h *TeamHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.directory.ListOrganizations(r.Context())
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, "", orgs)
}
