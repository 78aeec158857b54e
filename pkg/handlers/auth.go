package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/config"
	"sales-tracker-backend/pkg/models"
	"sales-tracker-backend/pkg/services"
	"sales-tracker-backend/pkg/utils"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	config *config.Config
	auth   *services.AuthService
	logger logrus.FieldLogger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, auth *services.AuthService, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{config: cfg, auth: auth, logger: logger}
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.UserRegisterRequest
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	res, err := h.auth.Register(r.Context(), &req)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.WriteCreatedResponse(w, "User registered successfully", res)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if err := decodeBody(r, &req); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	res, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, "Login successful", res)
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := identity(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	profile, err := h.auth.Me(r.Context(), user.ID)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, "", profile)
}
