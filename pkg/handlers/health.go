package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/config"
	"sales-tracker-backend/pkg/database"
	"sales-tracker-backend/pkg/utils"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	logger logrus.FieldLogger
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(cfg *config.Config, db database.DatabaseInterface, logger logrus.FieldLogger) *HealthHandler {
	return &HealthHandler{config: cfg, db: db, logger: logger}
}

// HealthCheck GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 测试数据库连接
	dbStatus := "healthy"
	if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.WithError(err).Warn("database health check failed")
		dbStatus = "unhealthy"
	}

	utils.WriteSuccessResponse(w, "Server is running", map[string]interface{}{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": h.config.Environment,
		"database":    h.config.DBDriver,
		"dbStatus":    dbStatus,
	})
}

// PoolStats GET /debug/db-pool（仅开发环境）
func (h *HealthHandler) PoolStats(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, "", database.GetConnectionStats())
}
