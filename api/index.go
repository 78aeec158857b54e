package handler

import (
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/config"
	"sales-tracker-backend/pkg/database"
	"sales-tracker-backend/pkg/server"
	"sales-tracker-backend/pkg/utils"
)

var (
	router     http.Handler
	routerErr  error
	routerOnce sync.Once
)

// Handler 是Vercel函数的入口点
// 路由器在冷启动时构建一次，热调用复用
func Handler(w http.ResponseWriter, r *http.Request) {
	// 加载配置
	cfg := config.GetCached()

	// 验证配置
	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	routerOnce.Do(func() {
		router, routerErr = buildRouter(cfg)
	})
	if routerErr != nil {
		utils.WriteInternalServerErrorResponse(w, "Server initialization failed")
		return
	}

	router.ServeHTTP(w, r)
}

func buildRouter(cfg *config.Config) (http.Handler, error) {
	logger := utils.NewLogger(cfg)

	// 数据库实例在进程内缓存，热调用复用
	db, err := database.GetDatabase(cfg.DatabaseConfig(), logger)
	if err != nil {
		logger.WithError(err).Error("failed to connect to database")
		return nil, err
	}

	h, err := server.NewRouter(cfg, db, logger)
	if err != nil {
		logger.WithError(err).Error("failed to build router")
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"driver":      cfg.DBDriver,
	}).Info("router initialized")
	return h, nil
}
