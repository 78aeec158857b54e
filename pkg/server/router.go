// Package server 组装路由与全局中间件
package server

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/config"
	"sales-tracker-backend/pkg/database"
	"sales-tracker-backend/pkg/handlers"
	"sales-tracker-backend/pkg/metrics"
	customMiddleware "sales-tracker-backend/pkg/middleware"
	"sales-tracker-backend/pkg/models"
	"sales-tracker-backend/pkg/policy"
	"sales-tracker-backend/pkg/services"
	"sales-tracker-backend/pkg/utils"
)

// NewRouter builds the full HTTP surface on top of db. cfg must already
// be validated.
func NewRouter(cfg *config.Config, db database.DatabaseInterface, logger logrus.FieldLogger) (http.Handler, error) {
	ttl, err := cfg.TokenTTL()
	if err != nil {
		return nil, err
	}
	proxies, err := cfg.TrustedProxyNets()
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	setupMiddleware(router, cfg, proxies, logger)
	setupRoutes(router, cfg, db, utils.NewJWTService(cfg.JWTSecret, ttl), logger)
	return router, nil
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config, proxies []*net.IPNet, logger logrus.FieldLogger) {
	// 基础中间件；转发头只在来自受信代理时生效
	router.Use(middleware.RequestID)
	router.Use(customMiddleware.RealIP(proxies))
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.RequestLogger(logger))
	router.Use(customMiddleware.Recovery(cfg, logger))
	router.Use(customMiddleware.SecurityHeaders)

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg))

	if cfg.MetricsEnabled {
		router.Use(metrics.InstrumentHandler)
	}

	// 超时中间件（Vercel函数有时间限制）
	router.Use(middleware.Timeout(25 * time.Second))
	router.Use(middleware.Compress(5))
	router.Use(customMiddleware.MaxBodySize(customMiddleware.MaxRequestBody))

	// 开发环境额外中间件
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface, jwtService *utils.JWTService, logger logrus.FieldLogger) {
	access := policy.Policy{
		OrglessPeerAccess: cfg.OrglessPeerAccess,
		UnscopedListing:   cfg.UnscopedUserListing,
	}

	// 服务层
	authService := services.NewAuthService(db, jwtService, utils.NewPasswordHasher(cfg.BcryptCost), logger)
	goalsService := services.NewGoalsService(db, logger)
	activityService := services.NewActivityService(db, logger)
	directory := services.NewDirectoryService(db, access)

	// 处理器
	healthHandler := handlers.NewHealthHandler(cfg, db, logger)
	authHandler := handlers.NewAuthHandler(cfg, authService, logger)
	goalsHandler := handlers.NewGoalsHandler(goalsService, logger)
	activityHandler := handlers.NewActivityHandler(activityService, logger)
	usersHandler := handlers.NewUsersHandler(directory, activityService, logger)
	teamHandler := handlers.NewTeamHandler(directory, goalsService, activityService, logger)

	generalLimiter := customMiddleware.NewRateLimiter("general", cfg.RateLimitWindow, cfg.RateLimitMax,
		utils.CodeRateLimitExceeded, "Too many requests, please try again later.", logger)
	authLimiter := customMiddleware.NewRateLimiter("auth", cfg.AuthRateLimitWindow, cfg.AuthRateLimitMax,
		utils.CodeAuthRateLimit, "Too many authentication attempts, please try again later.", logger)

	authenticate := customMiddleware.AuthMiddleware(jwtService, db, logger)
	managersOnly := customMiddleware.RequireRole(models.RoleManager, models.RoleAdmin)

	// 健康检查端点
	router.Get("/health", healthHandler.HealthCheck)

	if cfg.MetricsEnabled {
		router.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	// 数据库连接池状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", healthHandler.PoolStats)
	}

	// API路由组
	router.Route("/api", func(r chi.Router) {
		r.Use(generalLimiter.Handler)
		r.Use(customMiddleware.ContentTypeJSON)

		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter.Handler).Post("/register", authHandler.Register)
			r.With(authLimiter.Handler).Post("/login", authHandler.Login)
			r.With(authenticate).Get("/me", authHandler.Me)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/", goalsHandler.GetGoals)
			r.Put("/", goalsHandler.UpdateGoals)
		})

		r.Route("/activity", func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/week/{weekStartDate}", activityHandler.GetWeek)
			r.Post("/week", activityHandler.SaveWeek)
			r.Get("/all", activityHandler.ListAll)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authenticate, managersOnly)
			r.Get("/", usersHandler.ListUsers)
			r.Get("/{userId}/activity/week/{weekStartDate}", usersHandler.GetUserWeek)
			r.Get("/{userId}/activity/all", usersHandler.ListUserActivity)
		})

		r.Route("/team", func(r chi.Router) {
			// 组织列表公开，供注册页使用
			r.Get("/organizations", teamHandler.ListOrganizations)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, managersOnly)
				r.Get("/members", teamHandler.ListMembers)
				r.Get("/member/{userId}/goals", teamHandler.MemberGoals)
				r.Get("/member/{userId}/activity/{weekStartDate}", teamHandler.MemberWeek)
				r.Post("/member/{userId}/activity", teamHandler.SaveMemberWeek)
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteAppError(w, utils.NewAppError(utils.CodeMethodNotAllowed,
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path)))
	})
}
