package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/database"
	"sales-tracker-backend/pkg/models"
	"sales-tracker-backend/pkg/policy"
	"sales-tracker-backend/pkg/utils"
)

// ContextKey 用于在context中存储用户信息的键
type ContextKey string

const (
	UserContextKey ContextKey = "user"
)

// UserLookup is the slice of the store the middleware needs
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// AuthMiddleware JWT认证中间件
//
// Every request re-authenticates: the bearer token is verified, its subject
// is reloaded from the store, and the identity projection is attached to the
// request context.
func AuthMiddleware(jwtService *utils.JWTService, users UserLookup, logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				utils.WriteAppError(w, utils.NewAppError(utils.CodeNoToken, "Access token is required"))
				return
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				if errors.Is(err, utils.ErrTokenExpired) {
					utils.WriteAppError(w, utils.NewAppError(utils.CodeTokenExpired, "Token has expired"))
					return
				}
				utils.RequestLogger(logger, r).WithError(err).Debug("token rejected")
				utils.WriteAppError(w, utils.NewAppError(utils.CodeInvalidToken, "Invalid token"))
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, database.ErrNotFound) {
					utils.WriteAppError(w, utils.NewAppError(utils.CodeUserNotFound, "User no longer exists"))
					return
				}
				utils.RequestLogger(logger, r).WithError(err).Error("failed to load authenticated user")
				utils.WriteAppError(w, utils.NewAppError(utils.CodeAuthError, "Authentication failed"))
				return
			}

			noteUser(r.Context(), user.ID)
			ctx := context.WithValue(r.Context(), UserContextKey, user.Profile())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken 从Authorization头获取token
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	// 认证方案不区分大小写（RFC 7235）
	const prefix = "bearer "
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", false
	}
	tokenString := strings.TrimSpace(authHeader[len(prefix):])
	return tokenString, tokenString != ""
}

// RequireRole 仅允许指定角色访问
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUserFromContext(r.Context())
			if !ok {
				utils.WriteUnauthorizedResponse(w, "Authentication required")
				return
			}
			if !policy.HasRole(user, roles...) {
				utils.WriteForbiddenResponse(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext 从context中获取用户信息
func GetUserFromContext(ctx context.Context) (*models.UserProfile, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.UserProfile)
	return user, ok && user != nil
}

// RequireUser 要求用户必须已认证的辅助函数
func RequireUser(ctx context.Context) (*models.UserProfile, error) {
	user, ok := GetUserFromContext(ctx)
	if !ok {
		return nil, utils.NewAppError(utils.CodeUnauthorized, "Authentication required")
	}
	return user, nil
}

// WithUser attaches an identity to ctx
func WithUser(ctx context.Context, user *models.UserProfile) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}
