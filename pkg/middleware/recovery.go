package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/config"
	"sales-tracker-backend/pkg/utils"
)

// Recovery 恢复中间件，处理panic并返回统一的错误响应
func Recovery(cfg *config.Config, logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					// 客户端断开，交给 net/http 处理
					panic(rec)
				}

				entry := utils.RequestLogger(logger, r).WithField("panic", fmt.Sprint(rec))
				if cfg.IsDevelopment() {
					entry = entry.WithField("stack", string(debug.Stack()))
				}
				entry.Error("recovered from panic")

				utils.WriteInternalServerErrorResponse(w, "Internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
