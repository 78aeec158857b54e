package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type logSlotKey struct{}

// logSlot lets handlers deeper in the chain report back to the request logger
type logSlot struct {
	userID string
}

// RequestLogger 每个请求记录一条结构化日志
func RequestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// 创建响应写入器包装器来捕获状态码
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			slot := &logSlot{}
			r = r.WithContext(context.WithValue(r.Context(), logSlotKey{}, slot))

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     status,
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"remote_ip":  r.RemoteAddr,
				"user_agent": r.UserAgent(),
			}
			if slot.userID != "" {
				fields["user_id"] = slot.userID
			}

			entry := logger.WithFields(fields)
			switch {
			case status >= 500:
				entry.Error("request completed")
			case status >= 400:
				entry.Warn("request completed")
			default:
				entry.Info("request completed")
			}
		})
	}
}

// noteUser records the authenticated user for the request log line
func noteUser(ctx context.Context, userID string) {
	if slot, ok := ctx.Value(logSlotKey{}).(*logSlot); ok {
		slot.userID = userID
	}
}
