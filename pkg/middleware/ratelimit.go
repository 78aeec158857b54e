package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"sales-tracker-backend/pkg/metrics"
	"sales-tracker-backend/pkg/utils"
)

// RateLimiter 按客户端IP限流
//
// Each client gets a token bucket holding max requests that regains one
// request per window, so no more than max+1 requests pass in any window.
type RateLimiter struct {
	name      string
	limiters  map[string]*clientLimiter
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	idleAfter time.Duration
	lastSweep time.Time
	now       func() time.Time
	appErr    *utils.AppError
	logger    logrus.FieldLogger
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter that answers rejected requests with code
func NewRateLimiter(name string, window time.Duration, max int, code, message string, logger logrus.FieldLogger) *RateLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		name:      name,
		limiters:  make(map[string]*clientLimiter),
		rate:      rate.Every(window),
		burst:     max,
		idleAfter: window * time.Duration(max), // 桶回满所需时间，驱逐不会多给配额
		now:       time.Now,
		appErr:    utils.NewAppError(code, message),
		logger:    logger,
	}
}

// getLimiter returns the bucket for key and evicts idle buckets
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idleAfter {
		for k, cl := range rl.limiters {
			if now.Sub(cl.lastSeen) >= rl.idleAfter {
				delete(rl.limiters, k)
			}
		}
		rl.lastSweep = now
	}

	cl, exists := rl.limiters[key]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// Size 当前跟踪的客户端数量
func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Handler returns the rate limiting middleware handler
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		limiter := rl.getLimiter(key)

		if !limiter.AllowN(rl.now(), 1) {
			utils.RequestLogger(rl.logger, r).WithField("limiter", rl.name).Warn("rate limit exceeded")
			metrics.RecordRateLimited(rl.name)

			retry := time.Duration(float64(time.Second) / float64(rl.rate))
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			utils.WriteAppError(w, rl.appErr)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey 使用 RemoteAddr 去掉端口；只有受信代理的转发头会被 RealIP 写入
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
