package middleware

import (
	"net/http"

	"zone-match/internal/logger"

	"golang.org/x/time/rate"
)

// 文档注释：令牌桶限流中间件（每秒）
// 背景：批量与上传接口开销较大，在流量峰值时对入口限速，避免单个客户端占满 CPU；按配置开关与速率。
// 约束：不做队列排队，超出即返回 429；桶容量等于每秒速率，允许一秒内的突发。
func RateLimit(enabled bool, qps int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled || qps <= 0 {
			return next
		}
		lim := rate.NewLimiter(rate.Limit(qps), qps)
		logger.L().Info("rate_limit_enabled", "qps", qps)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				logger.L().Debug("rate_limited", "path", r.URL.Path, "ip", r.RemoteAddr)
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
