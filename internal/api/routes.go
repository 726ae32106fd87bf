// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"net/http"

	"zone-match/internal/config"
	"zone-match/internal/logger"
	"zone-match/internal/metrics"
	"zone-match/internal/middleware"
	"zone-match/internal/zone"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const lruCapacity = 4096

// Server：HTTP 层依赖；数据集经 Holder 原子切换，处理函数每次请求取当前快照
type Server struct {
	holder *zone.Holder
	cache  *resultCache
	cfg    *config.Config
}

// New：rc 为 nil 时只使用进程内缓存
func New(h *zone.Holder, rc *redis.Client, cfg *config.Config) *Server {
	return &Server{
		holder: h,
		cache:  &resultCache{lru: NewLRU(lruCapacity, cfg.CacheTTL), rc: rc, ttl: cfg.CacheTTL},
		cfg:    cfg,
	}
}

// 文档注释：构建 API 路由
// 背景：主入口将返回的路由挂载到 API_BASE 前缀下；访问日志与限流作为路由级中间件，只作用于 API。
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(logger.AccessMiddleware(logger.L()))
	r.Use(middleware.RateLimit(s.cfg.RateLimit, s.cfg.RateQPS))

	r.Route("/zones", func(r chi.Router) {
		r.Post("/", s.handleLoadZones)
		r.Get("/", s.handleZonesSummary)
		r.Get("/{id}", s.handleZone)
	})
	r.Get("/lookup", s.handleLookup)
	r.Post("/batch", s.handleBatch)
	r.Route("/export", func(r chi.Router) {
		r.Get("/zones.kml", s.handleExportZonesKML)
		r.Get("/zones.xlsx", s.handleExportZonesXLSX)
		r.Post("/points.kml", s.handleExportPointsKML)
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}
