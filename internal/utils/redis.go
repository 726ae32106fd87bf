// 包 utils：Redis 连接工具，按配置打开查询缓存所用客户端
package utils

import (
	"context"
	"time"

	"zone-match/internal/config"
	"zone-match/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedis：使用地址与密码打开 Redis 客户端
// 背景：保留直接传入参数的能力，用于测试与手工注入场景
func OpenRedis(addr, pass string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass})
}

// 文档注释：按配置打开 Redis 客户端
// 背景：查询缓存是可选的；未启用或 Ping 失败时返回 nil，调用方据此直接走内存查询。
// 约束：Ping 超时 2 秒，失败时关闭客户端避免泄漏连接。
func OpenRedisFromConfig(ctx context.Context, c config.RedisConfig) *redis.Client {
	l := logger.L()
	if !c.Enabled {
		l.Info("redis_disabled")
		return nil
	}
	rc := redis.NewClient(&redis.Options{Addr: c.Addr(), Password: c.Pass, DB: c.DB})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		l.Error("redis_ping_error", "addr", c.Addr(), "err", err)
		_ = rc.Close()
		return nil
	}
	l.Info("redis_ping_ok", "addr", c.Addr(), "db", c.DB)
	return rc
}
