// 包 config：集中读取环境变量配置，服务与命令行工具共用
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config：进程级配置；零值字段由 Load 补齐默认值
type Config struct {
	Addr      string
	APIBase   string
	ZonesPath string
	Reload    time.Duration
	FillAlpha uint8
	MaxUpload int64
	ProgressN int
	Redis     RedisConfig
	CacheTTL  time.Duration
	RateLimit bool
	RateQPS   int
	TLS       TLSConfig
}

// TLSConfig：可选 HTTPS；证书缺失时生成自签名证书
type TLSConfig struct {
	Enabled  bool
	CertPath string
	KeyPath  string
}

// RedisConfig：查询缓存所用 Redis 连接参数
type RedisConfig struct {
	Enabled bool
	Host    string
	Port    string
	Pass    string
	DB      int
}

// Addr：host:port
func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

// 文档注释：从环境变量装载配置
// 背景：调用方先用 godotenv 载入 .env，再调用 Load；解析失败的数值项回退到默认值而不报错。
// 约束：KML_FILL_ALPHA 截断到 0..255；MAX_UPLOAD_MB 以 MiB 为单位换算为字节。
func Load() *Config {
	alpha := getIntEnv("KML_FILL_ALPHA", 85)
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 255 {
		alpha = 255
	}
	return &Config{
		Addr:      getEnv("ADDR", ":8080"),
		APIBase:   strings.TrimRight(getEnv("API_BASE", "/api"), "/"),
		ZonesPath: getEnv("ZONES_PATH", ""),
		Reload:    time.Duration(getIntEnv("ZONES_RELOAD_S", 0)) * time.Second,
		FillAlpha: uint8(alpha),
		MaxUpload: int64(getIntEnv("MAX_UPLOAD_MB", 32)) << 20,
		ProgressN: getIntEnv("BATCH_PROGRESS_EVERY", 100),
		Redis: RedisConfig{
			Enabled: getBoolEnv("REDIS_ENABLED", false),
			Host:    getEnv("REDIS_HOST", "127.0.0.1"),
			Port:    getEnv("REDIS_PORT", "6379"),
			Pass:    os.Getenv("REDIS_PASS"),
			DB:      getIntEnv("REDIS_DB", 0),
		},
		CacheTTL:  time.Duration(getIntEnv("LOOKUP_CACHE_TTL_S", 3600)) * time.Second,
		RateLimit: getBoolEnv("RATE_LIMIT_ENABLED", false),
		RateQPS:   getIntEnv("RATE_LIMIT_QPS", 200),
		TLS: TLSConfig{
			Enabled:  getBoolEnv("TLS_ENABLE", false),
			CertPath: getEnv("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt")),
			KeyPath:  getEnv("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key")),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}
