// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"zone-match/internal/api"
	"zone-match/internal/config"
	"zone-match/internal/loader"
	"zone-match/internal/logger"
	"zone-match/internal/metrics"
	"zone-match/internal/utils"
	"zone-match/internal/zone"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	cfg := config.Load()
	l.Debug("config_api_base", "base", cfg.APIBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc := utils.OpenRedisFromConfig(ctx, cfg.Redis)
	if rc != nil {
		defer rc.Close()
	}

	// 背景：启动时可选预装载；失败只记录日志，服务仍可通过 POST /zones 装载
	var holder zone.Holder
	if cfg.ZonesPath != "" {
		if ds, err := loader.File(cfg.ZonesPath); err != nil {
			l.Error("zones_preload_error", "path", cfg.ZonesPath, "err", err)
		} else {
			holder.Set(ds)
			metrics.DatasetZones.Set(float64(ds.Len()))
		}
	} else {
		l.Info("zones_preload_skipped", "reason", "ZONES_PATH empty")
	}
	loader.Watch(ctx, cfg.ZonesPath, cfg.Reload, &holder)

	base := cfg.APIBase
	if base == "" {
		base = "/"
	}
	root := chi.NewRouter()
	root.Mount(base, api.New(&holder, rc, cfg).Routes())
	s := &http.Server{Addr: cfg.Addr, Handler: root, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		var err error
		if cfg.TLS.Enabled {
			if err := utils.EnsureSelfSignedCert(cfg.TLS.CertPath, cfg.TLS.KeyPath, "zone-match.local"); err != nil {
				l.Error("tls_cert_error", "err", err)
				os.Exit(1)
			}
			l.Info("listening_tls", "addr", cfg.Addr, "base", cfg.APIBase, "cert", cfg.TLS.CertPath)
			err = s.ListenAndServeTLS(cfg.TLS.CertPath, cfg.TLS.KeyPath)
		} else {
			l.Info("listening", "addr", cfg.Addr, "base", cfg.APIBase)
			err = s.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("listen_error", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	l.Info("shutdown_signal")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(sctx); err != nil {
		l.Error("shutdown_error", "err", err)
	}
	l.Info("stopped")
}
