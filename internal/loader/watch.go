package loader

import (
	"context"
	"os"
	"time"

	"zone-match/internal/logger"
	"zone-match/internal/metrics"
	"zone-match/internal/zone"
)

// 文档注释：区域文件热重载
// 背景：运营方直接覆盖 ZONES_PATH 指向的文件；后台协程按固定间隔检查修改时间，变化时重新装载并原子替换数据集。
// 约束：装载失败只记录日志并保留当前数据集；ctx 取消后协程退出；interval<=0 时不启动。
func Watch(ctx context.Context, path string, interval time.Duration, h *zone.Holder) {
	if path == "" || interval <= 0 {
		return
	}
	l := logger.L()
	var last time.Time
	if fi, err := os.Stat(path); err == nil {
		last = fi.ModTime()
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			fi, err := os.Stat(path)
			if err != nil {
				l.Warn("zones_watch_stat_error", "path", path, "err", err)
				continue
			}
			if !fi.ModTime().After(last) {
				continue
			}
			last = fi.ModTime()
			ds, err := File(path)
			if err != nil {
				l.Error("zones_reload_error", "path", path, "err", err)
				continue
			}
			h.Set(ds)
			metrics.DatasetZones.Set(float64(ds.Len()))
			l.Info("zones_reloaded", "path", path, "zones", ds.Len(), "version", ds.Version())
		}
	}()
}
