package config

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
)

// Reloader 轮询配置文件的修改时间，变化后重新加载并回调。
// 加载或校验失败时保留旧配置，只记录日志。
type Reloader struct {
	loader   *Loader
	path     string
	interval time.Duration
	onReload func(*Config)
	logger   *zap.Logger

	lastMod time.Time
}

// NewReloader 创建重载器。loader 应已配置好路径与验证器。
func NewReloader(loader *Loader, path string, interval time.Duration, onReload func(*Config), logger *zap.Logger) *Reloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reloader{
		loader:   loader,
		path:     path,
		interval: interval,
		onReload: onReload,
		logger:   logger.With(zap.String("component", "config_reloader")),
	}
	if info, err := os.Stat(path); err == nil {
		r.lastMod = info.ModTime()
	}
	return r
}

// Run 阻塞直到 ctx 结束。interval 非正时立即返回。
func (r *Reloader) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("watching config file",
		zap.String("path", r.path),
		zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Check()
		}
	}
}

// Check 检查一次文件，有变化则重载。返回是否触发了回调。
func (r *Reloader) Check() bool {
	info, err := os.Stat(r.path)
	if err != nil {
		return false
	}
	if !info.ModTime().After(r.lastMod) {
		return false
	}
	r.lastMod = info.ModTime()

	cfg, err := r.loader.Load()
	if err != nil {
		r.logger.Warn("config reload failed, keeping previous config",
			zap.String("path", r.path),
			zap.Error(err))
		return false
	}

	r.logger.Info("config reloaded", zap.String("path", r.path))
	if r.onReload != nil {
		r.onReload(cfg)
	}
	return true
}
