package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/schemals/config"
	"github.com/BaSui01/schemals/internal/metrics"
	"github.com/BaSui01/schemals/internal/pool"
	"github.com/BaSui01/schemals/internal/server"
	"github.com/BaSui01/schemals/internal/telemetry"
	"github.com/BaSui01/schemals/internal/tlsutil"
	"github.com/BaSui01/schemals/lsp"
	"github.com/BaSui01/schemals/lsp/features"
)

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	transport := fs.String("transport", "", "Transport: stdio, tcp or websocket")
	addr := fs.String("addr", "", "Listen address for tcp/websocket")
	fs.Parse(args)

	overrides := func(cfg *config.Config) error {
		if *transport != "" {
			cfg.Server.Transport = *transport
		}
		if *addr != "" {
			cfg.Server.Addr = *addr
		}
		return nil
	}

	loader := config.NewLoader().
		WithValidator(overrides).
		WithValidator((*config.Config).Validate)
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, level := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting schemals",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("transport", cfg.Server.Transport),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(cfg.Metrics.Namespace, registry, logger)

	workers := pool.New(pool.Config{
		MaxWorkers:  cfg.Dispatcher.MaxWorkers,
		QueueSize:   cfg.Dispatcher.QueueSize,
		IdleTimeout: cfg.Dispatcher.IdleTimeout,
		PanicHandler: func(pe *pool.PanicError) {
			logger.Error("worker panic", zap.Any("panic", pe.Value), zap.ByteString("stack", pe.Stack))
		},
	})
	defer workers.Close()

	srv := lsp.NewServer(lsp.ServerOptions{
		Info:           protocol.ServerInfo{Name: "schemals", Version: Version},
		Routines:       features.Default(),
		Legend:         features.Legend(),
		Executor:       workers,
		Recorder:       collector,
		Tracer:         providers.Tracer(),
		RequestTimeout: cfg.Dispatcher.RequestTimeout,
		Logger:         logger,
	})

	tlsCfg, err := tlsutil.ServerConfig(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
	if err != nil {
		return fmt.Errorf("tls: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()

	if *configPath != "" {
		reloader := config.NewReloader(loader, *configPath, cfg.Server.ConfigPollInterval, func(next *config.Config) {
			level.SetLevel(parseLevel(next.Log.Level))
		}, logger)
		g.Go(func() error { return reloader.Run(runCtx) })
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		metricsCfg := server.DefaultConfig()
		metricsCfg.Addr = cfg.Metrics.Addr
		metricsCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
		metricsServer := server.NewManager(mux, metricsCfg, logger)
		g.Go(func() error { return metricsServer.Run(runCtx) })
	}

	readLimit := server.WithReadLimit(cfg.Server.ReadBytesPerSecond, cfg.Server.ReadBurst)
	switch cfg.Server.Transport {
	case config.TransportStdio:
		g.Go(func() error {
			// stdio 只有一个会话，会话结束即进程结束
			defer cancelRun()
			return srv.ServeConn(runCtx, stdio{})
		})

	case config.TransportTCP:
		listener, err := server.Listen(cfg.Server.Addr, tlsCfg)
		if err != nil {
			return err
		}
		g.Go(func() error { return server.ServeTCP(runCtx, listener, srv.ServeConn, logger, readLimit) })

	case config.TransportWebSocket:
		mux := http.NewServeMux()
		mux.Handle(cfg.Server.WebSocketPath, server.WebSocketHandler(runCtx, srv.ServeConn, logger, readLimit))
		wsCfg := server.DefaultConfig()
		wsCfg.Addr = cfg.Server.Addr
		wsCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
		wsCfg.TLS = tlsCfg
		wsServer := server.NewManager(mux, wsCfg, logger)
		g.Go(func() error { return wsServer.Run(runCtx) })
	}

	err = g.Wait()
	logger.Info("schemals stopped", zap.Any("pool", workers.Stats()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// stdio 把进程的标准输入输出当作一条连接
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func (stdio) Close() error {
	return errors.Join(os.Stdin.Close(), os.Stdout.Close())
}

var _ io.ReadWriteCloser = stdio{}
