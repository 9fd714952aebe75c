package main

import (
	"context"
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kratos/kratos/v2/log"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"numerologist/cmd/context-service/internal/conf"
	"numerologist/pkg/config"
	"numerologist/pkg/logger"
	"numerologist/pkg/observability"
)

var configFile = flag.String("config", config.GetEnv("CONFIG_PATH", "./configs/context-service.yaml"), "配置文件路径")

func main() {
	flag.Parse()

	// 加载配置
	cfg, manager, err := conf.Load(*configFile)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}
	defer manager.Close()

	// 初始化日志
	zl, err := logger.NewZap(logger.Config{
		ServiceName:    conf.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
		Level:          cfg.Observability.LogLevel,
		Format:         cfg.Observability.LogFormat,
	})
	if err != nil {
		stdlog.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync()

	kl := logger.NewKratosLogger(zl)

	zl.Info("Starting Context Service",
		zap.String("config_mode", string(manager.GetMode())),
		zap.Int("http_port", cfg.Server.HTTPPort),
		zap.Int("max_tokens", cfg.Context.MaxTokens),
		zap.Duration("cache_ttl", cfg.Context.CacheTTL),
	)

	// 初始化追踪
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    conf.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
		Endpoint:       cfg.Observability.OTELEndpoint,
		SamplingRate:   cfg.Observability.SamplingRate,
		Enabled:        cfg.Observability.EnableTrace,
	})
	if err != nil {
		zl.Fatal("Failed to init tracing", zap.Error(err))
	}

	// 配置变更只记录，参数在重启后生效
	if err := manager.Watch(func(err error) {
		if err != nil {
			zl.Warn("Config reload failed", zap.Error(err))
			return
		}
		zl.Info("Config changed in Nacos, restart to apply")
	}); err != nil {
		zl.Warn("Failed to watch config", zap.Error(err))
	}

	// 初始化应用（通过 Wire 生成）
	app, cleanup, err := initApp(cfg, log.With(kl, "service", conf.ServiceName))
	if err != nil {
		zl.Fatal("Failed to initialize app", zap.Error(err))
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.HTTPServer.Start()
	}()

	if app.Consumer != nil {
		go func() {
			if err := app.Consumer.Start(ctx); err != nil {
				zl.Error("Kafka consumer stopped", zap.Error(err))
			}
		}()
	}

	select {
	case <-ctx.Done():
		zl.Info("Shutting down Context Service")
	case err := <-errCh:
		if err != nil {
			zl.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.HTTPServer.Stop(shutdownCtx); err != nil {
		zl.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zl.Warn("Failed to flush traces", zap.Error(err))
	}

	zl.Info("Context Service exited")
}
