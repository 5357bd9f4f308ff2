package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/melih/lighthouse-pipeline/internal/adapters/builder"
	"github.com/melih/lighthouse-pipeline/internal/adapters/docker"
	"github.com/melih/lighthouse-pipeline/internal/adapters/http"
	"github.com/melih/lighthouse-pipeline/internal/adapters/memory"
	"github.com/melih/lighthouse-pipeline/internal/config"
	"github.com/melih/lighthouse-pipeline/internal/core/services"
	"github.com/melih/lighthouse-pipeline/internal/logger"
	"github.com/melih/lighthouse-pipeline/internal/metrics"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting lighthouse",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	// 1. Initialize Adapters (Infrastructure)
	dockerAdapter, err := docker.NewAdapter(cfg.StopTimeout)
	if err != nil {
		log.Fatal("Failed to initialize Docker adapter", zap.Error(err))
	}
	defer dockerAdapter.Close()
	if err := dockerAdapter.Ping(context.Background()); err != nil {
		log.Warn("Docker daemon is not reachable yet", zap.Error(err))
	}

	builderAdapter := builder.NewBuilderAdapter(dockerAdapter, builder.Options{
		BaseImage:           cfg.BaseImage,
		DefaultStartCommand: cfg.DefaultStartCommand,
		PinRevision:         cfg.PinRevision,
	})
	registry := memory.NewRegistry()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipelineMetrics := metrics.NewPipeline(reg)

	// 2. Core services
	deployer := services.NewDeployer(registry, builderAdapter, dockerAdapter, log, pipelineMetrics, services.DeployerOptions{
		BuildTimeout: cfg.BuildTimeout,
		RunTimeout:   cfg.RunTimeout,
	})
	streamer := services.NewLogStreamer(registry, dockerAdapter, log, pipelineMetrics)

	// 3. HTTP surface (Fiber)
	identity := http.RemoteAddr()
	if cfg.IdentityHeader != "" {
		identity = http.ForwardedHeader(cfg.IdentityHeader)
	}
	app := http.NewRouter(http.Dependencies{
		Deployments:         deployer,
		Logs:                streamer,
		Identity:            identity,
		Logger:              log,
		Metrics:             promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		PollInterval:        cfg.PollInterval,
		HeartbeatInterval:   cfg.HeartbeatInterval,
		DefaultStartCommand: cfg.DefaultStartCommand,
	})

	// 4. Start Server
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	// Deployments have no cancellation path; give running ones the same grace period.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := deployer.Wait(ctx); err != nil {
		log.Warn("deployments still running at exit", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
