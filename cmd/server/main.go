package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entityinstall/audio-gateway/internal/config"
	"github.com/entityinstall/audio-gateway/internal/launcher"
	"github.com/entityinstall/audio-gateway/internal/lease"
	"github.com/entityinstall/audio-gateway/internal/observability"
	"github.com/entityinstall/audio-gateway/internal/registry"
	"github.com/entityinstall/audio-gateway/internal/resilience"
	"github.com/entityinstall/audio-gateway/internal/session"
	"github.com/entityinstall/audio-gateway/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before the logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("addr", cfg.ListenAddr()).
		Str("bucket", cfg.BucketName).
		Str("cluster", cfg.ECSClusterName).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Audio gateway starting")

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load AWS configuration")
	}

	retryCfg := &resilience.RetryConfig{
		MaxAttempts:    cfg.RetryMaxAttempts,
		InitialBackoff: cfg.RetryBackoff(),
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
	}
	store := storage.NewS3Store(s3.NewFromConfig(awsCfg), cfg.BucketName, retryCfg)
	reg := registry.NewDynamoRegistry(dynamodb.NewFromConfig(awsCfg), cfg.RegistryTable)
	launch := launcher.NewECSLauncher(ecs.NewFromConfig(awsCfg), launcher.TaskConfig{
		Cluster:        cfg.ECSClusterName,
		TaskDefinition: cfg.ECSTaskDefinition,
		ContainerName:  cfg.ECSContainerName,
		LaunchType:     cfg.ECSLaunchType,
		SubnetID:       cfg.ECSSubnetID,
	})
	leases := lease.NewManager(launch, cfg.TerminationDelay(), cfg.LeaseReuseOnReconnect, logger)

	sessionCfg := session.Config{
		SilenceThreshold:  cfg.SilenceThreshold,
		SilenceDuration:   cfg.SilenceWindow(),
		InactivityTimeout: cfg.InactivityWindow(),
		SupervisionTick:   cfg.ReceiveTick(),
		SampleRate:        cfg.SampleRate,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/stream", session.Handler(sessionCfg, store, reg, leases))
	mux.HandleFunc("/healthz", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"storage":  store.Ping,
		"registry": reg.Ping,
		"launcher": launch.Ping,
	}))
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:        cfg.ListenAddr(),
		Handler:     mux,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("endpoint", fmt.Sprintf("ws://%s/stream", cfg.ListenAddr())).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Released workers would otherwise linger for the full grace delay.
	leases.Shutdown()

	logger.Info().Msg("Server exited gracefully")
}
