package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/echovox/udp-voice-gateway/internal/config"
	"github.com/echovox/udp-voice-gateway/internal/gateway"
	"github.com/echovox/udp-voice-gateway/internal/observability"
	"github.com/echovox/udp-voice-gateway/internal/orchestrator"
	"github.com/echovox/udp-voice-gateway/internal/stt"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Int("udp_port", cfg.UDPPort).
		Str("http_port", cfg.HTTPPort).
		Str("orchestrator_url", cfg.OrchestratorURL).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("UDP Voice Gateway starting")

	// Downstream collaborators
	transcriber := stt.NewDeepgramClient(cfg)

	orchClient, err := orchestrator.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create orchestrator client")
	}
	defer orchClient.Close()

	// The UDP gateway: socket, workers, debounce watchers, sweep
	gw := gateway.NewServer(cfg, transcriber, orchClient)
	if err := gw.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start UDP gateway")
	}

	// Admin HTTP server: health, readiness, metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	deepgramCheck := func(ctx context.Context) (bool, error) {
		// Config-level check only; a real transcription call would spend API credits
		if cfg.DeepgramAPIKey == "" {
			return false, fmt.Errorf("deepgram api key is not configured")
		}
		return true, nil
	}
	orchestratorCheck := func(ctx context.Context) (bool, error) {
		return orchClient.HealthCheck(ctx)
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(deepgramCheck, orchestratorCheck))

	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Msg("Admin server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Admin server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down...")

	// Stop intake first; in-flight sessions are abandoned, not drained
	gw.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Admin server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
