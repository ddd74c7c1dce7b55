package main

import (
	// Standard library
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// External dependencies
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Internal packages
	"github.com/scribeapp/scribe/cmd/server/internal/admission"
	"github.com/scribeapp/scribe/cmd/server/internal/api"
	"github.com/scribeapp/scribe/cmd/server/internal/asr"
	"github.com/scribeapp/scribe/cmd/server/internal/config"
	"github.com/scribeapp/scribe/cmd/server/internal/diarize"
	"github.com/scribeapp/scribe/cmd/server/internal/media"
	"github.com/scribeapp/scribe/cmd/server/internal/middleware"
	"github.com/scribeapp/scribe/cmd/server/internal/pipeline"
	"github.com/scribeapp/scribe/cmd/server/internal/settings"
	"github.com/scribeapp/scribe/cmd/server/internal/summarize"
	"github.com/scribeapp/scribe/pkg/logger"
)

func main() {
	// Load configuration first; the log level comes from it.
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logInstance, err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		WithSource:  !cfg.IsProduction(),
		FilePath:    cfg.Log.FilePath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	appLogger := logInstance.With("component", "web-server")

	appLogger.Info("configuration loaded",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"temp_dir", cfg.Data.TempDir,
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := os.MkdirAll(cfg.Data.TempDir, 0o755); err != nil {
		appLogger.Error("temp dir unavailable", "path", cfg.Data.TempDir, "error", err)
		os.Exit(1)
	}

	// Runtime-editable provider settings
	store, err := settings.NewStore(cfg.Data.SettingsPath)
	if err != nil {
		appLogger.Error("settings store init failed", "path", cfg.Data.SettingsPath, "error", err)
		os.Exit(1)
	}
	appLogger.Info("settings store ready", "path", cfg.Data.SettingsPath)

	// Admission control
	permits := admission.NewPermits(cfg.Pipeline.JobConcurrency, cfg.Pipeline.DiarizationConcurrency)
	limiter := admission.NewRateLimiter(cfg.Pipeline.RateLimitWindow(), cfg.Pipeline.RateLimitCap)
	appLogger.Info("admission control ready",
		"job_slots", cfg.Pipeline.JobConcurrency,
		"diarization_slots", cfg.Pipeline.DiarizationConcurrency,
		"rate_limit_cap", cfg.Pipeline.RateLimitCap,
	)

	// Media tools and provider clients
	normalizer := media.NewNormalizer(cfg.Media.FFmpegPath, cfg.Media.FFprobePath)
	transcriber := asr.NewClient(cfg.Pipeline.ProviderTimeout())
	diarizer := diarize.NewClient(cfg.Pipeline.ProviderTimeout())
	summarizer := summarize.NewClient(cfg.Pipeline.ProviderTimeout())

	orch := pipeline.NewOrchestrator(
		cfg.Pipeline,
		normalizer,
		transcriber,
		diarizer,
		permits,
		cfg.Data.TempDir,
		logInstance.With("component", "pipeline"),
	)
	appLogger.Info("pipeline ready",
		"chunk_length_sec", cfg.Pipeline.ChunkLengthSec,
		"overlap_sec", cfg.Pipeline.OverlapSec,
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())

	// Operational endpoints (no rate limiting)
	startTime := time.Now()
	r.GET("/health", api.HandleHealth(startTime))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Settings
	r.GET("/api/settings", api.HandleGetSettings(store))
	r.POST("/api/settings", api.HandleUpdateSettings(store))

	// Transcription and summarization sit behind the per-client rate limiter.
	rate := middleware.RateLimit(limiter)
	r.POST("/api/transcribe", rate, api.HandleTranscribe(orch, store, cfg.Data.TempDir))
	r.POST("/api/transcribe/stream", rate, api.HandleTranscribeStream(orch, store, cfg.Data.TempDir))
	r.POST("/api/summarize", rate, api.HandleSummarize(summarizer, store))

	srv := &http.Server{
		Addr:    cfg.GetServerAddr(),
		Handler: r,
	}

	go func() {
		appLogger.Info("server starting", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	appLogger.Info("shutdown signal received, shutting down server...")

	// In-flight jobs get a grace period before the listener is torn down.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	appLogger.Info("server shutdown complete")
}
