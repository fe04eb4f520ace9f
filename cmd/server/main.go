package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/livemeet/livemeet/cmd/server/internal/api"
	"github.com/livemeet/livemeet/cmd/server/internal/auth"
	"github.com/livemeet/livemeet/cmd/server/internal/broadcast"
	"github.com/livemeet/livemeet/cmd/server/internal/config"
	"github.com/livemeet/livemeet/cmd/server/internal/extract"
	"github.com/livemeet/livemeet/cmd/server/internal/middleware"
	"github.com/livemeet/livemeet/cmd/server/internal/pipeline"
	"github.com/livemeet/livemeet/cmd/server/internal/room"
	"github.com/livemeet/livemeet/cmd/server/internal/store"
	"github.com/livemeet/livemeet/cmd/server/internal/transcribe"
	"github.com/livemeet/livemeet/pkg/logger"
)

func main() {
	logInstance, err := logger.Init(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: os.Getenv("ENV"),
		WithSource:  !strings.EqualFold(os.Getenv("ENV"), "production"),
		File:        os.Getenv("LOG_FILE"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	appLogger := logInstance.With("component", "meeting-server")

	cfg, err := config.LoadConfig()
	if err != nil {
		appLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		appLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	appLogger.Info("configuration loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Persistence collaborator.
	archiver, err := store.NewFileArchiver(cfg.Data.RoomsDir, logInstance.With("component", "store"))
	if err != nil {
		appLogger.Error("archiver init failed", "error", err)
		os.Exit(1)
	}
	defer archiver.Close()
	appLogger.Info("room archiver ready", "dir", cfg.Data.RoomsDir)

	// Fan-out hub, lifecycle manager, registry.
	hub := broadcast.NewHub(logInstance.With("component", "hub"))
	manager := room.NewManager(hub, archiver, logInstance.With("component", "rooms"))
	registry := room.NewRegistry(manager)

	// Transcription capability, degraded mock when no service is configured.
	var transcriber transcribe.Transcriber
	if cfg.Pipeline.TranscriberURL != "" {
		transcriber = transcribe.NewHTTPTranscriber(cfg.Pipeline.TranscriberURL)
	} else {
		appLogger.Warn("TRANSCRIBER_URL not set, using degraded mock transcriber")
		transcriber = transcribe.NewMockTranscriber(logInstance.With("component", "transcriber"))
	}
	appLogger.Info("transcriber ready", "name", transcriber.Name())

	// Action item extraction, heuristic fallback when no analyzer is configured.
	var analyzer extract.Analyzer
	if cfg.Extract.AnalyzerURL != "" {
		analyzer = extract.NewHTTPAnalyzer(cfg.Extract.AnalyzerURL)
	} else {
		analyzer = extract.NewHeuristicAnalyzer()
	}
	gateway := extract.NewGateway(analyzer, manager, logInstance.With("component", "extract"), cfg.Extract.ExtractTimeout)
	appLogger.Info("extractor gateway ready", "analyzer", analyzer.Name())

	// Transcript filter policy.
	policy, err := config.LoadFilterPolicy(cfg.Data.FilterPolicyPath)
	if err != nil {
		appLogger.Warn("filter policy load failed, using defaults", "error", err)
	}
	appLogger.Info("filter policy loaded", "min_chars", policy.MinChars, "denylist_entries", len(policy.Denylist))

	pl := pipeline.New(registry, manager, transcriber, pipeline.NewFilter(policy), gateway,
		logInstance.With("component", "pipeline"), cfg.Pipeline.MaxChunksPerRoom, cfg.Pipeline.TranscribeTimeout)

	// Per-room state released when the lifecycle manager closes a room.
	manager.OnClose(gateway.ReleaseRoom)
	manager.OnClose(pl.ReleaseRoom)

	// Authorization collaborator.
	var authorizer auth.Authorizer
	if cfg.Security.AllowAnonymous {
		appLogger.Warn("anonymous access enabled, join tokens are not checked")
		authorizer = auth.AllowAll{}
	} else {
		authorizer = auth.NewTokenAuthorizer(cfg.Security.JWTSecret)
	}

	srvAPI := api.NewServer(registry, manager, hub, pl, authorizer, cfg.Security.CORSAllowedOrigins,
		logInstance.With("component", "api"))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Security.CORSAllowedOrigins))

	srvAPI.RegisterRoutes(r)
	r.GET("/healthz", api.HandleHealth(transcriber))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: r,
	}

	go func() {
		appLogger.Info("server starting", "addr", serverAddr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
	}

	// Close every live room so archives are flushed before exit.
	manager.CloseAll("server shutdown")
	appLogger.Info("server shutdown complete")
}
