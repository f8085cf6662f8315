package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/semaphore"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/document"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/export"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/extract"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/llm"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/llm/llamacpp"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/pipeline"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/quality"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/server"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if !cfg.Processing.DebugExtraction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open document store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close error", "error", err)
		}
	}()
	if err := st.Ping(ctx); err != nil {
		logger.Error("document store health check failed", "error", err)
		os.Exit(1)
	}
	logger.Info("document store OK", "dsn", cfg.Store.DSN)

	var completer llm.Completer
	if cfg.LLM.MockMode {
		logger.Warn("mock mode enabled, completions are canned")
		completer = llm.NewMockCompleter(logger)
	} else {
		completer = llamacpp.NewClient(llamacpp.Config{
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
	}

	parser := extract.NewParser(logger, cfg.Processing.LogResponses)
	pool := semaphore.NewWeighted(int64(cfg.Processing.MaxWorkers))
	orchestrator := extract.NewOrchestrator(completer, pool, parser, logger)
	processor := document.NewProcessor(document.SidecarSource{}, logger)
	validator := quality.NewValidator(logger)
	tracker := pipeline.NewTracker(st, logger)
	coordinator := pipeline.NewCoordinator(
		processor, orchestrator, validator, tracker,
		st, cfg.Paths.OutputDir, cfg.Processing.MaxWorkers, logger,
	)

	exporter := export.NewXLSXExporter(logger)
	api := server.NewServer(coordinator, st, exporter, cfg, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP serving", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	logger.Info("stopped")
}
