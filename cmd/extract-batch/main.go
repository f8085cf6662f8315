package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/sync/semaphore"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/document"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/extract"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/llm"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/llm/llamacpp"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/pipeline"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/quality"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/store"
)

// printError prints an error message to stderr, falling back to stdout.
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir  = flag.String("dir", "", "directory of PDF documents to process (required)")
		out  = flag.String("out", "", "output directory for result artifacts (defaults to OUTPUT_DIR)")
		noDB = flag.Bool("no-db", false, "skip persistence, write artifacts only")
		mock = flag.Bool("mock", false, "use canned completions instead of the inference server")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *mock {
		cfg.LLM.MockMode = true
	}
	if *out != "" {
		cfg.Paths.OutputDir = *out
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	entries, err := os.ReadDir(*dir)
	if err != nil {
		logger.Error("failed to read input directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), constants.AllowedExtension) {
			paths = append(paths, filepath.Join(*dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		printError("No %s files found in %s\n", constants.AllowedExtension, *dir)
		os.Exit(1)
	}

	ctx := context.Background()

	var st store.DocumentStore
	if !*noDB {
		st, err = store.Open(ctx, cfg.Store, logger)
		if err != nil {
			logger.Error("failed to open document store", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := st.Close(); err != nil {
				logger.Warn("store close error", "error", err)
			}
		}()
	}

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

	logger.Info("starting batch", "dir", *dir, "files", len(paths))
	items := coordinator.ProcessBatch(ctx, paths)

	processed := 0
	failures := 0
	statements := 0
	for _, item := range items {
		if item.OK {
			processed++
			if item.Result != nil {
				statements += len(item.Result.Statements)
			}
		} else {
			failures++
		}
	}

	logger.Info("batch complete",
		"files", len(items),
		"processed", processed,
		"failures", failures,
		"statements", statements,
		"output_dir", cfg.Paths.OutputDir)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files: %d\n", len(items))
	fmt.Printf("- Processed: %d\n", processed)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Statements extracted: %d\n", statements)
	fmt.Printf("- Output: %s\n", cfg.Paths.OutputDir)

	if failures > 0 {
		os.Exit(1)
	}
}
