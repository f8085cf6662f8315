package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/document"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/export"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/quality"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/store"
)

// Progress checkpoints reported while a document moves through the pipeline.
const (
	ProgressQueued    = 0
	ProgressAnalyzed  = 30
	ProgressExtracted = 70
	ProgressValidated = 80
	ProgressPersisted = 90
	ProgressDone      = 100
)

// Analyzer produces the structural analysis for a stored file.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (*document.Analysis, error)
}

// Extractor turns an analysis into an extraction result.
type Extractor interface {
	ExtractDocument(ctx context.Context, analysis *document.Analysis) *entity.ExtractionResult
}

// Coordinator runs documents through the full pipeline. Multiple documents
// may be in flight; section-level fan-out inside the orchestrator shares one
// bounded worker pool across all of them.
type Coordinator struct {
	processor    Analyzer
	orchestrator Extractor
	validator    *quality.Validator
	tracker      *Tracker
	store        store.DocumentStore
	outputDir    string
	maxWorkers   int
	logger       *slog.Logger

	validateFile func(path string) error
}

// NewCoordinator wires the pipeline stages together. The store may be nil.
func NewCoordinator(
	processor Analyzer,
	orchestrator Extractor,
	validator *quality.Validator,
	tracker *Tracker,
	st store.DocumentStore,
	outputDir string,
	maxWorkers int,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if tracker == nil {
		tracker = NewTracker(st, logger)
	}
	return &Coordinator{
		processor:    processor,
		orchestrator: orchestrator,
		validator:    validator,
		tracker:      tracker,
		store:        st,
		outputDir:    outputDir,
		maxWorkers:   maxWorkers,
		logger:       logger,
		validateFile: document.ValidateFile,
	}
}

// Tracker exposes the coordinator's status tracker.
func (c *Coordinator) Tracker() *Tracker { return c.tracker }

// ProcessDocument runs one document through analysis, extraction, quality
// assessment, persistence, and export. It reports success and the extraction
// result; on failure the result may still carry partial detail. The document
// always lands in a terminal state: any panic inside the pipeline is caught
// and recorded as a failure.
func (c *Coordinator) ProcessDocument(ctx context.Context, path, docID string) (ok bool, result *entity.ExtractionResult) {
	start := time.Now()
	filename := filepath.Base(path)

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("pipeline.panic",
				"doc_id", docID, "file", filename, "panic", r,
				"stack", string(debug.Stack()),
			)
			c.fail(ctx, docID, filename, fmt.Sprintf("Processing failed: %v", r), nil)
			ok, result = false, nil
		}
	}()

	c.logger.Info("pipeline.start", "doc_id", docID, "file", filename)
	c.setProgress(ctx, docID, filename, ProgressQueued, "Starting processing...", nil)

	if err := c.validateFile(path); err != nil {
		c.fail(ctx, docID, filename, fmt.Sprintf("Processing failed: %v", err), nil)
		return false, nil
	}

	analysis, err := c.processor.Analyze(ctx, path)
	if err != nil {
		c.fail(ctx, docID, filename, fmt.Sprintf("Processing failed: %v", err), nil)
		return false, nil
	}
	c.setProgress(ctx, docID, filename, ProgressAnalyzed, "Extracting financial data...", nil)

	result = c.orchestrator.ExtractDocument(ctx, analysis)
	result.DocumentID = docID
	c.setProgress(ctx, docID, filename, ProgressExtracted, "Validating extracted data...", nil)

	// Cross-check warnings join the result's error list, so metadata drift
	// also costs quality score. They never change the extraction status.
	warnings := c.validator.Warnings(result, analysis.Metadata)
	result.Errors = append(result.Errors, warnings...)
	score := c.validator.Score(result)
	if !c.validator.ValidateDocument(result) {
		c.logger.Warn("pipeline.quality_rejected",
			"doc_id", docID, "score", score, "warnings", len(warnings))
	}

	// A completed document must carry at least one statement.
	if len(result.Statements) == 0 {
		result.Status = constants.ExtractionFailed
		if len(result.Errors) == 0 {
			result.Errors = append(result.Errors, "No financial statements extracted")
		}
		c.persist(ctx, docID, filename, constants.StateFailed, result, score, warnings)
		c.fail(ctx, docID, filename, "Processing failed: no financial statements extracted", result)
		return false, result
	}
	c.setProgress(ctx, docID, filename, ProgressValidated, "Saving results...", nil)

	c.persist(ctx, docID, filename, constants.StateCompleted, result, score, warnings)
	c.setProgress(ctx, docID, filename, ProgressPersisted, "Exporting results...", nil)

	if artifact, err := export.WriteResultJSON(c.outputDir, docID, result, score); err != nil {
		c.logger.Warn("pipeline.export_failed", "doc_id", docID, "err", err)
	} else {
		c.logger.Info("pipeline.artifact_written", "doc_id", docID, "path", artifact)
	}

	elapsed := time.Since(start).Seconds()
	c.tracker.Set(ctx, entity.ProcessingStatus{
		DocumentID: docID,
		Filename:   filename,
		Status:     constants.StateCompleted,
		Progress:   ProgressDone,
		Message:    fmt.Sprintf("Processing completed in %.2fs", elapsed),
		Result:     result,
	})

	c.logger.Info("pipeline.done",
		"doc_id", docID,
		"file", filename,
		"status", result.Status,
		"statements", len(result.Statements),
		"quality_score", score,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return true, result
}

// BatchItem is one document's outcome from a batch run.
type BatchItem struct {
	Path   string
	DocID  string
	OK     bool
	Result *entity.ExtractionResult
}

// ProcessBatch runs each path through the pipeline, at most maxWorkers
// documents concurrently. One document's failure never stops the others;
// outcomes come back in input order.
func (c *Coordinator) ProcessBatch(ctx context.Context, paths []string) []BatchItem {
	items := make([]BatchItem, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxWorkers)
	for i, path := range paths {
		g.Go(func() error {
			docID := uuid.New().String()
			ok, result := c.ProcessDocument(gctx, path, docID)
			items[i] = BatchItem{Path: path, DocID: docID, OK: ok, Result: result}
			return nil
		})
	}
	_ = g.Wait()
	return items
}

func (c *Coordinator) setProgress(ctx context.Context, docID, filename string, progress int, message string, result *entity.ExtractionResult) {
	c.tracker.Set(ctx, entity.ProcessingStatus{
		DocumentID: docID,
		Filename:   filename,
		Status:     constants.StateProcessing,
		Progress:   progress,
		Message:    message,
		Result:     result,
	})
}

// fail records a terminal failure. Progress resets to zero so a stuck
// progress bar never masquerades as partial success.
func (c *Coordinator) fail(ctx context.Context, docID, filename, message string, result *entity.ExtractionResult) {
	c.tracker.Set(ctx, entity.ProcessingStatus{
		DocumentID: docID,
		Filename:   filename,
		Status:     constants.StateFailed,
		Progress:   ProgressQueued,
		Message:    message,
		Result:     result,
	})
}

// persist writes the final document record best-effort.
func (c *Coordinator) persist(ctx context.Context, docID, filename string, state constants.ProcessingState, result *entity.ExtractionResult, score float64, warnings []string) {
	if c.store == nil {
		return
	}
	progress := ProgressDone
	if state == constants.StateFailed {
		progress = ProgressQueued
	}
	doc := &store.StoredDocument{
		ID:           docID,
		Filename:     filename,
		Status:       state,
		Progress:     progress,
		QualityScore: score,
		Warnings:     warnings,
		Result:       result,
	}
	if err := c.store.SaveDocument(ctx, doc); err != nil {
		c.logger.Warn("pipeline.persist_failed", "doc_id", docID, "err", err)
	}
}
