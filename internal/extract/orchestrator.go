package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/document"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/llm"
)

// Completion parameters per tier.
const (
	fullMaxTokens    = 3000
	reducedMaxTokens = 1500

	defaultSectionWorkers = 4
)

var (
	fullStop    = []string{"```", "\n\n---", "END"}
	reducedStop = []string{"```", "\n\n"}
)

// strategy is one extraction tier: a name for logging plus the attempt
// itself. Tiers run in declaration order and each degrades the ask: full
// context first, reduced context next, then pure heuristics with no model
// call at all.
type strategy struct {
	name string
	run  func(ctx context.Context, text string, section constants.SectionType, md entity.DocumentMetadata) (*entity.FinancialStatement, error)
}

// Orchestrator drives the tiered extraction of statement sections. Sections
// of one document run concurrently, bounded by a worker pool that may be
// shared with other documents in flight.
type Orchestrator struct {
	completer  llm.Completer
	parser     *Parser
	pool       *semaphore.Weighted
	logger     *slog.Logger
	strategies []strategy
}

// NewOrchestrator builds an Orchestrator. A nil pool gets a private pool of
// defaultSectionWorkers; a nil parser gets a default Parser.
func NewOrchestrator(completer llm.Completer, pool *semaphore.Weighted, parser *Parser, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if pool == nil {
		pool = semaphore.NewWeighted(defaultSectionWorkers)
	}
	if parser == nil {
		parser = NewParser(logger, false)
	}
	o := &Orchestrator{
		completer: completer,
		parser:    parser,
		pool:      pool,
		logger:    logger,
	}
	o.strategies = []strategy{
		{name: "full_extraction", run: o.extractFull},
		{name: "reduced_context", run: o.extractReduced},
		{name: "basic_structure", run: o.extractBasic},
	}
	return o
}

// ExtractSection runs the tiers in order until one yields a statement. The
// returned error carries the last tier's failure and means every tier was
// exhausted.
func (o *Orchestrator) ExtractSection(ctx context.Context, text string, section constants.SectionType, md entity.DocumentMetadata) (*entity.FinancialStatement, error) {
	var lastErr error
	for i, s := range o.strategies {
		o.logger.Info("extract.attempt",
			"section", section,
			"strategy", s.name,
			"attempt", fmt.Sprintf("%d/%d", i+1, len(o.strategies)),
		)
		stmt, err := s.run(ctx, text, section, md)
		if err == nil {
			o.logger.Info("extract.section.ok",
				"section", section,
				"strategy", s.name,
				"line_items", len(stmt.LineItems),
			)
			return stmt, nil
		}
		lastErr = err
		o.logger.Warn("extract.attempt.failed",
			"section", section, "strategy", s.name, "err", err)
	}
	return nil, common.NewAppError("EXTRACTION_EXHAUSTED",
		fmt.Sprintf("all %d strategies failed for %s", len(o.strategies), section), lastErr)
}

func (o *Orchestrator) extractFull(ctx context.Context, text string, section constants.SectionType, md entity.DocumentMetadata) (*entity.FinancialStatement, error) {
	prompt := BuildExtractionPrompt(text, section, md)
	raw, err := o.completer.Complete(ctx, llm.Request{
		Prompt:    prompt,
		MaxTokens: fullMaxTokens,
		Stop:      fullStop,
	})
	if err != nil {
		return nil, common.WrapError(err, "full-context completion")
	}
	return o.parser.ParseStatement(raw, section, md)
}

func (o *Orchestrator) extractReduced(ctx context.Context, text string, section constants.SectionType, md entity.DocumentMetadata) (*entity.FinancialStatement, error) {
	reduced := ReduceText(text)
	if reduced == "" {
		return nil, common.NewAppError("NO_CANDIDATE_LINES",
			fmt.Sprintf("no statement-like lines found for %s", section), common.ErrParse)
	}
	raw, err := o.completer.Complete(ctx, llm.Request{
		Prompt:      BuildReducedPrompt(reduced, section, md),
		MaxTokens:   reducedMaxTokens,
		Temperature: 0.1,
		Stop:        reducedStop,
	})
	if err != nil {
		return nil, common.WrapError(err, "reduced-context completion")
	}
	return o.parser.ParseStatement(raw, section, md)
}

func (o *Orchestrator) extractBasic(_ context.Context, text string, section constants.SectionType, md entity.DocumentMetadata) (*entity.FinancialStatement, error) {
	return BuildBasicStatement(text, section, md)
}

// sectionOutcome is one section's result after its tier run finished.
type sectionOutcome struct {
	stmt     *entity.FinancialStatement
	err      error
	panicked bool
}

// ExtractDocument extracts every detected section of the analyzed document.
// Detected sections run concurrently through the worker pool; results and
// errors are assembled in the fixed section order regardless of completion
// order. A document with no detected sections gets one whole-text attempt
// treated as a profit and loss statement. The result status is completed
// when every section produced a statement, partial when some did, and
// failed when none did.
func (o *Orchestrator) ExtractDocument(ctx context.Context, analysis *document.Analysis) *entity.ExtractionResult {
	start := time.Now()
	md := analysis.Metadata

	var ordered []constants.SectionType
	for _, st := range constants.SectionOrder {
		if analysis.Sections[st] != nil {
			ordered = append(ordered, st)
		}
	}

	var outcomes []sectionOutcome
	if len(ordered) == 0 {
		o.logger.Warn("extract.no_sections", "file", analysis.Filename)
		ordered = []constants.SectionType{constants.SectionProfitLoss}
		outcomes = []sectionOutcome{o.runSection(ctx, analysis.FullText, constants.SectionProfitLoss, md)}
	} else {
		outcomes = make([]sectionOutcome, len(ordered))
		var wg sync.WaitGroup
		for i, st := range ordered {
			text := analysis.FullText
			if m := analysis.Sections[st]; m != nil && m.Text != "" {
				text = m.Text
			}
			wg.Add(1)
			go func(i int, st constants.SectionType, text string) {
				defer wg.Done()
				if err := o.pool.Acquire(ctx, 1); err != nil {
					outcomes[i] = sectionOutcome{err: err}
					return
				}
				defer o.pool.Release(1)
				outcomes[i] = o.runSection(ctx, text, st, md)
			}(i, st, text)
		}
		wg.Wait()
	}

	result := &entity.ExtractionResult{
		Filename:        analysis.Filename,
		UploadTimestamp: time.Now().UTC(),
		Statements:      []entity.FinancialStatement{},
		Errors:          []string{},
	}
	for i, oc := range outcomes {
		section := ordered[i]
		switch {
		case oc.stmt != nil:
			result.Statements = append(result.Statements, *oc.stmt)
		case oc.panicked:
			result.Errors = append(result.Errors, fmt.Sprintf("Error in %s: %v", section, oc.err))
		default:
			var appErr *common.AppError
			if errors.As(oc.err, &appErr) && appErr.Code == "EXTRACTION_EXHAUSTED" {
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to extract %s", section))
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("Error in %s: %v", section, oc.err))
			}
		}
	}

	switch {
	case len(result.Statements) > 0 && len(result.Errors) > 0:
		result.Status = constants.ExtractionPartial
	case len(result.Statements) > 0:
		result.Status = constants.ExtractionCompleted
	default:
		result.Status = constants.ExtractionFailed
	}
	result.ProcessingTime = time.Since(start).Seconds()

	o.logger.Info("extract.document.done",
		"file", analysis.Filename,
		"status", result.Status,
		"statements", len(result.Statements),
		"errors", len(result.Errors),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result
}

// runSection shields the caller from panics inside a tier; a panicking
// section must not take down sibling sections or the process.
func (o *Orchestrator) runSection(ctx context.Context, text string, section constants.SectionType, md entity.DocumentMetadata) (out sectionOutcome) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("extract.section.panic", "section", section, "panic", r)
			out = sectionOutcome{err: fmt.Errorf("%v", r), panicked: true}
		}
	}()
	stmt, err := o.ExtractSection(ctx, text, section, md)
	return sectionOutcome{stmt: stmt, err: err}
}
