package document

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
)

// maxPageWorkers caps the per-document page classification fan-out.
const maxPageWorkers = 4

// Processor runs structural analysis for one document: it pulls page records
// from the structure collaborator, classifies pages concurrently, then derives
// sections, notes, metadata, and the combined text.
type Processor struct {
	source PageSource
	logger *slog.Logger
}

// NewProcessor builds a Processor around a page source.
func NewProcessor(source PageSource, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{source: source, logger: logger}
}

// Analyze produces the structural Analysis for the file at path.
func (p *Processor) Analyze(ctx context.Context, path string) (*Analysis, error) {
	start := time.Now()

	pages, err := p.source.ExtractPages(ctx, path)
	if err != nil {
		p.logger.Error("document.analyze.source_failed", "path", path, "err", err)
		return nil, common.NewAppError("STRUCTURE_ANALYSIS", "page extraction failed", common.ErrCollaborator)
	}

	structured := make([]StructuredText, len(pages))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(min(maxPageWorkers, max(1, len(pages))))
	for i := range pages {
		g.Go(func() error {
			structured[i] = ClassifyPage(pages[i])
			return nil
		})
	}
	// Classification never returns an error; the group only bounds fan-out.
	_ = g.Wait()

	sections, notes := FindSections(pages)
	metadata := DetectMetadata(pages)
	fullText := CombineText(pages, structured)

	analysis := &Analysis{
		Filename:       filepath.Base(path),
		PageCount:      len(pages),
		Pages:          pages,
		Structured:     structured,
		Sections:       sections,
		Notes:          notes,
		FullText:       fullText,
		Metadata:       metadata,
		ProcessingTime: time.Since(start).Seconds(),
	}

	p.logger.Info("document.analyze.ok",
		"file", analysis.Filename,
		"pages", analysis.PageCount,
		"sections", len(sections),
		"notes", len(notes),
		"currency", metadata.Currency,
		"rounding", metadata.Rounding,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return analysis, nil
}
