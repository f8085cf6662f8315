// Package store persists document records and their extraction results.
// Two backends exist: an embedded SQLite file for single-node deployments
// and PostgreSQL for shared ones. The DSN scheme selects the backend.
package store

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
)

// StoredDocument is one persisted document record. Result is nil until the
// pipeline finishes the document.
type StoredDocument struct {
	ID           string                    `json:"id"`
	Filename     string                    `json:"filename"`
	Status       constants.ProcessingState `json:"status"`
	Progress     int                       `json:"progress"`
	Message      string                    `json:"message"`
	QualityScore float64                   `json:"quality_score"`
	Warnings     []string                  `json:"warnings"`
	Result       *entity.ExtractionResult  `json:"result,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// Stats summarizes the stored corpus.
type Stats struct {
	TotalDocuments int     `json:"total_documents"`
	Completed      int     `json:"completed"`
	Failed         int     `json:"failed"`
	Processing     int     `json:"processing"`
	AverageQuality float64 `json:"average_quality"`
}

// SearchFilter selects stored documents. Query is a free-text match over
// filename and result content; the remaining fields filter on extracted
// statement attributes and the quality score. Zero values mean "no
// constraint".
type SearchFilter struct {
	Query         string
	Currency      string
	Rounding      string
	StatementType string
	MinQuality    float64
}

// Empty reports whether the filter constrains nothing.
func (f SearchFilter) Empty() bool {
	return f.Query == "" && f.Currency == "" && f.Rounding == "" &&
		f.StatementType == "" && f.MinQuality == 0
}

// DocumentStore is the persistence boundary the pipeline and API depend on.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *StoredDocument) error
	GetDocument(ctx context.Context, id string) (*StoredDocument, error)
	ListDocuments(ctx context.Context, limit, offset int) ([]StoredDocument, error)
	SearchDocuments(ctx context.Context, filter SearchFilter) ([]StoredDocument, error)
	UpdateStatus(ctx context.Context, id string, status constants.ProcessingState, progress int, message string) error
	DeleteDocument(ctx context.Context, id string) error
	Stats(ctx context.Context) (*Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open selects a backend by DSN scheme: postgres:// (or postgresql://) opens
// a PostgreSQL pool, anything else is treated as a SQLite file path.
func Open(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (DocumentStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DSN == "" {
		return nil, common.NewAppError("EMPTY_DSN", "store DSN is required", common.ErrInvalidInput)
	}
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		return OpenPostgres(ctx, cfg, logger)
	}
	return OpenSQLite(ctx, cfg.DSN, logger)
}
