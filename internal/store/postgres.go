package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	filename      TEXT NOT NULL,
	status        TEXT NOT NULL,
	progress      INTEGER NOT NULL DEFAULT 0,
	message       TEXT NOT NULL DEFAULT '',
	quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	warnings      JSONB NOT NULL DEFAULT '[]',
	result        JSONB,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_filename ON documents(filename);
`

// PostgresStore is the shared-deployment backend on a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres connects a pool with the configured limits, verifies the
// connection, and applies the schema.
func OpenPostgres(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*PostgresStore, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, common.NewAppError("STORE_OPEN", "parse postgres DSN", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.DialTimeout > 0 {
		pc.ConnConfig.ConnectTimeout = cfg.DialTimeout
	}
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] =
			fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, common.NewAppError("STORE_OPEN", "connect postgres pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, common.NewAppError("STORE_OPEN", "ping postgres", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, common.NewAppError("STORE_MIGRATE", "apply postgres schema", err)
	}

	logger.Info("store.open", "backend", "postgres", "max_conns", pc.MaxConns)
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) SaveDocument(ctx context.Context, doc *StoredDocument) error {
	warnings, resultJSON, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	var result any
	if resultJSON.Valid {
		result = resultJSON.String
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (id, filename, status, progress, message, quality_score, warnings, result, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			message = EXCLUDED.message,
			quality_score = EXCLUDED.quality_score,
			warnings = EXCLUDED.warnings,
			result = EXCLUDED.result,
			updated_at = EXCLUDED.updated_at`,
		doc.ID, doc.Filename, string(doc.Status), doc.Progress, doc.Message,
		doc.QualityScore, warnings, result, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return common.NewAppError("STORE_SAVE", "save document", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*StoredDocument, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, filename, status, progress, message, quality_score, warnings::text, result::text, created_at, updated_at
		FROM documents WHERE id = $1`, id)
	doc, err := scanPgDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewAppError("DOCUMENT_NOT_FOUND",
			fmt.Sprintf("document %s not found", id), common.ErrNotFound)
	}
	return doc, err
}

func (s *PostgresStore) ListDocuments(ctx context.Context, limit, offset int) ([]StoredDocument, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, filename, status, progress, message, quality_score, warnings::text, result::text, created_at, updated_at
		FROM documents ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, common.NewAppError("STORE_LIST", "list documents", err)
	}
	defer rows.Close()
	return collectPgDocuments(rows)
}

func (s *PostgresStore) SearchDocuments(ctx context.Context, filter SearchFilter) ([]StoredDocument, error) {
	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Query != "" {
		p := arg("%" + filter.Query + "%")
		where = append(where, fmt.Sprintf("(filename ILIKE %s OR result::text ILIKE %s)", p, p))
	}
	for _, f := range []struct{ field, val string }{
		{"currency", filter.Currency},
		{"rounding", filter.Rounding},
		{"statement_type", filter.StatementType},
	} {
		if f.val == "" {
			continue
		}
		needle, err := json.Marshal([]map[string]string{{f.field: f.val}})
		if err != nil {
			return nil, common.NewAppError("STORE_SEARCH", "encode search filter", err)
		}
		where = append(where, fmt.Sprintf("result->'statements' @> %s::jsonb", arg(string(needle))))
	}
	if filter.MinQuality > 0 {
		where = append(where, fmt.Sprintf("quality_score >= %s", arg(filter.MinQuality)))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, filename, status, progress, message, quality_score, warnings::text, result::text, created_at, updated_at
		FROM documents
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC LIMIT 100`,
		args...)
	if err != nil {
		return nil, common.NewAppError("STORE_SEARCH", "search documents", err)
	}
	defer rows.Close()
	return collectPgDocuments(rows)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status constants.ProcessingState, progress int, message string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET status = $1, progress = $2, message = $3, updated_at = $4
		WHERE id = $5`,
		string(status), progress, message, time.Now().UTC(), id)
	if err != nil {
		return common.NewAppError("STORE_UPDATE", "update document status", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError("DOCUMENT_NOT_FOUND",
			fmt.Sprintf("document %s not found", id), common.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return common.NewAppError("STORE_DELETE", "delete document", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError("DOCUMENT_NOT_FOUND",
			fmt.Sprintf("document %s not found", id), common.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(CASE WHEN status = 'completed' THEN quality_score END), 0)
		FROM documents`)
	var st Stats
	if err := row.Scan(&st.TotalDocuments, &st.Completed, &st.Failed, &st.Processing, &st.AverageQuality); err != nil {
		return nil, common.NewAppError("STORE_STATS", "aggregate document stats", err)
	}
	return &st, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPgDocument(row pgx.Row) (*StoredDocument, error) {
	var (
		doc        StoredDocument
		status     string
		warnings   string
		resultJSON *string
	)
	err := row.Scan(&doc.ID, &doc.Filename, &status, &doc.Progress, &doc.Message,
		&doc.QualityScore, &warnings, &resultJSON, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.Status = constants.ProcessingState(status)
	if err := json.Unmarshal([]byte(warnings), &doc.Warnings); err != nil {
		doc.Warnings = []string{}
	}
	if resultJSON != nil && *resultJSON != "" {
		var result entity.ExtractionResult
		if err := json.Unmarshal([]byte(*resultJSON), &result); err != nil {
			return nil, common.NewAppError("STORE_DECODE", "decode stored result", err)
		}
		doc.Result = &result
	}
	return &doc, nil
}

func collectPgDocuments(rows pgx.Rows) ([]StoredDocument, error) {
	docs := []StoredDocument{}
	for rows.Next() {
		doc, err := scanPgDocument(rows)
		if err != nil {
			return nil, common.NewAppError("STORE_SCAN", "scan document row", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("STORE_SCAN", "iterate document rows", err)
	}
	return docs, nil
}
