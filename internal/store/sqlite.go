package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	filename      TEXT NOT NULL,
	status        TEXT NOT NULL,
	progress      INTEGER NOT NULL DEFAULT 0,
	message       TEXT NOT NULL DEFAULT '',
	quality_score REAL NOT NULL DEFAULT 0,
	warnings      TEXT NOT NULL DEFAULT '[]',
	result        TEXT,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_filename ON documents(filename);
`

// SQLiteStore is the embedded single-file backend.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (and migrates) the database file at path, creating parent
// directories as needed.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, common.NewAppError("STORE_OPEN", "create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, common.NewAppError("STORE_OPEN", "open sqlite database", err)
	}
	// The sqlite driver serializes writers; a single connection avoids
	// SQLITE_BUSY churn under concurrent pipeline updates.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, common.NewAppError("STORE_MIGRATE", "apply sqlite schema", err)
	}

	logger.Info("store.open", "backend", "sqlite", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *StoredDocument) error {
	warnings, resultJSON, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, status, progress, message, quality_score, warnings, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			status = excluded.status,
			progress = excluded.progress,
			message = excluded.message,
			quality_score = excluded.quality_score,
			warnings = excluded.warnings,
			result = excluded.result,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Filename, string(doc.Status), doc.Progress, doc.Message,
		doc.QualityScore, warnings, resultJSON, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return common.NewAppError("STORE_SAVE", "save document", err)
	}
	return nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*StoredDocument, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, status, progress, message, quality_score, warnings, result, created_at, updated_at
		FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("DOCUMENT_NOT_FOUND",
			fmt.Sprintf("document %s not found", id), common.ErrNotFound)
	}
	return doc, err
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, limit, offset int) ([]StoredDocument, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, status, progress, message, quality_score, warnings, result, created_at, updated_at
		FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, common.NewAppError("STORE_LIST", "list documents", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

func (s *SQLiteStore) SearchDocuments(ctx context.Context, filter SearchFilter) ([]StoredDocument, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.Query != "" {
		where = append(where, "(filename LIKE ? OR result LIKE ?)")
		args = append(args, "%"+filter.Query+"%", "%"+filter.Query+"%")
	}
	for _, f := range []struct{ field, val string }{
		{"currency", filter.Currency},
		{"rounding", filter.Rounding},
		{"statement_type", filter.StatementType},
	} {
		field, val := f.field, f.val
		if val == "" {
			continue
		}
		where = append(where, fmt.Sprintf(`result IS NOT NULL AND EXISTS (
			SELECT 1 FROM json_each(documents.result, '$.statements') AS stmt
			WHERE json_extract(stmt.value, '$.%s') = ?)`, field))
		args = append(args, val)
	}
	if filter.MinQuality > 0 {
		where = append(where, "quality_score >= ?")
		args = append(args, filter.MinQuality)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, status, progress, message, quality_score, warnings, result, created_at, updated_at
		FROM documents
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC LIMIT 100`,
		args...)
	if err != nil {
		return nil, common.NewAppError("STORE_SEARCH", "search documents", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status constants.ProcessingState, progress int, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, progress = ?, message = ?, updated_at = ?
		WHERE id = ?`,
		string(status), progress, message, time.Now().UTC(), id)
	if err != nil {
		return common.NewAppError("STORE_UPDATE", "update document status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NewAppError("DOCUMENT_NOT_FOUND",
			fmt.Sprintf("document %s not found", id), common.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return common.NewAppError("STORE_DELETE", "delete document", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NewAppError("DOCUMENT_NOT_FOUND",
			fmt.Sprintf("document %s not found", id), common.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	row := s.db.QueryRowContext(ctx, `
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

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*StoredDocument, error) {
	var (
		doc        StoredDocument
		status     string
		warnings   string
		resultJSON sql.NullString
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
	if resultJSON.Valid && resultJSON.String != "" {
		var result entity.ExtractionResult
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, common.NewAppError("STORE_DECODE", "decode stored result", err)
		}
		doc.Result = &result
	}
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]StoredDocument, error) {
	docs := []StoredDocument{}
	for rows.Next() {
		doc, err := scanDocument(rows)
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

func encodeDocument(doc *StoredDocument) (warnings string, resultJSON sql.NullString, err error) {
	if doc.Warnings == nil {
		doc.Warnings = []string{}
	}
	wb, err := json.Marshal(doc.Warnings)
	if err != nil {
		return "", sql.NullString{}, common.NewAppError("STORE_ENCODE", "encode warnings", err)
	}
	if doc.Result != nil {
		rb, err := json.Marshal(doc.Result)
		if err != nil {
			return "", sql.NullString{}, common.NewAppError("STORE_ENCODE", "encode result", err)
		}
		resultJSON = sql.NullString{String: string(rb), Valid: true}
	}
	return string(wb), resultJSON, nil
}
