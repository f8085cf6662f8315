package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/document"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/store"
)

// processTimeout bounds one background pipeline run kicked off by the API.
const processTimeout = 30 * time.Minute

// handleUpload accepts a multipart PDF, stores it under the upload
// directory, registers a document record, and starts processing in the
// background.
func (s *Server) handleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing multipart field 'file'"})
		return
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), constants.AllowedExtension) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("only %s files are supported", constants.AllowedExtension)})
		return
	}

	docID := uuid.New().String()
	if err := os.MkdirAll(s.cfg.Paths.UploadDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not prepare upload directory"})
		return
	}
	dest := filepath.Join(s.cfg.Paths.UploadDir, docID+constants.AllowedExtension)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store uploaded file"})
		return
	}

	if err := document.ValidateFile(dest); err != nil {
		_ = os.Remove(dest)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.registerUpload(docID, dest)
	if s.store != nil {
		rec := &store.StoredDocument{
			ID:       docID,
			Filename: file.Filename,
			Status:   constants.StateUploaded,
		}
		if err := s.store.SaveDocument(c.Request.Context(), rec); err != nil {
			s.logger.Warn("upload.record_failed", "doc_id", docID, "err", err)
		}
	}

	s.startProcessing(docID, dest)

	c.JSON(http.StatusOK, gin.H{
		"document_id": docID,
		"filename":    file.Filename,
		"status":      constants.StateUploaded,
		"message":     "File uploaded successfully. Processing started.",
	})
}

// handleProcess re-runs the pipeline for a previously uploaded document.
func (s *Server) handleProcess(c *gin.Context) {
	docID := c.Param("id")
	path, ok := s.uploadPath(docID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown document id"})
		return
	}
	if st, tracked := s.coordinator.Tracker().Get(docID); tracked && st.Status == constants.StateProcessing {
		c.JSON(http.StatusConflict, gin.H{"error": "document is already processing"})
		return
	}

	s.startProcessing(docID, path)
	c.JSON(http.StatusOK, gin.H{
		"document_id": docID,
		"status":      constants.StateProcessing,
		"message":     "Processing started.",
	})
}

// startProcessing launches one detached pipeline run. The run gets its own
// context: the request finishing must not cancel processing.
func (s *Server) startProcessing(docID, path string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()
		s.coordinator.ProcessDocument(ctx, path, docID)
	}()
}

func (s *Server) handleStatusAll(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"statuses": s.coordinator.Tracker().Snapshot()})
}

func (s *Server) handleStatus(c *gin.Context) {
	docID := c.Param("id")
	if status, ok := s.coordinator.Tracker().Get(docID); ok {
		c.JSON(http.StatusOK, status)
		return
	}
	// Fall back to the store for documents from earlier runs.
	if s.store != nil {
		if doc, err := s.store.GetDocument(c.Request.Context(), docID); err == nil {
			c.JSON(http.StatusOK, gin.H{
				"document_id": doc.ID,
				"filename":    doc.Filename,
				"status":      doc.Status,
				"progress":    doc.Progress,
				"message":     doc.Message,
			})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown document id"})
}

func (s *Server) handleResults(c *gin.Context) {
	docID := c.Param("id")
	if status, ok := s.coordinator.Tracker().Get(docID); ok {
		if !status.Status.Terminal() {
			c.JSON(http.StatusAccepted, gin.H{
				"document_id": docID,
				"status":      status.Status,
				"progress":    status.Progress,
				"message":     status.Message,
			})
			return
		}
		if status.Result != nil {
			c.JSON(http.StatusOK, status.Result)
			return
		}
	}
	if s.store != nil {
		if doc, err := s.store.GetDocument(c.Request.Context(), docID); err == nil && doc.Result != nil {
			c.JSON(http.StatusOK, doc.Result)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "no results for document id"})
}

func (s *Server) handleListDocuments(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document store not configured"})
		return
	}
	filter := store.SearchFilter{
		Query:         c.Query("search"),
		Currency:      c.Query("currency"),
		Rounding:      c.Query("rounding"),
		StatementType: c.Query("statement_type"),
	}
	if mq := c.Query("min_quality"); mq != "" {
		v, err := strconv.ParseFloat(mq, 64)
		if err != nil || v < 0 || v > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_quality must be a number in [0, 1]"})
			return
		}
		filter.MinQuality = v
	}
	if !filter.Empty() {
		docs, err := s.store.SearchDocuments(c.Request.Context(), filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	docs, err := s.store.ListDocuments(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document store not configured"})
		return
	}
	doc, err := s.store.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown document id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	docID := c.Param("id")
	if s.store != nil {
		if err := s.store.DeleteDocument(c.Request.Context(), docID); err != nil && !errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
			return
		}
	}
	s.coordinator.Tracker().Delete(docID)
	if path, ok := s.uploadPath(docID); ok {
		_ = os.Remove(path)
		s.dropUpload(docID)
	}
	c.JSON(http.StatusOK, gin.H{"document_id": docID, "deleted": true})
}

func (s *Server) handleExport(c *gin.Context) {
	docID := c.Param("id")

	var doc *store.StoredDocument
	if s.store != nil {
		if d, err := s.store.GetDocument(c.Request.Context(), docID); err == nil {
			doc = d
		}
	}
	if doc == nil || doc.Result == nil {
		if status, ok := s.coordinator.Tracker().Get(docID); ok && status.Result != nil {
			doc = &store.StoredDocument{ID: docID, Filename: status.Filename, Result: status.Result}
		}
	}
	if doc == nil || doc.Result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no results to export"})
		return
	}

	b, err := s.exporter.ExportResultXLSX(doc.Result, doc.QualityScore, doc.Warnings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	name := strings.TrimSuffix(doc.Filename, filepath.Ext(doc.Filename))
	if name == "" {
		name = docID
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_extracted.xlsx"`, name))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", b)
}

func (s *Server) handleStats(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document store not configured"})
		return
	}
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleHealth(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"mock_mode": s.cfg.LLM.MockMode,
		"time":      time.Now().UTC().Format(time.RFC3339),
	}
	if s.store != nil {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			health["status"] = "degraded"
			health["store"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, health)
			return
		}
		health["store"] = "ok"
	}
	c.JSON(http.StatusOK, health)
}
