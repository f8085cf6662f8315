// Package server exposes the extraction pipeline over HTTP: uploads,
// processing triggers, live status, results, document listing, and XLSX
// export.
package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/export"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/pipeline"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/store"
)

// Server holds the HTTP layer's collaborators plus the upload registry
// mapping document ids to their stored file paths.
type Server struct {
	coordinator *pipeline.Coordinator
	store       store.DocumentStore
	exporter    *export.XLSXExporter
	cfg         *common.Config
	logger      *slog.Logger

	mu      sync.Mutex
	uploads map[string]string // document id -> stored file path
}

// NewServer builds the HTTP layer.
func NewServer(coordinator *pipeline.Coordinator, st store.DocumentStore, exporter *export.XLSXExporter, cfg *common.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		coordinator: coordinator,
		store:       st,
		exporter:    exporter,
		cfg:         cfg,
		logger:      logger,
		uploads:     map[string]string{},
	}
}

// Router assembles the gin engine with CORS and all API routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.POST("/upload", s.handleUpload)
		api.POST("/process/:id", s.handleProcess)
		api.GET("/status", s.handleStatusAll)
		api.GET("/status/:id", s.handleStatus)
		api.GET("/results/:id", s.handleResults)
		api.GET("/documents", s.handleListDocuments)
		api.GET("/documents/:id", s.handleGetDocument)
		api.DELETE("/documents/:id", s.handleDeleteDocument)
		api.GET("/export/:id", s.handleExport)
		api.GET("/stats", s.handleStats)
		api.GET("/health", s.handleHealth)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http.request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) registerUpload(id, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[id] = path
}

func (s *Server) uploadPath(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.uploads[id]
	return p, ok
}

func (s *Server) dropUpload(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploads, id)
}
