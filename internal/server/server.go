package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/metrics"
	"pdf-rag/internal/models"
	"pdf-rag/internal/parser"
)

// RAGService is the subset of rag.Service the handlers need.
type RAGService interface {
	IngestFile(ctx context.Context, path string) (*models.IngestionReport, error)
	Answer(ctx context.Context, query string) (*models.Answer, error)
	ProcessQuery(ctx context.Context, text string) (string, error)
	HealthCheck(ctx context.Context) error
}

type Handler struct {
	svc       RAGService
	uploadDir string
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
}

func NewRouter(svc RAGService, uploadDir string) *gin.Engine {
	h := &Handler{svc: svc, uploadDir: uploadDir}

	r := gin.New()
	r.Use(gin.Recovery(), requestMetrics())
	r.GET("/healthcheck", h.healthcheck)
	r.POST("/query", h.query)
	r.POST("/query_pdf", h.queryPDF)
	r.POST("/upload_pdf", h.uploadPDF)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func (h *Handler) healthcheck(c *gin.Context) {
	if err := h.svc.HealthCheck(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Healthcheck failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "query is required"})
		return
	}
	out, err := h.svc.ProcessQuery(c.Request.Context(), req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": out})
}

func (h *Handler) queryPDF(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "query is required"})
		return
	}
	log.Info().Str("query", req.Query).Msg("POST /query_pdf")

	answer, err := h.svc.Answer(c.Request.Context(), req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (h *Handler) uploadPDF(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "missing file field"})
		return
	}
	name := filepath.Base(file.Filename)
	if !parser.IsPDF(name) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "only .pdf files are accepted"})
		return
	}

	dst := filepath.Join(h.uploadDir, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		log.Error().Err(err).Str("filename", name).Msg("Could not save file")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not save file"})
		return
	}

	report, err := h.svc.IngestFile(c.Request.Context(), dst)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrUnreadablePDF):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, models.ErrEmbeddingService), errors.Is(err, models.ErrGeneration):
		status = http.StatusBadGateway
	}
	log.Error().Err(err).Int("status", status).Str("path", c.FullPath()).Msg("Request failed")
	c.JSON(status, gin.H{"detail": err.Error()})
}
