package handlers

import (
	"errors"
	"net/http"

	"juriscite-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalysisHandler streams precedent analyses and reports job status
type AnalysisHandler struct {
	analysisService *service.AnalysisService
	logger          *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analysisService *service.AnalysisService, logger *zap.Logger) *AnalysisHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisHandler{analysisService: analysisService, logger: logger}
}

// AnalyzeRequest represents the request body of a streamed analysis
type AnalyzeRequest struct {
	DocumentID    string   `json:"document_id" binding:"omitempty,uuid"`
	Text          string   `json:"text" binding:"required_without=DocumentID"`
	TopK          int      `json:"top_k" binding:"omitempty,min=1"`
	MinConfidence *float64 `json:"min_confidence"`
	CourtScope    string   `json:"court_scope" binding:"max=16"`
	ExpandScope   bool     `json:"expand_scope"`
	DateFrom      string   `json:"date_from" binding:"omitempty,datetime=2006-01-02"`
	DateTo        string   `json:"date_to" binding:"omitempty,datetime=2006-01-02"`
}

// StreamAnalysis handles POST /api/analyses/stream
func (h *AnalysisHandler) StreamAnalysis(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	serviceReq := service.AnalyzeRequest{
		UserID:        userID(c),
		Text:          req.Text,
		TopK:          req.TopK,
		MinConfidence: req.MinConfidence,
		CourtScope:    req.CourtScope,
		ExpandScope:   req.ExpandScope,
		DateFrom:      req.DateFrom,
		DateTo:        req.DateTo,
	}
	if req.DocumentID != "" {
		id := uuid.MustParse(req.DocumentID)
		serviceReq.DocumentID = &id
	}

	events, err := h.analysisService.Analyze(c.Request.Context(), serviceReq)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid bearer token")
		case errors.Is(err, service.ErrOutOfScope):
			abortWithError(c, http.StatusBadRequest, "OUT_OF_SCOPE", "O texto enviado não parece tratar de matéria jurídica.")
		case errors.Is(err, service.ErrInvalidInput):
			abortWithError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		case errors.Is(err, service.ErrDocumentNotFound):
			abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Document not found")
		default:
			abortWithError(c, http.StatusInternalServerError, "ANALYSIS_FAILED", err.Error())
		}
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sent := 0
	for ev := range events {
		c.SSEvent(string(ev.Type), ev.Payload())
		c.Writer.Flush()
		sent++
	}
	h.logger.Debug("analysis stream closed", zap.Int("events", sent))
}

// GetJobStatus handles GET /api/analyses/:id
func (h *AnalysisHandler) GetJobStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_ID", "Invalid job ID format")
		return
	}

	result, err := h.analysisService.GetJobStatus(c.Request.Context(), service.GetJobStatusRequest{
		JobID:  id,
		UserID: userID(c),
	})
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Analysis job not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "RETRIEVAL_FAILED", err.Error())
		return
	}

	respondOK(c, http.StatusOK, result.Job)
}
