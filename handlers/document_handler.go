package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"juriscite-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentHandler handles HTTP requests for submitted documents
type DocumentHandler struct {
	documentService *service.DocumentService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// CreateDocumentRequest represents the request body for storing a document
type CreateDocumentRequest struct {
	Title string `json:"title" binding:"max=200"`
	Text  string `json:"text" binding:"required"`
}

// CreateDocument handles POST /api/documents
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.documentService.CreateDocument(c.Request.Context(), service.CreateDocumentRequest{
		UserID: userID(c),
		Title:  req.Title,
		Text:   req.Text,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid bearer token")
		case errors.Is(err, service.ErrInvalidInput):
			abortWithError(c, http.StatusBadRequest, "INVALID_INPUT", "Document text is empty")
		default:
			abortWithError(c, http.StatusInternalServerError, "CREATE_FAILED", err.Error())
		}
		return
	}

	respondOK(c, http.StatusCreated, result.Document)
}

// GetDocument handles GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_ID", "Invalid document ID format")
		return
	}

	result, err := h.documentService.GetDocument(c.Request.Context(), service.GetDocumentRequest{
		ID:     id,
		UserID: userID(c),
	})
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Document not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "RETRIEVAL_FAILED", err.Error())
		return
	}

	respondOK(c, http.StatusOK, result.Document)
}

// ListDocuments handles GET /api/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	result, err := h.documentService.ListDocuments(c.Request.Context(), service.ListDocumentsRequest{
		UserID: userID(c),
		Limit:  limit,
	})
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "RETRIEVAL_FAILED", err.Error())
		return
	}

	respondOK(c, http.StatusOK, result.Documents)
}
