package service

import (
	"context"
	"errors"
	"strings"

	"juriscite-backend/models"

	"github.com/google/uuid"
)

const maxTitleLength = 200

// DocumentService handles submitted legal texts
type DocumentService struct {
	documents DocumentStore
}

// DocumentServiceOption is a functional option for DocumentService
type DocumentServiceOption func(*DocumentService)

// DocumentWithStore sets the document repository
func DocumentWithStore(d DocumentStore) DocumentServiceOption {
	return func(s *DocumentService) {
		s.documents = d
	}
}

// NewDocumentService creates a new document service
func NewDocumentService(opts ...DocumentServiceOption) *DocumentService {
	s := &DocumentService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDocumentRequest represents a request to store a document
type CreateDocumentRequest struct {
	UserID string
	Title  string
	Text   string
}

// CreateDocumentResult represents the result of storing a document
type CreateDocumentResult struct {
	Document *models.Document
}

// CreateDocument stores a document owned by the caller
func (s *DocumentService) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*CreateDocumentResult, error) {
	if s.documents == nil {
		return nil, errors.New("document repository not set")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrInvalidInput
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Documento sem título"
	}
	if r := []rune(title); len(r) > maxTitleLength {
		title = string(r[:maxTitleLength])
	}

	doc := &models.Document{
		UserID: req.UserID,
		Title:  title,
		Text:   req.Text,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	return &CreateDocumentResult{Document: doc}, nil
}

// GetDocumentRequest represents a request to get a document
type GetDocumentRequest struct {
	ID     uuid.UUID
	UserID string
}

// GetDocumentResult represents the result of getting a document
type GetDocumentResult struct {
	Document *models.Document
}

// GetDocument retrieves a document owned by the caller
func (s *DocumentService) GetDocument(ctx context.Context, req GetDocumentRequest) (*GetDocumentResult, error) {
	if s.documents == nil {
		return nil, errors.New("document repository not set")
	}
	doc, err := s.documents.GetByID(ctx, req.ID)
	if err != nil || doc.UserID != req.UserID {
		return nil, ErrDocumentNotFound
	}
	return &GetDocumentResult{Document: doc}, nil
}

// ListDocumentsRequest represents a request to list the caller's documents
type ListDocumentsRequest struct {
	UserID string
	Limit  int
}

// ListDocumentsResult represents the result of listing documents
type ListDocumentsResult struct {
	Documents []*models.Document
}

// ListDocuments returns the caller's latest documents, newest first, without text
func (s *DocumentService) ListDocuments(ctx context.Context, req ListDocumentsRequest) (*ListDocumentsResult, error) {
	if s.documents == nil {
		return nil, errors.New("document repository not set")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, ErrUnauthorized
	}
	docs, err := s.documents.ListByUserID(ctx, req.UserID, req.Limit)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	return &ListDocumentsResult{Documents: docs}, nil
}
