package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"juriscite-backend/confidence"
	"juriscite-backend/generation"
	"juriscite-backend/lexicon"
	"juriscite-backend/metrics"
	"juriscite-backend/models"
	"juriscite-backend/retrieval"
	"juriscite-backend/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidInput     = errors.New("invalid analysis input")
	ErrOutOfScope       = errors.New("text is outside the legal domain")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrDocumentNotFound = errors.New("document not found")
	ErrJobNotFound      = errors.New("analysis job not found")
)

const (
	// MaxTopK bounds how many precedents one request may justify
	MaxTopK = 5
	// ExpandedScopeMaxTopK is the cap when court filtering is relaxed
	ExpandedScopeMaxTopK = 3

	retrievalPoolSize = 20
	streamBuffer      = 8
)

// SparseSearcher is the keyword retrieval path
type SparseSearcher interface {
	Enabled() bool
	Search(ctx context.Context, q retrieval.SparseQuery) []models.CandidateResult
}

// DenseSearcher is the vector retrieval path
type DenseSearcher interface {
	Enabled() bool
	Search(ctx context.Context, text string, topK int, court string, namespaces []string) ([]models.CandidateResult, error)
}

// Reranker rescores fused candidates
type Reranker interface {
	Rerank(ctx context.Context, query string, results []models.CandidateResult) []models.CandidateResult
}

// JobStore persists analysis job progress
type JobStore interface {
	Create(ctx context.Context, job *models.AnalysisJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, currentStage string, stages models.PipelineStages) error
	Complete(ctx context.Context, id uuid.UUID, artifactPath string) error
	Abort(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// DocumentStore supplies submitted texts
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListByUserID(ctx context.Context, userID string, limit int) ([]*models.Document, error)
}

// AnalysisService runs the retrieval, abstention, anchoring and generation
// pipeline for one document and streams the outcome.
type AnalysisService struct {
	sparse     SparseSearcher
	dense      DenseSearcher
	reranker   Reranker
	generator  generation.Generator
	retry      generation.RetryPolicy
	jobs       JobStore
	documents  DocumentStore
	artifacts  storage.Storage
	metrics    *metrics.Metrics
	logger     *zap.Logger
	thresholds confidence.Thresholds
	rrfK       int
	defaultTop int
}

// AnalysisServiceOption is a functional option for AnalysisService
type AnalysisServiceOption func(*AnalysisService)

// WithSparseRetriever sets the keyword retriever
func WithSparseRetriever(r SparseSearcher) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.sparse = r
	}
}

// WithDenseRetriever sets the vector retriever
func WithDenseRetriever(r DenseSearcher) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.dense = r
	}
}

// WithReranker sets the reranker
func WithReranker(r Reranker) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.reranker = r
	}
}

// WithGenerator sets the generation backend. Without one every candidate
// gets the deterministic fallback justification.
func WithGenerator(g generation.Generator) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.generator = g
	}
}

// WithRetryPolicy sets the generation retry policy
func WithRetryPolicy(p generation.RetryPolicy) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.retry = p
	}
}

// WithJobStore sets the job repository
func WithJobStore(j JobStore) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.jobs = j
	}
}

// WithDocumentStore sets the document repository
func WithDocumentStore(d DocumentStore) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.documents = d
	}
}

// WithArtifactStorage sets where analysis artifacts are written
func WithArtifactStorage(st storage.Storage) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.artifacts = st
	}
}

// WithMetrics sets the Prometheus collectors
func WithMetrics(m *metrics.Metrics) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) AnalysisServiceOption {
	return func(s *AnalysisService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithThresholds sets the confidence and abstention thresholds
func WithThresholds(t confidence.Thresholds) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.thresholds = t
	}
}

// WithFusion sets the RRF constant and the default top-K
func WithFusion(rrfK, defaultTopK int) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.rrfK = rrfK
		s.defaultTop = defaultTopK
	}
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(opts ...AnalysisServiceOption) *AnalysisService {
	s := &AnalysisService{
		retry:      generation.DefaultRetryPolicy(),
		logger:     zap.NewNop(),
		thresholds: confidence.DefaultThresholds(),
		rrfK:       retrieval.DefaultRRFK,
		defaultTop: MaxTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeRequest represents one analysis request
type AnalyzeRequest struct {
	UserID        string
	DocumentID    *uuid.UUID
	Text          string
	TopK          int
	MinConfidence *float64
	CourtScope    string
	ExpandScope   bool
	DateFrom      string
	DateTo        string
}

// analysisParams are the validated request parameters
type analysisParams struct {
	userID        string
	documentID    *uuid.UUID
	text          string
	topK          int
	minConfidence float64
	courtScope    string
	expandScope   bool
	dateFrom      string
	dateTo        string
}

// Analyze validates the request and starts the pipeline. Input and
// authorization failures are returned before anything is retrieved; after
// that every failure is reported on the stream, which always ends with a
// single complete event unless ctx is cancelled.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (<-chan models.StreamEvent, error) {
	sm := newStageMachine(ctx, uuid.New(), nil, s.metrics, s.logger)

	params, err := s.validate(ctx, req)
	if err != nil {
		_ = sm.Advance(StageAborted, err.Error())
		s.metrics.Analysis(string(StageAborted))
		s.logger.Info("analysis rejected", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	s.createJob(ctx, sm, params)

	events := make(chan models.StreamEvent, streamBuffer)
	go func() {
		defer close(events)
		s.run(ctx, sm, params, events)
	}()
	return events, nil
}

func (s *AnalysisService) validate(ctx context.Context, req AnalyzeRequest) (analysisParams, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return analysisParams{}, ErrUnauthorized
	}

	text := req.Text
	if req.DocumentID != nil {
		if s.documents == nil {
			return analysisParams{}, ErrDocumentNotFound
		}
		doc, err := s.documents.GetByID(ctx, *req.DocumentID)
		if err != nil || doc.UserID != req.UserID {
			return analysisParams{}, ErrDocumentNotFound
		}
		text = doc.Text
	}
	if strings.TrimSpace(text) == "" {
		return analysisParams{}, ErrInvalidInput
	}
	if !lexicon.LooksLegal(text) {
		return analysisParams{}, ErrOutOfScope
	}
	courtScope := strings.TrimSpace(req.CourtScope)
	if !retrieval.IsWildcardScope(courtScope) && !lexicon.IsCourtAcronym(courtScope) {
		return analysisParams{}, fmt.Errorf("%w: unknown court scope %q", ErrInvalidInput, courtScope)
	}

	p := analysisParams{
		userID:      req.UserID,
		documentID:  req.DocumentID,
		text:        text,
		courtScope:  courtScope,
		expandScope: req.ExpandScope,
		dateFrom:    req.DateFrom,
		dateTo:      req.DateTo,
	}

	p.topK = req.TopK
	if p.topK <= 0 {
		p.topK = s.defaultTop
	}
	limit := MaxTopK
	if req.ExpandScope {
		limit = ExpandedScopeMaxTopK
	}
	p.topK = min(max(p.topK, 1), limit)

	p.minConfidence = s.thresholds.MinConfidence
	if req.MinConfidence != nil {
		p.minConfidence = models.Clamp01(*req.MinConfidence)
	}
	return p, nil
}

func (s *AnalysisService) createJob(ctx context.Context, sm *stageMachine, p analysisParams) {
	if s.jobs == nil {
		return
	}
	job := &models.AnalysisJob{
		ID:         sm.jobID,
		UserID:     p.userID,
		DocumentID: p.documentID,
		Status:     models.JobStatusPending,
		Stages:     sm.Stages(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		s.logger.Warn("failed to create analysis job", zap.String("job_id", sm.jobID.String()), zap.Error(err))
		return
	}
	sm.jobs = s.jobs
}

// GetJobStatusRequest represents a request to get job status
type GetJobStatusRequest struct {
	JobID  uuid.UUID
	UserID string
}

// GetJobStatusResult represents the result of getting job status
type GetJobStatusResult struct {
	Job *models.AnalysisJob
}

// GetJobStatus retrieves a job owned by the caller
func (s *AnalysisService) GetJobStatus(ctx context.Context, req GetJobStatusRequest) (*GetJobStatusResult, error) {
	if s.jobs == nil {
		return nil, ErrJobNotFound
	}
	job, err := s.jobs.GetByID(ctx, req.JobID)
	if err != nil || job.UserID != req.UserID {
		return nil, ErrJobNotFound
	}
	return &GetJobStatusResult{Job: job}, nil
}

// retrieve runs both retrieval paths concurrently. Neither path can fail the
// request: the sparse retriever is best-effort by construction and a dense
// failure is logged and treated as no matches.
func (s *AnalysisService) retrieve(ctx context.Context, p analysisParams) (sparse, dense []models.CandidateResult) {
	g, gctx := errgroup.WithContext(ctx)

	if s.sparse != nil && s.sparse.Enabled() && !retrieval.IsWildcardScope(p.courtScope) {
		g.Go(func() error {
			start := time.Now()
			sparse = s.sparse.Search(gctx, retrieval.SparseQuery{
				Text:       p.text,
				CourtScope: p.courtScope,
				Size:       retrievalPoolSize,
				DateFrom:   p.dateFrom,
				DateTo:     p.dateTo,
			})
			s.metrics.ObserveRetrieval(string(models.SourceKeywordIndex), time.Since(start), len(sparse))
			return nil
		})
	}

	if s.dense != nil && s.dense.Enabled() {
		court := p.courtScope
		if p.expandScope || retrieval.IsWildcardScope(court) {
			court = ""
		}
		g.Go(func() error {
			start := time.Now()
			results, err := s.dense.Search(gctx, p.text, retrievalPoolSize, court, retrieval.Namespaces(p.userID))
			if err != nil {
				s.logger.Warn("dense retrieval failed", zap.Error(err))
				return nil
			}
			dense = results
			s.metrics.ObserveRetrieval(string(models.SourceVectorIndex), time.Since(start), len(dense))
			return nil
		})
	}

	_ = g.Wait()
	return sparse, dense
}
