package repository

import (
	"context"
	"time"

	"juriscite-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalysisJobRepository handles database operations for analysis jobs
type AnalysisJobRepository struct {
	db *pgxpool.Pool
}

// NewAnalysisJobRepository creates a new analysis job repository
func NewAnalysisJobRepository(db *pgxpool.Pool) *AnalysisJobRepository {
	return &AnalysisJobRepository{db: db}
}

// Create creates a new analysis job
func (r *AnalysisJobRepository) Create(ctx context.Context, job *models.AnalysisJob) error {
	if job.Stages == nil {
		job.Stages = make(models.PipelineStages, 0)
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	query := `
		INSERT INTO analysis_jobs (
			id, user_id, document_id, status, current_stage, stages
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		job.ID,
		job.UserID,
		job.DocumentID,
		job.Status,
		job.CurrentStage,
		job.Stages,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

// GetByID retrieves an analysis job by ID
func (r *AnalysisJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	job := &models.AnalysisJob{}
	query := `
		SELECT id, user_id, document_id, status, current_stage, stages,
			artifact_path, error_message, created_at, updated_at, completed_at
		FROM analysis_jobs
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.UserID,
		&job.DocumentID,
		&job.Status,
		&job.CurrentStage,
		&job.Stages,
		&job.ArtifactPath,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, notFound(err, "analysis job")
	}

	if job.Stages == nil {
		job.Stages = make(models.PipelineStages, 0)
	}

	return job, nil
}

// UpdateProgress records the current stage and the stage list
func (r *AnalysisJobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, currentStage string, stages models.PipelineStages) error {
	query := `
		UPDATE analysis_jobs SET
			status = $2,
			current_stage = $3,
			stages = $4,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.JobStatusInProgress, currentStage, stages)
	return err
}

// Complete marks an analysis job as completed
func (r *AnalysisJobRepository) Complete(ctx context.Context, id uuid.UUID, artifactPath string) error {
	now := time.Now()
	query := `
		UPDATE analysis_jobs SET
			status = $2,
			artifact_path = NULLIF($3, ''),
			completed_at = $4,
			updated_at = $4
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.JobStatusCompleted, artifactPath, now)
	return err
}

// Abort marks an analysis job as aborted
func (r *AnalysisJobRepository) Abort(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE analysis_jobs SET
			status = $2,
			error_message = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.JobStatusAborted, errorMessage)
	return err
}
