package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AnalysisJobStatus represents the status of an analysis job
type AnalysisJobStatus string

const (
	JobStatusPending    AnalysisJobStatus = "pending"
	JobStatusInProgress AnalysisJobStatus = "in_progress"
	JobStatusCompleted  AnalysisJobStatus = "completed"
	JobStatusAborted    AnalysisJobStatus = "aborted"
)

// Stage status values
const (
	StagePending    = "pending"
	StageInProgress = "in_progress"
	StageCompleted  = "completed"
	StageSkipped    = "skipped"
)

// PipelineStage is the persisted progress of one orchestrator state
type PipelineStage struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// PipelineStages represents the ordered stage list of a job
type PipelineStages []PipelineStage

// Value implements driver.Valuer for JSONB
func (p PipelineStages) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB
func (p *PipelineStages) Scan(value interface{}) error {
	if value == nil {
		*p = make(PipelineStages, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*p = make(PipelineStages, 0)
		return nil
	}

	if len(bytes) == 0 {
		*p = make(PipelineStages, 0)
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// Mark sets the status of the named stage, appending it if missing
func (p PipelineStages) Mark(name, status, detail string) PipelineStages {
	for i := range p {
		if p[i].Name == name {
			p[i].Status = status
			p[i].Detail = detail
			return p
		}
	}
	return append(p, PipelineStage{Name: name, Status: status, Detail: detail})
}

// AnalysisJob tracks one precedent analysis request
type AnalysisJob struct {
	ID           uuid.UUID         `json:"id"`
	UserID       string            `json:"user_id"`
	DocumentID   *uuid.UUID        `json:"document_id,omitempty"`
	Status       AnalysisJobStatus `json:"status"`
	CurrentStage *string           `json:"current_stage,omitempty"`
	Stages       PipelineStages    `json:"stages"`
	ArtifactPath *string           `json:"artifact_path,omitempty"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}
