package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"juriscite-backend/metrics"
	"juriscite-backend/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Stage is one state of the analysis state machine
type Stage string

const (
	StageReceived        Stage = "received"
	StageRetrieving      Stage = "retrieving"
	StageFusing          Stage = "fusing"
	StageConfidenceCheck Stage = "confidence_check"
	StageAbstaining      Stage = "abstaining"
	StageAnchoring       Stage = "anchoring"
	StageGenerating      Stage = "generating"
	StageValidating      Stage = "validating"
	StageDone            Stage = "done"
	StageAborted         Stage = "aborted"
)

// ErrIllegalTransition signals a bug in the orchestrator's control flow
var ErrIllegalTransition = errors.New("illegal stage transition")

var transitions = map[Stage][]Stage{
	StageReceived:        {StageRetrieving, StageAborted},
	StageRetrieving:      {StageFusing, StageDone},
	StageFusing:          {StageConfidenceCheck, StageDone},
	StageConfidenceCheck: {StageAbstaining, StageAnchoring},
	StageAbstaining:      {StageDone},
	StageAnchoring:       {StageGenerating, StageDone},
	StageGenerating:      {StageValidating, StageGenerating, StageDone},
	StageValidating:      {StageGenerating, StageDone},
}

// CanTransition reports whether from -> to is allowed
func CanTransition(from, to Stage) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var tracer = otel.Tracer("juriscite/service")

// initialStages is the persisted stage list of a new job
func initialStages() models.PipelineStages {
	names := []Stage{StageRetrieving, StageFusing, StageConfidenceCheck, StageAnchoring, StageGenerating, StageValidating}
	stages := make(models.PipelineStages, 0, len(names))
	for _, n := range names {
		stages = append(stages, models.PipelineStage{Name: string(n), Status: models.StagePending})
	}
	return stages
}

// stageMachine enforces the transition table and mirrors it into the job
// row, a span per stage and the stage latency histogram.
type stageMachine struct {
	current Stage
	entered time.Time
	stages  models.PipelineStages

	jobID   uuid.UUID
	jobs    JobStore
	metrics *metrics.Metrics
	logger  *zap.Logger

	parent context.Context
	span   trace.Span
}

func newStageMachine(ctx context.Context, jobID uuid.UUID, jobs JobStore, m *metrics.Metrics, logger *zap.Logger) *stageMachine {
	return &stageMachine{
		current: StageReceived,
		entered: time.Now(),
		stages:  initialStages(),
		jobID:   jobID,
		jobs:    jobs,
		metrics: m,
		logger:  logger,
		parent:  ctx,
	}
}

// Current returns the active stage
func (m *stageMachine) Current() Stage {
	return m.current
}

// Context returns the context of the active stage span
func (m *stageMachine) Context() context.Context {
	if m.span == nil {
		return m.parent
	}
	return trace.ContextWithSpan(m.parent, m.span)
}

// Advance moves to next, closing the previous stage
func (m *stageMachine) Advance(next Stage, detail string) error {
	if !CanTransition(m.current, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.current, next)
	}

	m.closeCurrent()
	m.current = next
	m.entered = time.Now()

	switch next {
	case StageAborted:
		return nil
	case StageDone:
		m.persist(string(next))
		return nil
	case StageAbstaining:
		m.stages = m.stages.Mark(string(StageAnchoring), models.StageSkipped, "")
		m.stages = m.stages.Mark(string(StageGenerating), models.StageSkipped, "")
		m.stages = m.stages.Mark(string(StageValidating), models.StageSkipped, "")
	}

	_, m.span = tracer.Start(m.parent, "analysis."+string(next),
		trace.WithAttributes(attribute.String("analysis.stage_detail", detail)))
	m.stages = m.stages.Mark(string(next), models.StageInProgress, detail)
	m.persist(string(next))
	return nil
}

func (m *stageMachine) closeCurrent() {
	if m.current == StageReceived {
		return
	}
	m.metrics.ObserveStage(string(m.current), time.Since(m.entered))
	if m.span != nil {
		m.span.End()
		m.span = nil
	}
	for _, s := range m.stages {
		if s.Name == string(m.current) {
			m.stages = m.stages.Mark(s.Name, models.StageCompleted, s.Detail)
			break
		}
	}
}

// stop ends the active span without completing the stage
func (m *stageMachine) stop() {
	if m.span != nil {
		m.span.End()
		m.span = nil
	}
}

// Stages returns the persisted stage list
func (m *stageMachine) Stages() models.PipelineStages {
	return m.stages
}

func (m *stageMachine) persist(current string) {
	if m.jobs == nil || m.jobID == uuid.Nil {
		return
	}
	ctx := context.WithoutCancel(m.parent)
	if err := m.jobs.UpdateProgress(ctx, m.jobID, current, m.stages); err != nil {
		m.logger.Warn("failed to update job progress",
			zap.String("job_id", m.jobID.String()),
			zap.String("stage", current),
			zap.Error(err),
		)
	}
}
