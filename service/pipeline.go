package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"juriscite-backend/anchor"
	"juriscite-backend/confidence"
	"juriscite-backend/generation"
	"juriscite-backend/metrics"
	"juriscite-backend/models"
	"juriscite-backend/retrieval"
	"juriscite-backend/storage"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Error codes carried by error events
const (
	CodeNoConfidentMatches = "no_confident_matches"
	CodeRateLimited        = "rate_limited"
	CodeMalformedOutput    = "malformed_output"
	CodeGenerationFailed   = "generation_failed"
	CodeIntegrityViolation = "integrity_violation"
)

const (
	rateLimitedMessage = "O serviço de geração atingiu o limite de requisições. " +
		"As justificativas restantes foram montadas diretamente a partir dos dados dos precedentes."
	malformedMessage        = "A justificativa gerada para este precedente veio em formato inválido e foi descartada."
	generationFailedMessage = "Não foi possível gerar a justificativa deste precedente; foi usada a versão baseada apenas nos dados do precedente."
	integrityMessagePrefix  = "Verificação de integridade falhou: "

	artifactName = "analysis.json"
)

// analysisRun is the single writer of one request's events
type analysisRun struct {
	s      *AnalysisService
	sm     *stageMachine
	p      analysisParams
	events chan<- models.StreamEvent
	log    *zap.Logger

	artifact analysisArtifact
}

func (s *AnalysisService) run(ctx context.Context, sm *stageMachine, p analysisParams, events chan<- models.StreamEvent) {
	ctx, span := tracer.Start(ctx, "analysis.Run", trace.WithAttributes(
		attribute.String("analysis.job_id", sm.jobID.String()),
		attribute.Int("analysis.top_k", p.topK),
		attribute.Bool("analysis.expand_scope", p.expandScope),
	))
	defer span.End()
	sm.parent = ctx

	r := &analysisRun{
		s:      s,
		sm:     sm,
		p:      p,
		events: events,
		log:    s.logger.With(zap.String("job_id", sm.jobID.String())),
		artifact: analysisArtifact{
			JobID:     sm.jobID.String(),
			UserID:    p.userID,
			CreatedAt: time.Now().UTC(),
			Request: artifactRequest{
				TopK:          p.topK,
				MinConfidence: p.minConfidence,
				CourtScope:    p.courtScope,
				ExpandScope:   p.expandScope,
				DateFrom:      p.dateFrom,
				DateTo:        p.dateTo,
			},
		},
	}
	if p.documentID != nil {
		r.artifact.Request.DocumentID = p.documentID.String()
	}

	if err := r.execute(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		sm.stop()
		r.log.Error("analysis stopped", zap.Error(err))
		r.abortJob(err.Error())
		s.metrics.Analysis(string(StageAborted))
		return
	}
	span.SetStatus(codes.Ok, "")
	s.metrics.Analysis(string(StageDone))
}

func (r *analysisRun) execute(ctx context.Context) error {
	if err := r.sm.Advance(StageRetrieving, ""); err != nil {
		return err
	}
	sparse, dense := r.s.retrieve(r.sm.Context(), r.p)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := r.sm.Advance(StageFusing, ""); err != nil {
		return err
	}
	precedents, references := retrieval.SplitReferences(dense)
	candidates := retrieval.Dedupe(retrieval.Candidates(retrieval.Fuse(sparse, precedents, r.s.rrfK)))
	if r.s.reranker != nil && len(candidates) > 0 {
		candidates = r.s.reranker.Rerank(r.sm.Context(), r.p.text, candidates)
	}

	if err := r.sm.Advance(StageConfidenceCheck, ""); err != nil {
		return err
	}
	confident := confidence.Confident(candidates, r.p.minConfidence)
	top := confident[:min(len(confident), r.p.topK)]
	m := confidence.Evaluate(r.p.text, top)
	decision := r.s.thresholds.Decide(confident, m)

	r.artifact.Decision = decision.String()
	r.artifact.Confidence = m
	r.artifact.Candidates = top
	r.artifact.References = references

	r.log.Info("confidence check",
		zap.Int("candidates", len(candidates)),
		zap.Int("confident", len(confident)),
		zap.Float64("retrieval_confidence", m.RetrievalConfidence()),
		zap.Float64("evidence_coverage", m.EvidenceCoverage()),
		zap.Stringer("decision", decision),
	)

	if decision != confidence.Proceed {
		return r.abstain(ctx, decision, m, top, references)
	}
	return r.justify(ctx, m, top, references)
}

func (r *analysisRun) abstain(ctx context.Context, decision confidence.Decision, m confidence.Metrics, top, references []models.CandidateResult) error {
	if err := r.sm.Advance(StageAbstaining, decision.String()); err != nil {
		return err
	}
	r.s.metrics.Abstained(decision.String())

	switch decision {
	case confidence.AbstainNoCandidates:
		if !r.emit(ctx, models.StreamEvent{Type: models.EventResults, Results: []models.CandidateResult{}}) {
			return ctx.Err()
		}
		if !r.emit(ctx, errorEvent(CodeNoConfidentMatches, confidence.NoConfidentMatchesMessage, "")) {
			return ctx.Err()
		}
	default:
		msg := confidence.AbstentionMessage(m)
		events := []models.StreamEvent{
			{Type: models.EventMetadata, Metadata: &models.MetadataPayload{
				JobID:      r.sm.jobID.String(),
				Confidence: m.Summary(true),
				References: references,
			}},
			{Type: models.EventResults, Results: top},
			{Type: models.EventJustification, Justification: &models.JustificationPayload{
				Text:      msg,
				Abstained: true,
			}},
		}
		for _, ev := range events {
			if !r.emit(ctx, ev) {
				return ctx.Err()
			}
		}
		r.artifact.AbstentionMessage = msg
	}

	r.artifact.Abstained = true
	return r.finish(ctx, true)
}

func (r *analysisRun) justify(ctx context.Context, m confidence.Metrics, top, references []models.CandidateResult) error {
	if err := r.sm.Advance(StageAnchoring, fmt.Sprintf("%d", len(top))); err != nil {
		return err
	}
	anchors := anchor.BuildAll(top)
	r.artifact.Anchors = anchors
	r.artifact.AnchorDigest = anchor.SetDigest(anchors)

	used := make([]models.UsedPrecedent, len(anchors))
	for i, a := range anchors {
		used[i] = a.UsedPrecedent()
	}
	if !r.emit(ctx, models.StreamEvent{Type: models.EventMetadata, Metadata: &models.MetadataPayload{
		JobID:          r.sm.jobID.String(),
		UsedPrecedents: used,
		Confidence:     m.Summary(false),
		References:     references,
	}}) {
		return ctx.Err()
	}
	if !r.emit(ctx, models.StreamEvent{Type: models.EventResults, Results: top}) {
		return ctx.Err()
	}

	fallbackMode := r.s.generator == nil
	for i, a := range anchors {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := fmt.Sprintf("%d/%d %s", i+1, len(anchors), a.CandidateID())
		if err := r.sm.Advance(StageGenerating, detail); err != nil {
			return err
		}

		j, fallback, ok, err := r.generate(ctx, a, &fallbackMode)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		if err := r.sm.Advance(StageValidating, detail); err != nil {
			return err
		}
		if err := r.validate(ctx, a, anchors, j, fallback); err != nil {
			return err
		}
	}

	return r.finish(ctx, false)
}

// generate returns the justification for one anchor. ok is false when the
// candidate produced no usable text; err is only set when the stream is gone.
func (r *analysisRun) generate(ctx context.Context, a anchor.FactAnchor, fallbackMode *bool) (j *generation.Justification, fallback, ok bool, err error) {
	if *fallbackMode {
		r.s.metrics.Generation(metrics.OutcomeFallback)
		return generation.FallbackJustification(a), true, true, nil
	}

	prompt := generation.BuildPrompt(r.p.text, a)
	var raw string
	genErr := r.s.retry.Do(r.sm.Context(), func(ctx context.Context) error {
		var err error
		raw, err = r.s.generator.Generate(ctx, prompt)
		return err
	})

	if genErr == nil {
		parsed, perr := generation.ParseJustification(raw)
		if perr == nil {
			r.s.metrics.Generation(metrics.OutcomeGenerated)
			return parsed, false, true, nil
		}
		r.log.Warn("malformed justification", zap.String("candidate_id", a.CandidateID()), zap.Error(perr))
		r.s.metrics.Generation(metrics.OutcomeMalformed)
		r.artifact.addFailure(a.CandidateID(), CodeMalformedOutput, perr)
		if !r.emit(ctx, errorEvent(CodeMalformedOutput, malformedMessage, a.CandidateID())) {
			return nil, false, false, ctx.Err()
		}
		return nil, false, false, nil
	}

	if ctx.Err() != nil {
		return nil, false, false, ctx.Err()
	}

	if errors.Is(genErr, generation.ErrRateLimited) {
		r.log.Warn("generation rate limited, switching to fallback", zap.String("candidate_id", a.CandidateID()))
		*fallbackMode = true
		r.artifact.addFailure(a.CandidateID(), CodeRateLimited, genErr)
		if !r.emit(ctx, errorEvent(CodeRateLimited, rateLimitedMessage, a.CandidateID())) {
			return nil, false, false, ctx.Err()
		}
	} else {
		r.log.Warn("generation failed", zap.String("candidate_id", a.CandidateID()), zap.Error(genErr))
		r.s.metrics.Generation(metrics.OutcomeFailed)
		r.artifact.addFailure(a.CandidateID(), CodeGenerationFailed, genErr)
		if !r.emit(ctx, errorEvent(CodeGenerationFailed, generationFailedMessage, a.CandidateID())) {
			return nil, false, false, ctx.Err()
		}
	}

	r.s.metrics.Generation(metrics.OutcomeFallback)
	return generation.FallbackJustification(a), true, true, nil
}

func (r *analysisRun) validate(ctx context.Context, a anchor.FactAnchor, anchors []anchor.FactAnchor, j *generation.Justification, fallback bool) error {
	text := j.Text()
	report := anchor.Trusted(anchors)
	if !fallback {
		report = anchor.ValidateQuoting(text, a, anchors, j.CitedCaseNumbers()...)
	}
	r.s.metrics.IntegrityViolations(len(report.Violations))
	r.artifact.Justifications = append(r.artifact.Justifications, artifactJustification{
		CandidateID:   a.CandidateID(),
		Justification: j,
		Fallback:      fallback,
		Integrity:     report,
	})

	if !r.emit(ctx, models.StreamEvent{Type: models.EventJustification, Justification: &models.JustificationPayload{
		CandidateID: a.CandidateID(),
		Text:        text,
		Structured:  j,
		Fallback:    fallback,
		Integrity:   report.Info(),
	}}) {
		return ctx.Err()
	}

	if !report.Valid {
		r.log.Warn("integrity violations",
			zap.String("candidate_id", a.CandidateID()),
			zap.Strings("violations", report.Violations),
		)
		msg := integrityMessagePrefix + strings.Join(report.Violations, "; ")
		if !r.emit(ctx, errorEvent(CodeIntegrityViolation, msg, a.CandidateID())) {
			return ctx.Err()
		}
	}
	return nil
}

// finish persists the artifact, closes the job and emits the complete event
func (r *analysisRun) finish(ctx context.Context, abstained bool) error {
	if err := r.sm.Advance(StageDone, ""); err != nil {
		return err
	}

	uri := r.persistArtifact(ctx)
	r.completeJob(uri)

	r.emit(ctx, models.StreamEvent{Type: models.EventComplete, Complete: &models.CompletePayload{
		JobID:       r.sm.jobID.String(),
		ArtifactURI: uri,
		Abstained:   abstained,
	}})
	return nil
}

// emit delivers ev unless the consumer has gone away
func (r *analysisRun) emit(ctx context.Context, ev models.StreamEvent) bool {
	select {
	case r.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func errorEvent(code, message, candidateID string) models.StreamEvent {
	return models.StreamEvent{Type: models.EventError, Error: &models.ErrorPayload{
		Code:        code,
		Message:     message,
		CandidateID: candidateID,
	}}
}

func (r *analysisRun) persistArtifact(ctx context.Context) string {
	if r.s.artifacts == nil {
		return ""
	}
	body, err := json.MarshalIndent(r.artifact, "", "  ")
	if err != nil {
		r.log.Warn("failed to encode analysis artifact", zap.Error(err))
		return ""
	}
	key := storage.ArtifactKey(r.sm.jobID, artifactName)
	uri, err := r.s.artifacts.Put(context.WithoutCancel(ctx), key, bytes.NewReader(body), "application/json")
	if err != nil {
		r.log.Warn("failed to persist analysis artifact", zap.String("key", key), zap.Error(err))
		return ""
	}
	return uri
}

func (r *analysisRun) completeJob(uri string) {
	if r.sm.jobs == nil {
		return
	}
	if err := r.sm.jobs.Complete(context.WithoutCancel(r.sm.parent), r.sm.jobID, uri); err != nil {
		r.log.Warn("failed to complete analysis job", zap.Error(err))
	}
}

func (r *analysisRun) abortJob(reason string) {
	if r.sm.jobs == nil {
		return
	}
	if err := r.sm.jobs.Abort(context.WithoutCancel(r.sm.parent), r.sm.jobID, reason); err != nil {
		r.log.Warn("failed to abort analysis job", zap.Error(err))
	}
}

// analysisArtifact is the persisted record of one analysis
type analysisArtifact struct {
	JobID             string                   `json:"job_id"`
	UserID            string                   `json:"user_id"`
	CreatedAt         time.Time                `json:"created_at"`
	Request           artifactRequest          `json:"request"`
	Decision          string                   `json:"decision"`
	Abstained         bool                     `json:"abstained"`
	AbstentionMessage string                   `json:"abstention_message,omitempty"`
	Confidence        confidence.Metrics       `json:"confidence"`
	Candidates        []models.CandidateResult `json:"candidates"`
	References        []models.CandidateResult `json:"references,omitempty"`
	Anchors           []anchor.FactAnchor      `json:"anchors,omitempty"`
	AnchorDigest      string                   `json:"anchor_digest,omitempty"`
	Justifications    []artifactJustification  `json:"justifications,omitempty"`
	Failures          []artifactFailure        `json:"failures,omitempty"`
}

type artifactRequest struct {
	DocumentID    string  `json:"document_id,omitempty"`
	TopK          int     `json:"top_k"`
	MinConfidence float64 `json:"min_confidence"`
	CourtScope    string  `json:"court_scope,omitempty"`
	ExpandScope   bool    `json:"expand_scope"`
	DateFrom      string  `json:"date_from,omitempty"`
	DateTo        string  `json:"date_to,omitempty"`
}

type artifactJustification struct {
	CandidateID   string                    `json:"candidate_id"`
	Justification *generation.Justification `json:"justification"`
	Fallback      bool                      `json:"fallback"`
	Integrity     anchor.Report             `json:"integrity"`
}

type artifactFailure struct {
	CandidateID string `json:"candidate_id"`
	Code        string `json:"code"`
	Error       string `json:"error"`
}

func (a *analysisArtifact) addFailure(candidateID, code string, err error) {
	a.Failures = append(a.Failures, artifactFailure{CandidateID: candidateID, Code: code, Error: err.Error()})
}
