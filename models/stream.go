package models

// StreamEventType is the discriminator of a streamed chunk
type StreamEventType string

const (
	EventMetadata      StreamEventType = "metadata"
	EventResults       StreamEventType = "results"
	EventJustification StreamEventType = "justification"
	EventError         StreamEventType = "error"
	EventComplete      StreamEventType = "complete"
)

// StreamEvent is one chunk of an analysis stream. Exactly one payload field
// is set, matching Type.
type StreamEvent struct {
	Type          StreamEventType       `json:"type"`
	Metadata      *MetadataPayload      `json:"metadata,omitempty"`
	Results       []CandidateResult     `json:"results,omitempty"`
	Justification *JustificationPayload `json:"justification,omitempty"`
	Error         *ErrorPayload         `json:"error,omitempty"`
	Complete      *CompletePayload      `json:"complete,omitempty"`
}

// Payload returns the body sent on the wire for the event's type
func (e StreamEvent) Payload() any {
	switch e.Type {
	case EventMetadata:
		return e.Metadata
	case EventResults:
		if e.Results == nil {
			return []CandidateResult{}
		}
		return e.Results
	case EventJustification:
		return e.Justification
	case EventError:
		return e.Error
	case EventComplete:
		return e.Complete
	}
	return nil
}

// MetadataPayload carries request-level side information
type MetadataPayload struct {
	JobID          string             `json:"job_id,omitempty"`
	UsedPrecedents []UsedPrecedent    `json:"used_precedents,omitempty"`
	Confidence     *ConfidenceSummary `json:"confidence,omitempty"`
	References     []CandidateResult  `json:"references,omitempty"`
}

// UsedPrecedent is the short form of an anchored candidate
type UsedPrecedent struct {
	CandidateID string `json:"candidate_id"`
	CaseNumber  string `json:"case_number"`
	Court       string `json:"court"`
	SummaryHash string `json:"summary_hash"`
}

// ConfidenceSummary is the wire form of the request confidence metrics
type ConfidenceSummary struct {
	RetrievalConfidence float64 `json:"retrieval_confidence"`
	EvidenceCoverage    float64 `json:"evidence_coverage"`
	GenerationRisk      float64 `json:"generation_risk"`
	Abstained           bool    `json:"abstained"`
}

// JustificationPayload is the generated (or substituted) text for one candidate
type JustificationPayload struct {
	CandidateID string         `json:"candidate_id,omitempty"`
	Text        string         `json:"text"`
	Structured  any            `json:"structured,omitempty"`
	Fallback    bool           `json:"fallback,omitempty"`
	Abstained   bool           `json:"abstained,omitempty"`
	Integrity   *IntegrityInfo `json:"integrity,omitempty"`
}

// IntegrityInfo is the wire form of an integrity report
type IntegrityInfo struct {
	Valid        bool     `json:"valid"`
	Violations   []string `json:"violations,omitempty"`
	AnchorDigest string   `json:"anchor_digest,omitempty"`
}

// ErrorPayload is a non-fatal, human-readable failure
type ErrorPayload struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	CandidateID string `json:"candidate_id,omitempty"`
}

// CompletePayload terminates the stream
type CompletePayload struct {
	JobID       string `json:"job_id,omitempty"`
	ArtifactURI string `json:"artifact_uri,omitempty"`
	Abstained   bool   `json:"abstained"`
}
