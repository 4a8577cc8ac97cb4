package models

// Vector index namespaces
const (
	NamespacePublic         = "public"
	NamespaceLegalReference = "legal-reference"
	userNamespacePrefix     = "user:"
)

// UserNamespace returns the private namespace of a user
func UserNamespace(userID string) string {
	return userNamespacePrefix + userID
}

// PrecedentVector is a row of the vector index
type PrecedentVector struct {
	ID           string                 `json:"id"`
	Namespace    string                 `json:"namespace"`
	CaseNumber   string                 `json:"case_number"`
	Court        string                 `json:"court"`
	Rapporteur   string                 `json:"rapporteur"`
	DecisionDate string                 `json:"decision_date"`
	SummaryText  string                 `json:"summary_text"`
	FullText     string                 `json:"full_text"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Distance     float64                `json:"distance,omitempty"` // Cosine distance
}
