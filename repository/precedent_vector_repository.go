package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"juriscite-backend/models"
	"juriscite-backend/retrieval"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PrecedentVectorRepository is the pgvector-backed dense index
type PrecedentVectorRepository struct {
	db   *pgxpool.Pool
	dims int
}

// NewPrecedentVectorRepository creates a repository for vectors of the given dimensionality
func NewPrecedentVectorRepository(db *pgxpool.Pool, dims int) *PrecedentVectorRepository {
	return &PrecedentVectorRepository{db: db, dims: dims}
}

// formatVector formats an embedding vector as a pgvector literal
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// buildVectorQuery returns the similarity query and its arguments. The court
// filter is a case-insensitive prefix match so "TJSP" also matches
// "TJSP - 3ª Câmara".
func buildVectorQuery(q retrieval.VectorQuery) (string, []any) {
	args := []any{formatVector(q.Vector), q.Namespace}
	filter := "namespace = $2"
	if court := strings.TrimSpace(q.Court); court != "" {
		args = append(args, strings.ToUpper(court)+"%")
		filter += fmt.Sprintf(" AND (upper(court) LIKE $%d OR court = '')", len(args))
	}
	args = append(args, q.TopK)

	query := fmt.Sprintf(`
		SELECT
			id,
			namespace,
			case_number,
			court,
			COALESCE(rapporteur, ''),
			COALESCE(to_char(decision_date, 'YYYY-MM-DD'), ''),
			summary_text,
			COALESCE(full_text, ''),
			metadata,
			embedding <=> $1::vector AS distance
		FROM precedent_vectors
		WHERE %s
		ORDER BY embedding <=> $1::vector
		LIMIT $%d`, filter, len(args))

	return query, args
}

// Query returns the nearest rows of one namespace
func (r *PrecedentVectorRepository) Query(ctx context.Context, q retrieval.VectorQuery) ([]models.PrecedentVector, error) {
	if len(q.Vector) != r.dims {
		return nil, fmt.Errorf("embedding must be %d dimensions, got %d", r.dims, len(q.Vector))
	}
	if q.TopK <= 0 {
		return nil, nil
	}

	query, args := buildVectorQuery(q)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query precedent vectors: %w", err)
	}
	defer rows.Close()

	var out []models.PrecedentVector
	for rows.Next() {
		var p models.PrecedentVector
		err := rows.Scan(
			&p.ID,
			&p.Namespace,
			&p.CaseNumber,
			&p.Court,
			&p.Rapporteur,
			&p.DecisionDate,
			&p.SummaryText,
			&p.FullText,
			&p.Metadata,
			&p.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan precedent vector: %w", err)
		}
		out = append(out, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating precedent vectors: %w", err)
	}

	return out, nil
}

// Upsert inserts or replaces a precedent and its embedding
func (r *PrecedentVectorRepository) Upsert(ctx context.Context, p models.PrecedentVector, embedding []float32) error {
	if len(embedding) != r.dims {
		return fmt.Errorf("embedding must be %d dimensions, got %d", r.dims, len(embedding))
	}
	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	query := `
		INSERT INTO precedent_vectors (
			id, namespace, case_number, court, rapporteur, decision_date,
			summary_text, full_text, metadata, embedding
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, '')::date, $7, NULLIF($8, ''), $9, $10::vector)
		ON CONFLICT (namespace, id) DO UPDATE SET
			case_number = EXCLUDED.case_number,
			court = EXCLUDED.court,
			rapporteur = EXCLUDED.rapporteur,
			decision_date = EXCLUDED.decision_date,
			summary_text = EXCLUDED.summary_text,
			full_text = EXCLUDED.full_text,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.Namespace,
		p.CaseNumber,
		p.Court,
		p.Rapporteur,
		p.DecisionDate,
		p.SummaryText,
		p.FullText,
		metadata,
		formatVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert precedent %s: %w", p.ID, err)
	}
	return nil
}

// CountByNamespace returns how many rows a namespace holds
func (r *PrecedentVectorRepository) CountByNamespace(ctx context.Context, namespace string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM precedent_vectors WHERE namespace = $1`, namespace).Scan(&n)
	return n, err
}
