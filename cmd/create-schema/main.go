package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"juriscite-backend/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	reset := flag.Bool("reset", false, "drop existing tables before creating them (development only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	dims := cfg.Gemini.EmbeddingDimensions

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Printf("Warning: Failed to create pgvector extension: %v", err)
	} else {
		log.Println("✓ pgvector extension enabled")
	}

	if *reset {
		for _, table := range []string{"analysis_jobs", "documents", "precedent_vectors", "users"} {
			if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
				log.Fatalf("Failed to drop table %s: %v", table, err)
			}
		}
		log.Println("✓ Dropped existing tables")
	}

	tables := []struct {
		name string
		sql  string
	}{
		{
			name: "users",
			sql: `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email TEXT NOT NULL,
    secret_hash TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    firm_name TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
		},
		{
			name: "documents",
			sql: `
CREATE TABLE IF NOT EXISTS documents (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    text TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
		},
		{
			name: "analysis_jobs",
			sql: `
CREATE TABLE IF NOT EXISTS analysis_jobs (
    id UUID PRIMARY KEY,
    user_id TEXT NOT NULL,
    document_id UUID REFERENCES documents(id) ON DELETE SET NULL,
    status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'in_progress', 'completed', 'aborted')),
    current_stage VARCHAR(32) NOT NULL DEFAULT '',
    stages JSONB NOT NULL DEFAULT '[]'::jsonb,
    artifact_path TEXT,
    error_message TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ
);`,
		},
		{
			// namespace partitions the index: public, legal-reference or user:<id>
			name: "precedent_vectors",
			sql: fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS precedent_vectors (
    namespace TEXT NOT NULL,
    id TEXT NOT NULL,
    case_number TEXT NOT NULL DEFAULT '',
    court TEXT NOT NULL DEFAULT '',
    rapporteur TEXT,
    decision_date DATE,
    summary_text TEXT NOT NULL DEFAULT '',
    full_text TEXT,
    metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
    embedding vector(%d) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (namespace, id)
);`, dims),
		},
	}

	for _, t := range tables {
		if _, err := pool.Exec(ctx, t.sql); err != nil {
			log.Fatalf("Failed to create %s table: %v", t.name, err)
		}
		log.Printf("✓ Created table: %s", t.name)
	}

	indexes := []struct {
		name string
		sql  string
	}{
		{
			name: "Unique user email",
			sql:  "CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (lower(email));",
		},
		{
			name: "Documents by owner",
			sql:  "CREATE INDEX IF NOT EXISTS idx_documents_user ON documents(user_id, created_at DESC);",
		},
		{
			name: "Jobs by owner",
			sql:  "CREATE INDEX IF NOT EXISTS idx_analysis_jobs_user ON analysis_jobs(user_id, created_at DESC);",
		},
		{
			name: "Vector similarity search (HNSW)",
			sql: `CREATE INDEX IF NOT EXISTS idx_precedent_embedding_hnsw ON precedent_vectors
USING hnsw (embedding vector_cosine_ops)
WITH (m = 16, ef_construction = 64);`,
		},
		{
			name: "Court prefix filtering",
			sql:  "CREATE INDEX IF NOT EXISTS idx_precedent_court ON precedent_vectors(namespace, upper(court) text_pattern_ops);",
		},
		{
			name: "Case number lookup",
			sql:  "CREATE INDEX IF NOT EXISTS idx_precedent_case_number ON precedent_vectors(case_number);",
		},
		{
			name: "Metadata JSONB filtering",
			sql:  "CREATE INDEX IF NOT EXISTS idx_precedent_metadata_gin ON precedent_vectors USING gin (metadata);",
		},
	}

	created := 0
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx.sql); err != nil {
			log.Printf("Warning: Failed to create index %s: %v", idx.name, err)
			continue
		}
		created++
		log.Printf("✓ Created index: %s", idx.name)
	}

	fmt.Println("\n✅ Database schema created successfully!")
	fmt.Println("   Tables: users, documents, analysis_jobs, precedent_vectors")
	fmt.Printf("   Indexes: %d of %d created\n", created, len(indexes))
	fmt.Printf("   Embedding dimensions: %d\n", dims)
}
