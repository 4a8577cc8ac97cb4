package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"juriscite-backend/config"
	"juriscite-backend/embedding"
	"juriscite-backend/models"
	"juriscite-backend/repository"

	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

const maxLineBytes = 4 << 20

func main() {
	dir := flag.String("dir", "./precedents", "directory of .jsonl files, one precedent per line")
	namespace := flag.String("namespace", models.NamespacePublic, "target namespace: public, legal-reference or user:<id>")
	rps := flag.Float64("rps", 2, "embedding requests per second")
	flag.Parse()

	if !validNamespace(*namespace) {
		log.Fatalf("Invalid namespace %q", *namespace)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Gemini.APIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	var tableExists bool
	err = pool.QueryRow(ctx, "SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'precedent_vectors')").Scan(&tableExists)
	if err != nil {
		log.Fatalf("Failed to check table existence: %v", err)
	}
	if !tableExists {
		log.Fatal("precedent_vectors table does not exist. Please run: go run ./cmd/create-schema")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Gemini.APIKey))
	if err != nil {
		log.Fatalf("Failed to initialize Gemini: %v", err)
	}
	defer client.Close()

	idx := &indexer{
		embedder: embedding.NewGeminiEmbedder(client, cfg.Gemini.EmbeddingModel, cfg.Gemini.EmbeddingDimensions, genai.TaskTypeRetrievalDocument),
		repo:     repository.NewPrecedentVectorRepository(pool, cfg.Gemini.EmbeddingDimensions),
		limiter:  rate.NewLimiter(rate.Limit(*rps), 1),
		ns:       *namespace,
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.jsonl"))
	if err != nil {
		log.Fatalf("Failed to list %s: %v", *dir, err)
	}
	if len(files) == 0 {
		log.Fatalf("No .jsonl files found in %s", *dir)
	}

	total := 0
	for _, path := range files {
		log.Printf("\n📄 Processing: %s", filepath.Base(path))
		n, err := idx.indexFile(ctx, path)
		if err != nil {
			log.Printf("   ❌ Error indexing %s: %v", path, err)
			continue
		}
		total += n
		log.Printf("   ✅ Indexed %d precedents", n)
	}

	count, err := idx.repo.CountByNamespace(ctx, *namespace)
	if err != nil {
		log.Printf("Warning: Failed to count namespace rows: %v", err)
	}
	fmt.Printf("\n✅ Indexing complete: %d precedents written, %d in namespace %s\n", total, count, *namespace)
}

type indexer struct {
	embedder embedding.Embedder
	repo     *repository.PrecedentVectorRepository
	limiter  *rate.Limiter
	ns       string
}

func (ix *indexer) indexFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	written, line := 0, 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}

		p, err := parsePrecedent([]byte(raw), ix.ns)
		if err != nil {
			log.Printf("   ⚠️  line %d skipped: %v", line, err)
			continue
		}

		if err := ix.limiter.Wait(ctx); err != nil {
			return written, err
		}
		vec, err := ix.embedder.Embed(ctx, embeddingText(p))
		if err != nil {
			log.Printf("   ❌ line %d (%s): %v", line, p.CaseNumber, err)
			continue
		}
		if err := ix.repo.Upsert(ctx, p, vec); err != nil {
			log.Printf("   ❌ line %d (%s): %v", line, p.CaseNumber, err)
			continue
		}
		written++
	}
	return written, sc.Err()
}

// parsePrecedent decodes one JSONL record. Records without a case number or
// summary cannot be cited and are rejected.
func parsePrecedent(raw []byte, namespace string) (models.PrecedentVector, error) {
	var p models.PrecedentVector
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("invalid JSON: %w", err)
	}
	p.Namespace = namespace
	p.CaseNumber = strings.TrimSpace(p.CaseNumber)
	p.Court = strings.TrimSpace(p.Court)
	if p.ID == "" {
		p.ID = p.CaseNumber
	}

	switch {
	case p.ID == "":
		return p, errors.New("missing id and case_number")
	case p.CaseNumber == "":
		return p, errors.New("missing case_number")
	case strings.TrimSpace(p.SummaryText) == "":
		return p, errors.New("missing summary_text")
	}
	return p, nil
}

// embeddingText is what the vector represents: court, case number and summary
func embeddingText(p models.PrecedentVector) string {
	parts := make([]string, 0, 3)
	if p.Court != "" {
		parts = append(parts, p.Court)
	}
	parts = append(parts, p.CaseNumber, p.SummaryText)
	return strings.Join(parts, "\n")
}

func validNamespace(ns string) bool {
	switch {
	case ns == models.NamespacePublic, ns == models.NamespaceLegalReference:
		return true
	case strings.HasPrefix(ns, models.UserNamespace("")):
		return len(ns) > len(models.UserNamespace(""))
	}
	return false
}
