// Package examples owns the labeled example store: bulk loading corpus records
// into the vector index and retrieving the nearest examples for a document.
package examples

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/medsift/adr-engine/engine/domain"
	"github.com/medsift/adr-engine/engine/semantic"
)

// Embedder computes a fixed-size vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index abstracts the backing vector store.
type Index interface {
	ListIDs(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, ids []string) error
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
	Search(ctx context.Context, embedding []float32, topK int) ([]semantic.SearchResult, error)
}

// Store wraps the embedding service and vector index behind the example-store
// contract. Constructed once at startup and passed by handle; there is no
// ambient global state.
type Store struct {
	embed  Embedder
	index  Index
	logger *slog.Logger
}

// New creates a Store.
func New(embed Embedder, index Index, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{embed: embed, index: index, logger: logger}
}

// Load replaces the entire store contents with records: all existing points
// are read and deleted, then each record is inserted with a freshly computed
// embedding. Embedding or index errors abort the load and propagate; a
// partially loaded store should be reloaded before serving. Returns the
// number of records inserted.
func (s *Store) Load(ctx context.Context, records []domain.ExampleRecord) (int, error) {
	existing, err := s.index.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("examples: list existing: %w", err)
	}
	if err := s.index.Delete(ctx, existing); err != nil {
		return 0, fmt.Errorf("examples: clear %d existing: %w", len(existing), err)
	}
	if len(existing) > 0 {
		s.logger.Info("cleared example store", "previous", len(existing))
	}

	vectors := make([]semantic.VectorRecord, 0, len(records))
	for _, rec := range records {
		emb, err := s.embed.Embed(ctx, rec.PostText)
		if err != nil {
			return 0, fmt.Errorf("examples: embed record %s: %w", rec.ID, err)
		}
		vectors = append(vectors, semantic.VectorRecord{
			ID:        pointID(rec.ID),
			Embedding: emb,
			Payload: map[string]any{
				"example_id":     rec.ID,
				"post":           rec.PostText,
				"drug_name":      rec.DrugName,
				"adverse_effect": rec.AdverseEffect,
				"severity":       rec.Severity,
				"side_effects":   rec.SideEffects,
			},
		})
	}

	if err := s.index.Upsert(ctx, vectors); err != nil {
		return 0, fmt.Errorf("examples: upsert %d records: %w", len(vectors), err)
	}
	return len(vectors), nil
}

// Query embeds text and returns up to topK nearest examples, most similar
// first. An empty result is a valid outcome, not an error: it means the store
// holds nothing usable as context. topK values below 1 are clamped to 1.
func (s *Store) Query(ctx context.Context, text string, topK int) ([]domain.Match, error) {
	if topK < 1 {
		topK = 1
	}

	emb, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("examples: embed query: %w", err)
	}

	hits, err := s.index.Search(ctx, emb, topK)
	if err != nil {
		return nil, fmt.Errorf("examples: search: %w", err)
	}

	matches := make([]domain.Match, len(hits))
	for i, h := range hits {
		id := h.Meta["example_id"]
		if id == "" {
			id = h.ID
		}
		matches[i] = domain.Match{
			ID:            id,
			Score:         h.Score,
			PostText:      h.Post,
			DrugName:      h.DrugName,
			AdverseEffect: h.AdverseEffect,
			Severity:      h.Severity,
			SideEffects:   h.SideEffects,
		}
	}
	return matches, nil
}

// pointID derives a deterministic UUID for an example record so reloads of
// the same corpus map to the same points.
func pointID(exampleID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("example-"+exampleID)).String()
}
