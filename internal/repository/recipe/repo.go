package recipe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/reciperag/internal/db/elastic"
	"github.com/kailas-cloud/reciperag/internal/domain"
)

// searchFields are the text fields the best-match search spans, and the
// projection returned per KNN hit. The embedding field is excluded.
var searchFields = []string{"ingredients", "steps", "name", "description", "tags"}

// vectorField is the dense_vector mapping name in the recipe index.
const vectorField = "text_vector"

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, index string, body any) ([]elastic.Hit, error)
}

// Repo is the retrieval gateway over the recipe index. The two search modes
// are not blended; no hybrid re-ranking is performed.
type Repo struct {
	store         store
	index         string
	topK          int
	numCandidates int
	dims          int
}

// New creates a recipe retrieval repository with default sizing.
func New(s store, index string) *Repo {
	return &Repo{
		store:         s,
		index:         index,
		topK:          5,
		numCandidates: 10000,
		dims:          domain.EmbeddingDimensions,
	}
}

// WithSizing overrides the result cap and the KNN candidate pool.
func (r *Repo) WithSizing(topK, numCandidates int) *Repo {
	if topK > 0 {
		r.topK = topK
	}
	if numCandidates > 0 {
		r.numCandidates = numCandidates
	}
	return r
}

// WithDimensions overrides the expected query vector width.
func (r *Repo) WithDimensions(dims int) *Repo {
	if dims > 0 {
		r.dims = dims
	}
	return r
}

// SearchText runs a multi-field best-match search over the recipe text fields.
func (r *Repo) SearchText(ctx context.Context, query string) ([]domain.RecipeDocument, error) {
	body := map[string]any{
		"size": r.topK,
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  query,
						"fields": searchFields,
						"type":   "best_fields",
					},
				},
			},
		},
	}

	hits, err := r.store.Search(ctx, r.index, body)
	if err != nil {
		return nil, fmt.Errorf("%w: text search: %w", domain.ErrRetrieval, err)
	}
	return r.parseHits(hits)
}

// SearchKNN runs an approximate nearest-neighbor search over the embedding
// field using the index's cosine similarity.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32) ([]domain.RecipeDocument, error) {
	if len(vector) != r.dims {
		return nil, fmt.Errorf(
			"%w: query vector has %d dimensions, index expects %d: %w",
			domain.ErrRetrieval, len(vector), r.dims, domain.ErrVectorDimMismatch,
		)
	}

	body := map[string]any{
		"knn": map[string]any{
			"field":          vectorField,
			"query_vector":   vector,
			"k":              r.topK,
			"num_candidates": r.numCandidates,
		},
		"_source": searchFields,
	}

	hits, err := r.store.Search(ctx, r.index, body)
	if err != nil {
		return nil, fmt.Errorf("%w: knn search: %w", domain.ErrRetrieval, err)
	}
	return r.parseHits(hits)
}

// parseHits decodes hit sources in index order, enforcing topK as an upper
// bound. Zero hits yield an empty slice.
func (r *Repo) parseHits(hits []elastic.Hit) ([]domain.RecipeDocument, error) {
	if len(hits) > r.topK {
		hits = hits[:r.topK]
	}

	docs := make([]domain.RecipeDocument, 0, len(hits))
	for _, hit := range hits {
		var doc domain.RecipeDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("%w: decode hit %s: %w", domain.ErrRetrieval, hit.ID, err)
		}
		if doc.ID == "" {
			doc.ID = hit.ID
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
