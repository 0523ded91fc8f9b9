// Command reciperag-loader provisions the recipe index and bulk-loads
// documents from a JSON file, embedding each recipe's searchable text.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reciperag/internal/config"
	"github.com/kailas-cloud/reciperag/internal/db/elastic"
	"github.com/kailas-cloud/reciperag/internal/domain"
	logpkg "github.com/kailas-cloud/reciperag/internal/logger"
	"github.com/kailas-cloud/reciperag/internal/metrics"
	openaiTransport "github.com/kailas-cloud/reciperag/internal/transport/openai"
)

// indexDoc is a recipe as stored in the index: the text projection plus the
// embedding field.
type indexDoc struct {
	domain.RecipeDocument
	TextVector []float32 `json:"text_vector"`
}

func main() {
	var (
		file     = flag.String("file", "recipes.json", "path to the recipes JSON file")
		recreate = flag.Bool("recreate", true, "drop and recreate the index before loading")
		workers  = flag.Int("workers", 4, "number of concurrent embed+index workers")
	)
	flag.Parse()

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	metrics.RegisterEmbeddingMetrics()

	es, err := elastic.NewClient(elastic.Config{
		Addrs:    cfg.Elastic.Addrs,
		Username: cfg.Elastic.Username,
		Password: cfg.Elastic.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create elasticsearch client", zap.Error(err))
	}

	ctx := context.Background()
	readiness := time.Duration(cfg.Elastic.ReadinessTimeout) * time.Second
	if err := es.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Search index not ready", zap.Error(err))
	}

	if *recreate {
		if err := es.RecreateIndex(ctx, cfg.Elastic.Index, indexMapping(cfg.Embedding.Dimensions)); err != nil {
			logger.Fatal("Failed to recreate index", zap.Error(err))
		}
		logger.Info("Index recreated", zap.String("index", cfg.Elastic.Index))
	}

	docs, err := readRecipes(*file)
	if err != nil {
		logger.Fatal("Failed to read recipes", zap.String("file", *file), zap.Error(err))
	}
	logger.Info("Loaded recipes from file", zap.Int("count", len(docs)))

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	indexed, failed := ingest(ctx, es, embedder, cfg.Elastic.Index, docs, *workers, logger)

	logger.Info("Loading complete",
		zap.Int64("indexed", indexed),
		zap.Int64("failed", failed),
	)
	if failed > 0 {
		os.Exit(1)
	}
}

// ingest runs a worker pool: each worker embeds a recipe's searchable text
// and indexes the document.
func ingest(
	ctx context.Context,
	es *elastic.Client,
	embedder domain.Embedder,
	index string,
	docs []domain.RecipeDocument,
	workers int,
	logger *zap.Logger,
) (indexed, failed int64) {
	jobs := make(chan domain.RecipeDocument)
	var wg sync.WaitGroup
	var okCount, errCount atomic.Int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				if err := indexOne(ctx, es, embedder, index, doc); err != nil {
					errCount.Add(1)
					logger.Warn("failed to index recipe",
						zap.String("id", doc.ID),
						zap.Error(err),
					)
					continue
				}
				okCount.Add(1)
			}
		}()
	}

	for _, doc := range docs {
		jobs <- doc
	}
	close(jobs)
	wg.Wait()

	return okCount.Load(), errCount.Load()
}

func indexOne(
	ctx context.Context,
	es *elastic.Client,
	embedder domain.Embedder,
	index string,
	doc domain.RecipeDocument,
) error {
	emb, err := embedder.Embed(ctx, searchableText(doc))
	if err != nil {
		return fmt.Errorf("embed recipe %s: %w", doc.ID, err)
	}

	if err := es.IndexDocument(ctx, index, doc.ID, indexDoc{
		RecipeDocument: doc,
		TextVector:     emb.Embedding,
	}); err != nil {
		return fmt.Errorf("index recipe %s: %w", doc.ID, err)
	}
	return nil
}

// searchableText concatenates the fields the embedding should represent.
func searchableText(doc domain.RecipeDocument) string {
	return strings.TrimSpace(strings.Join([]string{
		doc.Name, doc.Description, doc.Ingredients, doc.Steps, doc.Tags,
	}, " "))
}

func readRecipes(path string) ([]domain.RecipeDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var docs []domain.RecipeDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return docs, nil
}

// indexMapping is the authoritative recipe index schema.
func indexMapping(dims int) map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"ingredients":   map[string]any{"type": "text"},
				"steps":         map[string]any{"type": "text"},
				"name":          map[string]any{"type": "text"},
				"description":   map[string]any{"type": "text"},
				"tags":          map[string]any{"type": "text"},
				"n_ingredients": map[string]any{"type": "integer"},
				"n_steps":       map[string]any{"type": "integer"},
				"id":            map[string]any{"type": "keyword"},
				"text_vector": map[string]any{
					"type":       "dense_vector",
					"dims":       dims,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	}
}
