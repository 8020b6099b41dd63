package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	openaisdk "github.com/sashabaranov/go-openai"

	"github.com/fintor-ai/fintor/internal/config"
	"github.com/fintor-ai/fintor/internal/database"
	"github.com/fintor-ai/fintor/internal/openai"
	"github.com/fintor-ai/fintor/internal/repository"
	"github.com/fintor-ai/fintor/internal/service"
)

// newRetrievalService wires the embedding client and chunk repository into a
// retrieval service. The embedding provider is mandatory: without it neither
// ingest nor search can work.
func newRetrievalService(cfg *config.Config, pool *pgxpool.Pool) (*service.RetrievalService, error) {
	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("FINTOR_OPENAI_API_KEY is required")
	}

	client := openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		EmbeddingModel: openaisdk.EmbeddingModel(cfg.EmbeddingModel),
	})
	repo := repository.NewChunkRepository(pool)

	return service.NewRetrievalService(client, repo), nil
}

// connect loads config and opens a database pool for one-shot commands.
func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, pool, nil
}
