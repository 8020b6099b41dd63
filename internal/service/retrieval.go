package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fintor-ai/fintor/internal/domain"
	"github.com/fintor-ai/fintor/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkRepositoryInterface defines the repository interface for chunk persistence
type ChunkRepositoryInterface interface {
	BulkInsert(ctx context.Context, chunks []domain.KnowledgeChunk) error
	Search(ctx context.Context, queryVec []float32, filters domain.SearchFilters, limit int, threshold float64) ([]domain.SearchResult, error)
	DeleteByEntity(ctx context.Context, entityType domain.EntityType, entityID string) (int64, error)
	DeleteAll(ctx context.Context) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

const (
	// DefaultSearchLimit bounds single-pool queries when the caller gives none.
	DefaultSearchLimit = 4
	// DefaultSearchThreshold is the minimum similarity for a single-pool result.
	DefaultSearchThreshold = 0.5

	// combinedPoolThreshold fetches each pool loosely so no pool is starved
	// of candidates before ranking.
	combinedPoolThreshold = 0.3
	// combinedMergeThreshold is the strict relevance gate applied after the
	// pools are merged.
	combinedMergeThreshold = 0.5
)

// RetrievalService composes the chunker, the embedding client, and the chunk
// store into the two operations callers use: ingest and retrieve. It holds no
// mutable state, so concurrent calls are safe.
type RetrievalService struct {
	client   EmbeddingClient
	repo     ChunkRepositoryInterface
	chunkCfg ChunkConfig
	uuidGen  UUIDGenerator
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(client EmbeddingClient, repo ChunkRepositoryInterface) *RetrievalService {
	return NewRetrievalServiceWithUUIDGen(client, repo, &DefaultUUIDGenerator{})
}

// NewRetrievalServiceWithUUIDGen creates a RetrievalService with a custom UUID generator (for testing)
func NewRetrievalServiceWithUUIDGen(client EmbeddingClient, repo ChunkRepositoryInterface, uuidGen UUIDGenerator) *RetrievalService {
	return &RetrievalService{
		client:   client,
		repo:     repo,
		chunkCfg: DefaultChunkConfig(),
		uuidGen:  uuidGen,
	}
}

// AddKnowledgeInput represents the input for ingesting one piece of knowledge
type AddKnowledgeInput struct {
	EntityType domain.EntityType
	EntityID   string
	Content    string
	UserID     string
	Metadata   map[string]any
}

// AddKnowledgeOutput reports how many chunks were created for an ingest call
type AddKnowledgeOutput struct {
	EmbeddingsCount int
}

// AddKnowledge chunks the content, embeds all chunks in one batch, and stores
// the resulting records atomically. Chunk order is preserved end-to-end: chunk
// N's content is always paired with chunk N's vector. Errors always propagate;
// silently losing submitted knowledge is unacceptable.
func (s *RetrievalService) AddKnowledge(ctx context.Context, input AddKnowledgeInput) (*AddKnowledgeOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.AddKnowledge", telemetry.SpanAttributes{
		EntityType: string(input.EntityType),
		EntityID:   input.EntityID,
		UserID:     input.UserID,
		Operation:  "ingest",
	})
	defer span.End()

	if strings.TrimSpace(input.Content) == "" {
		return nil, domain.ErrEmptyContent
	}
	if input.EntityType == "" || input.EntityID == "" {
		return nil, domain.ErrMissingRequiredField
	}

	chunks := chunkText(input.Content, s.chunkCfg)
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyContent
	}

	vectors, err := s.client.GenerateEmbeddings(ctx, chunks)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeProvider, "embedding provider call failed", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.ErrEmbeddingCountMismatch
	}

	now := time.Now().UTC()
	records := make([]domain.KnowledgeChunk, 0, len(chunks))
	for i, content := range chunks {
		records = append(records, domain.KnowledgeChunk{
			ID:         s.uuidGen.NewString(),
			EntityType: input.EntityType,
			EntityID:   input.EntityID,
			UserID:     input.UserID,
			Content:    content,
			Embedding:  vectors[i],
			Metadata:   input.Metadata,
			CreatedAt:  now,
		})
	}

	if err := s.repo.BulkInsert(ctx, records); err != nil {
		span.SetError(err)
		return nil, wrapStorageError(err)
	}

	return &AddKnowledgeOutput{EmbeddingsCount: len(records)}, nil
}

// SearchInput represents a single-pool similarity query
type SearchInput struct {
	Query                 string
	EntityTypes           []domain.EntityType
	UserID                string
	IncludeUserContent    bool
	IncludeGeneralContent bool
	Metadata              map[string]string
	Limit                 int
	Threshold             float64
}

// Search embeds the query and delegates to the chunk store. It returns the
// ranked results honestly, including an empty slice when nothing passes the
// threshold; the caller-facing adapter owns the "nothing found" placeholder
// convention.
func (s *RetrievalService) Search(ctx context.Context, input SearchInput) ([]domain.SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Search", telemetry.SpanAttributes{
		UserID:    input.UserID,
		Operation: "search",
	})
	defer span.End()

	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	vec, err := s.client.GenerateEmbedding(ctx, input.Query)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeProvider, "embedding provider call failed", err)
	}

	filters := domain.SearchFilters{
		EntityTypes:           input.EntityTypes,
		UserID:                input.UserID,
		IncludeUserContent:    input.IncludeUserContent,
		IncludeGeneralContent: input.IncludeGeneralContent,
		Metadata:              input.Metadata,
	}

	results, err := s.repo.Search(ctx, vec, filters, limit, input.Threshold)
	if err != nil {
		span.SetError(err)
		return nil, wrapStorageError(err)
	}

	return results, nil
}

// CombinedSearchInput represents the multi-pool financial-knowledge query
type CombinedSearchInput struct {
	Query         string
	UserID        string
	PersonalLimit int
	GoalsLimit    int
	GeneralLimit  int
	// Category optionally narrows the general pool by metadata.
	Category string
	// PoolThreshold overrides the loose per-pool fetch threshold when > 0.
	PoolThreshold float64
}

// SearchAllFinancialKnowledge fans out over the personal-knowledge, personal-
// goals, and general-knowledge pools concurrently, then merges the results
// under a strict similarity gate and ranks them. A pool limit of zero skips
// that pool. Total latency is bounded by the slowest pool, not the sum.
func (s *RetrievalService) SearchAllFinancialKnowledge(ctx context.Context, input CombinedSearchInput) ([]domain.SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.SearchAllFinancialKnowledge", telemetry.SpanAttributes{
		UserID:    input.UserID,
		Operation: "search_combined",
	})
	defer span.End()

	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	// One embedding serves all three pools; the sub-queries differ only in
	// their filters.
	vec, err := s.client.GenerateEmbedding(ctx, input.Query)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeProvider, "embedding provider call failed", err)
	}

	poolThreshold := input.PoolThreshold
	if poolThreshold <= 0 {
		poolThreshold = combinedPoolThreshold
	}

	var personal, goals, general []domain.SearchResult

	g, gctx := errgroup.WithContext(ctx)

	if input.PersonalLimit > 0 {
		g.Go(func() error {
			res, err := s.repo.Search(gctx, vec, domain.SearchFilters{
				EntityTypes:        []domain.EntityType{domain.EntityTypePersonalKnowledge},
				UserID:             input.UserID,
				IncludeUserContent: true,
			}, input.PersonalLimit, poolThreshold)
			if err != nil {
				return err
			}
			personal = res
			return nil
		})
	}

	if input.GoalsLimit > 0 {
		g.Go(func() error {
			res, err := s.repo.Search(gctx, vec, domain.SearchFilters{
				EntityTypes:        []domain.EntityType{domain.EntityTypePersonalGoals},
				UserID:             input.UserID,
				IncludeUserContent: true,
			}, input.GoalsLimit, poolThreshold)
			if err != nil {
				return err
			}
			goals = res
			return nil
		})
	}

	if input.GeneralLimit > 0 {
		g.Go(func() error {
			filters := domain.SearchFilters{
				EntityTypes:           []domain.EntityType{domain.EntityTypeGeneralKnowledge},
				IncludeGeneralContent: true,
			}
			if input.Category != "" {
				filters.Metadata = map[string]string{"category": input.Category}
			}
			res, err := s.repo.Search(gctx, vec, filters, input.GeneralLimit, poolThreshold)
			if err != nil {
				return err
			}
			general = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.SetError(err)
		return nil, wrapStorageError(err)
	}

	// Strict merge gate: the per-pool threshold keeps candidates flowing,
	// this cut removes low-confidence cross-pool noise before presentation.
	merged := make([]domain.SearchResult, 0, len(personal)+len(goals)+len(general))
	for _, pool := range [][]domain.SearchResult{personal, goals, general} {
		for _, r := range pool {
			if r.Similarity > combinedMergeThreshold {
				merged = append(merged, r)
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})

	return merged, nil
}

// DeleteKnowledge removes all chunks derived from one parent entity, honoring
// the cascade contract of the parent entity's lifecycle.
func (s *RetrievalService) DeleteKnowledge(ctx context.Context, entityType domain.EntityType, entityID string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.DeleteKnowledge", telemetry.SpanAttributes{
		EntityType: string(entityType),
		EntityID:   entityID,
		Operation:  "delete",
	})
	defer span.End()

	if entityType == "" || entityID == "" {
		return 0, domain.ErrMissingRequiredField
	}

	deleted, err := s.repo.DeleteByEntity(ctx, entityType, entityID)
	if err != nil {
		span.SetError(err)
		return 0, wrapStorageError(err)
	}
	return deleted, nil
}

// Reset clears every stored chunk. Used for environment reset only.
func (s *RetrievalService) Reset(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return wrapStorageError(err)
	}
	return nil
}

func wrapStorageError(err error) error {
	var derr *domain.DomainError
	if errors.As(err, &derr) {
		return err
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "knowledge store operation failed", err)
}
