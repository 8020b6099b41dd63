//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintor-ai/fintor/internal/domain"
	"github.com/fintor-ai/fintor/internal/testutil"
)

// unitVector returns a 1536-dim unit vector along one axis. Axis-aligned unit
// vectors make cosine similarities exact: identical axes give 1, orthogonal
// axes give 0.
func unitVector(axis int) []float32 {
	v := make([]float32, domain.EmbeddingDimensions)
	v[axis] = 1
	return v
}

func newChunk(entityType domain.EntityType, entityID, userID, content string, embedding []float32) domain.KnowledgeChunk {
	return domain.KnowledgeChunk{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Content:    content,
		Embedding:  embedding,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestChunkRepositoryIntegration(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	truncate := func(t *testing.T) {
		t.Helper()
		require.NoError(t, testutil.TruncateAll(ctx, pool))
	}

	t.Run("round-trips a chunk with self-similarity one", func(t *testing.T) {
		truncate(t)

		chunk := newChunk(domain.EntityTypePersonalKnowledge, "entity-1", "user-1", "saves 200 a month", unitVector(0))
		require.NoError(t, repo.BulkInsert(ctx, []domain.KnowledgeChunk{chunk}))

		results, err := repo.Search(ctx, unitVector(0), domain.SearchFilters{
			UserID:             "user-1",
			IncludeUserContent: true,
		}, 10, 0.5)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "saves 200 a month", results[0].Content)
		assert.Equal(t, domain.EntityTypePersonalKnowledge, results[0].EntityType)
		assert.Equal(t, "entity-1", results[0].EntityID)
		assert.Equal(t, "user-1", results[0].UserID)
		assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	})

	t.Run("threshold is strict: similarity equal to it is excluded", func(t *testing.T) {
		truncate(t)

		// Orthogonal vectors have similarity exactly zero.
		chunk := newChunk(domain.EntityTypePersonalKnowledge, "entity-1", "user-1", "unrelated note", unitVector(1))
		require.NoError(t, repo.BulkInsert(ctx, []domain.KnowledgeChunk{chunk}))

		results, err := repo.Search(ctx, unitVector(0), domain.SearchFilters{
			UserID:             "user-1",
			IncludeUserContent: true,
		}, 10, 0)

		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("orders results by similarity descending and honors the limit", func(t *testing.T) {
		truncate(t)

		// cos(query, near) = 0.8, cos(query, far) = 0.6 by construction.
		query := unitVector(0)
		near := make([]float32, domain.EmbeddingDimensions)
		near[0], near[1] = 0.8, 0.6
		far := make([]float32, domain.EmbeddingDimensions)
		far[0], far[1] = 0.6, 0.8

		require.NoError(t, repo.BulkInsert(ctx, []domain.KnowledgeChunk{
			newChunk(domain.EntityTypePersonalKnowledge, "e1", "user-1", "far note", far),
			newChunk(domain.EntityTypePersonalKnowledge, "e2", "user-1", "close note", near),
			newChunk(domain.EntityTypePersonalKnowledge, "e3", "user-1", "exact note", query),
		}))

		results, err := repo.Search(ctx, query, domain.SearchFilters{
			UserID:             "user-1",
			IncludeUserContent: true,
		}, 2, 0.5)

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "exact note", results[0].Content)
		assert.Equal(t, "close note", results[1].Content)
		assert.Greater(t, results[0].Similarity, results[1].Similarity)
	})

	t.Run("ownership filters scope user and global content", func(t *testing.T) {
		truncate(t)

		require.NoError(t, repo.BulkInsert(ctx, []domain.KnowledgeChunk{
			newChunk(domain.EntityTypePersonalKnowledge, "e1", "user-1", "mine", unitVector(0)),
			newChunk(domain.EntityTypePersonalKnowledge, "e2", "user-2", "someone else's", unitVector(0)),
			newChunk(domain.EntityTypeGeneralKnowledge, "e3", "", "global fact", unitVector(0)),
		}))

		both, err := repo.Search(ctx, unitVector(0), domain.SearchFilters{
			UserID:                "user-1",
			IncludeUserContent:    true,
			IncludeGeneralContent: true,
		}, 10, 0.5)
		require.NoError(t, err)
		assert.Len(t, both, 2)

		userOnly, err := repo.Search(ctx, unitVector(0), domain.SearchFilters{
			UserID:             "user-1",
			IncludeUserContent: true,
		}, 10, 0.5)
		require.NoError(t, err)
		require.Len(t, userOnly, 1)
		assert.Equal(t, "mine", userOnly[0].Content)

		generalOnly, err := repo.Search(ctx, unitVector(0), domain.SearchFilters{
			IncludeGeneralContent: true,
		}, 10, 0.5)
		require.NoError(t, err)
		require.Len(t, generalOnly, 1)
		assert.Equal(t, "global fact", generalOnly[0].Content)

		neither, err := repo.Search(ctx, unitVector(0), domain.SearchFilters{
			UserID: "user-1",
		}, 10, 0.5)
		require.NoError(t, err)
		assert.Empty(t, neither)
	})

	t.Run("filters by entity type", func(t *testing.T) {
		truncate(t)

		require.NoError(t, repo.BulkInsert(ctx, []domain.KnowledgeChunk{
			newChunk(domain.EntityTypePersonalKnowledge, "e1", "user-1", "knowledge", unitVector(0)),
			newChunk(domain.EntityTypePersonalGoals, "e2", "user-1", "goal", unitVector(0)),
		}))

		results, err := repo.Search(ctx, unitVector(0), domain.SearchFilters{
			EntityTypes:        []domain.EntityType{domain.EntityTypePersonalGoals},
			UserID:             "user-1",
			IncludeUserContent: true,
		}, 10, 0.5)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "goal", results[0].Content)
	})

	t.Run("filters by metadata containment", func(t *testing.T) {
		truncate(t)

		tagged := newChunk(domain.EntityTypeGeneralKnowledge, "e1", "", "tax deduction rule", unitVector(0))
		tagged.Metadata = map[string]any{"category": "taxes"}
		untagged := newChunk(domain.EntityTypeGeneralKnowledge, "e2", "", "savings rule", unitVector(0))

		require.NoError(t, repo.BulkInsert(ctx, []domain.KnowledgeChunk{tagged, untagged}))

		results, err := repo.Search(ctx, unitVector(0), domain.SearchFilters{
			IncludeGeneralContent: true,
			Metadata:              map[string]string{"category": "taxes"},
		}, 10, 0.5)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "tax deduction rule", results[0].Content)
		assert.Equal(t, "taxes", results[0].Metadata["category"])
	})

	t.Run("bulk insert is atomic", func(t *testing.T) {
		truncate(t)

		valid := newChunk(domain.EntityTypePersonalKnowledge, "e1", "user-1", "valid", unitVector(0))
		invalid := newChunk(domain.EntityTypePersonalKnowledge, "e2", "user-1", "", unitVector(0))

		err := repo.BulkInsert(ctx, []domain.KnowledgeChunk{valid, invalid})
		require.Error(t, err)

		results, searchErr := repo.Search(ctx, unitVector(0), domain.SearchFilters{
			UserID:             "user-1",
			IncludeUserContent: true,
		}, 10, 0)
		require.NoError(t, searchErr)
		assert.Empty(t, results)
	})

	t.Run("deletes all chunks of one entity", func(t *testing.T) {
		truncate(t)

		require.NoError(t, repo.BulkInsert(ctx, []domain.KnowledgeChunk{
			newChunk(domain.EntityTypePersonalGoals, "goal-1", "user-1", "chunk one", unitVector(0)),
			newChunk(domain.EntityTypePersonalGoals, "goal-1", "user-1", "chunk two", unitVector(1)),
			newChunk(domain.EntityTypePersonalGoals, "goal-2", "user-1", "other goal", unitVector(0)),
		}))

		deleted, err := repo.DeleteByEntity(ctx, domain.EntityTypePersonalGoals, "goal-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		remaining, err := repo.Search(ctx, unitVector(0), domain.SearchFilters{
			UserID:             "user-1",
			IncludeUserContent: true,
		}, 10, 0.5)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, "other goal", remaining[0].Content)
	})

	t.Run("delete all clears the store", func(t *testing.T) {
		truncate(t)

		require.NoError(t, repo.BulkInsert(ctx, []domain.KnowledgeChunk{
			newChunk(domain.EntityTypePersonalKnowledge, "e1", "user-1", "anything", unitVector(0)),
		}))

		require.NoError(t, repo.DeleteAll(ctx))

		results, err := repo.Search(ctx, unitVector(0), domain.SearchFilters{
			UserID:             "user-1",
			IncludeUserContent: true,
		}, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
