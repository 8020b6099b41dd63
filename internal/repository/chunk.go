package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/fintor-ai/fintor/internal/domain"
)

// dbtx is the subset of pgx operations shared by pools and transactions.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ChunkRepository persists knowledge chunks and answers similarity queries.
type ChunkRepository struct {
	pool *pgxpool.Pool
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool}
}

// BulkInsert stores all chunks in one transaction. Any constraint violation
// rolls the whole batch back so no partial chunk sets are ever visible.
func (r *ChunkRepository) BulkInsert(ctx context.Context, chunks []domain.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if err := domain.ValidateChunk(&chunks[i]); err != nil {
			return err
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		if err := insertChunk(ctx, tx, c); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func insertChunk(ctx context.Context, db dbtx, c domain.KnowledgeChunk) error {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	metadata, err := marshalMetadata(c.Metadata)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx,
		`INSERT INTO knowledge_chunks
			(id, entity_type, entity_id, user_id, content, embedding, metadata, created_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7::jsonb, $8)`,
		c.ID,
		string(c.EntityType),
		c.EntityID,
		nullableString(c.UserID),
		c.Content,
		pgvector.NewVector(c.Embedding),
		metadata,
		createdAt,
	)
	return err
}

// Search runs an approximate-nearest-neighbor query ordered by cosine
// similarity descending. Only rows with similarity strictly above threshold
// are returned. Filters compose conjunctively.
func (r *ChunkRepository) Search(ctx context.Context, queryVec []float32, filters domain.SearchFilters, limit int, threshold float64) ([]domain.SearchResult, error) {
	// An ownership filter admitting neither user nor general content
	// excludes everything; skip the round trip.
	if !filters.IncludeUserContent && !filters.IncludeGeneralContent {
		return []domain.SearchResult{}, nil
	}

	vec := pgvector.NewVector(queryVec)

	q := psql.Select(
		"content",
		"entity_type",
		"entity_id",
		"user_id",
		"metadata",
	).
		Column(sq.Expr("1 - (embedding <=> ?) AS similarity", vec)).
		From("knowledge_chunks").
		Where(sq.Expr("1 - (embedding <=> ?) > ?", vec, threshold))

	if len(filters.EntityTypes) > 0 {
		types := make([]string, len(filters.EntityTypes))
		for i, t := range filters.EntityTypes {
			types[i] = string(t)
		}
		q = q.Where(sq.Eq{"entity_type": types})
	}

	switch {
	case filters.IncludeUserContent && filters.IncludeGeneralContent:
		q = q.Where(sq.Or{sq.Eq{"user_id": filters.UserID}, sq.Eq{"user_id": nil}})
	case filters.IncludeUserContent:
		q = q.Where(sq.Eq{"user_id": filters.UserID})
	case filters.IncludeGeneralContent:
		q = q.Where(sq.Eq{"user_id": nil})
	}

	if len(filters.Metadata) > 0 {
		doc, err := json.Marshal(filters.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata filter: %w", err)
		}
		q = q.Where(sq.Expr("metadata @> ?::jsonb", string(doc)))
	}

	// Ordering by raw cosine distance keeps the HNSW index usable; it is
	// equivalent to similarity descending.
	q = q.OrderByClause("embedding <=> ?", vec)

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build search query: %w", err)
	}

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSearchRows(rows)
}

// DeleteByEntity removes all chunks derived from one parent entity. Returns
// the number of chunks deleted.
func (r *ChunkRepository) DeleteByEntity(ctx context.Context, entityType domain.EntityType, entityID string) (int64, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM knowledge_chunks WHERE entity_type = $1 AND entity_id = $2`,
		string(entityType), entityID,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

// DeleteAll clears every stored chunk. Used for environment reset only.
func (r *ChunkRepository) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `TRUNCATE TABLE knowledge_chunks`)
	return err
}

func scanSearchRows(rows pgx.Rows) ([]domain.SearchResult, error) {
	results := make([]domain.SearchResult, 0)
	for rows.Next() {
		var res domain.SearchResult
		var entityType string
		var userID *string
		var metadata []byte
		if err := rows.Scan(&res.Content, &entityType, &res.EntityID, &userID, &metadata, &res.Similarity); err != nil {
			return nil, err
		}
		res.EntityType = domain.EntityType(entityType)
		if userID != nil {
			res.UserID = *userID
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &res.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode chunk metadata: %w", err)
			}
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode chunk metadata: %w", err)
	}
	return string(b), nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
