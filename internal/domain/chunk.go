package domain

import "time"

// EmbeddingDimensions is the fixed output dimensionality of the embedding
// provider. Chunks with a different dimensionality must never be stored or
// compared.
const EmbeddingDimensions = 1536

// EntityType identifies the knowledge pool a chunk belongs to. It is an open
// string type so callers can define additional pools.
type EntityType string

const (
	EntityTypePersonalKnowledge EntityType = "personal_knowledge"
	EntityTypePersonalGoals     EntityType = "personal_financial_goals"
	EntityTypeGeneralKnowledge  EntityType = "general_financial_knowledge"
)

// KnowledgeChunk is the atomic stored unit: one bounded text segment with its
// embedding. Chunks are immutable once stored; updates are represented as new
// chunks and deletion follows the parent entity's lifecycle.
type KnowledgeChunk struct {
	ID         string
	EntityType EntityType
	EntityID   string
	UserID     string // empty means globally visible (general knowledge)
	Content    string
	Embedding  []float32
	Metadata   map[string]any
	CreatedAt  time.Time
}

// ValidateChunk validates a KnowledgeChunk before it is persisted.
func ValidateChunk(c *KnowledgeChunk) error {
	if c == nil {
		return ErrMissingRequiredField
	}
	if c.ID == "" || c.EntityType == "" || c.EntityID == "" {
		return ErrMissingRequiredField
	}
	if c.Content == "" {
		return ErrEmptyContent
	}
	if len(c.Embedding) != EmbeddingDimensions {
		return ErrEmbeddingDimensions
	}
	return nil
}
