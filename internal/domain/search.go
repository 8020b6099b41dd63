package domain

// SearchResult is one ranked row returned by a similarity query. Similarity is
// 1 - cosine distance; higher is more relevant.
type SearchResult struct {
	Content    string
	Similarity float64
	EntityType EntityType
	EntityID   string
	UserID     string
	Metadata   map[string]any
}

// SearchFilters compose conjunctively: every populated predicate must hold.
type SearchFilters struct {
	// EntityTypes restricts rows to the given pools. Empty means all pools.
	EntityTypes []EntityType
	// UserID is the caller's identity for ownership checks.
	UserID string
	// IncludeUserContent admits rows owned by UserID.
	IncludeUserContent bool
	// IncludeGeneralContent admits rows with no owner.
	IncludeGeneralContent bool
	// Metadata requires exact value matches inside the row's metadata bag.
	Metadata map[string]string
}
