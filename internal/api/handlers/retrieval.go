package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fintor-ai/fintor/internal/api"
	"github.com/fintor-ai/fintor/internal/domain"
	"github.com/fintor-ai/fintor/internal/service"
	"github.com/fintor-ai/fintor/internal/telemetry"
)

// Placeholder texts returned on the query path so chat callers can always
// render a uniform message. This is a UX convention, not a retrieval
// guarantee: the core reports empty results and errors honestly, and this
// adapter converts both into a single similarity-zero record.
const (
	noResultsContent   = "No relevant information was found for your question."
	searchErrorContent = "Something went wrong while searching the knowledge base. Please try again."
)

// RetrievalService defines the service interface consumed by the handler
type RetrievalService interface {
	AddKnowledge(ctx context.Context, input service.AddKnowledgeInput) (*service.AddKnowledgeOutput, error)
	Search(ctx context.Context, input service.SearchInput) ([]domain.SearchResult, error)
	SearchAllFinancialKnowledge(ctx context.Context, input service.CombinedSearchInput) ([]domain.SearchResult, error)
	DeleteKnowledge(ctx context.Context, entityType domain.EntityType, entityID string) (int64, error)
}

// UUIDGenerator mints resource ids for ingests that do not supply one
type UUIDGenerator interface {
	NewString() string
}

type RetrievalHandler struct {
	svc     RetrievalService
	uuidGen UUIDGenerator
}

func NewRetrievalHandler(svc RetrievalService, uuidGen UUIDGenerator) *RetrievalHandler {
	return &RetrievalHandler{svc: svc, uuidGen: uuidGen}
}

type AddKnowledgeRequest struct {
	Content    string         `json:"content"`
	UserID     string         `json:"user_id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Metadata   map[string]any `json:"metadata"`
}

type AddKnowledgeResponse struct {
	ResourceID      string `json:"resource_id"`
	EmbeddingsCount int    `json:"embeddings_count"`
}

// AddKnowledge ingests a piece of knowledge. Unlike the search path, ingest
// failures always surface as HTTP errors: silently losing submitted knowledge
// is unacceptable.
func (h *RetrievalHandler) AddKnowledge(w http.ResponseWriter, r *http.Request) {
	var req AddKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	entityType := domain.EntityType(req.EntityType)
	if entityType == "" {
		entityType = domain.EntityTypePersonalKnowledge
	}

	entityID := req.EntityID
	if entityID == "" {
		entityID = h.uuidGen.NewString()
	}

	out, err := h.svc.AddKnowledge(r.Context(), service.AddKnowledgeInput{
		EntityType: entityType,
		EntityID:   entityID,
		Content:    req.Content,
		UserID:     req.UserID,
		Metadata:   req.Metadata,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, AddKnowledgeResponse{
		ResourceID:      entityID,
		EmbeddingsCount: out.EmbeddingsCount,
	})
}

type SearchRequest struct {
	Query       string            `json:"query"`
	UserID      string            `json:"user_id"`
	EntityTypes []string          `json:"entity_types"`
	Metadata    map[string]string `json:"metadata"`
	Limit       int               `json:"limit"`
	Threshold   *float64          `json:"threshold"`
}

type SearchResultResponse struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// Search answers a single-pool relevance query. The response always contains
// at least one record: empty result sets and internal failures both degrade
// to a similarity-zero placeholder so the chat flow upstream never branches
// on emptiness or aborts on retrieval errors.
func (h *RetrievalHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	threshold := service.DefaultSearchThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	entityTypes := make([]domain.EntityType, 0, len(req.EntityTypes))
	for _, t := range req.EntityTypes {
		entityTypes = append(entityTypes, domain.EntityType(t))
	}

	results, err := h.svc.Search(r.Context(), service.SearchInput{
		Query:                 req.Query,
		EntityTypes:           entityTypes,
		UserID:                req.UserID,
		IncludeUserContent:    req.UserID != "",
		IncludeGeneralContent: true,
		Metadata:              req.Metadata,
		Limit:                 req.Limit,
		Threshold:             threshold,
	})
	if err != nil {
		log.Printf("search failed: %v", err)
		telemetry.CaptureError(r.Context(), err)
		api.Success(w, http.StatusOK, []SearchResultResponse{{Content: searchErrorContent, Similarity: 0}})
		return
	}

	api.Success(w, http.StatusOK, resultsToResponse(results))
}

type FinancialSearchRequest struct {
	Query         string `json:"query"`
	UserID        string `json:"user_id"`
	PersonalLimit *int   `json:"personal_limit"`
	GoalsLimit    *int   `json:"goals_limit"`
	GeneralLimit  *int   `json:"general_limit"`
	Category      string `json:"category"`
}

// Default per-pool limits for the combined financial-knowledge query.
const (
	defaultPersonalLimit = 5
	defaultGoalsLimit    = 3
	defaultGeneralLimit  = 5
)

// SearchFinancial runs the multi-pool combined query. An explicit limit of
// zero skips that pool entirely; omitted limits fall back to defaults.
func (h *RetrievalHandler) SearchFinancial(w http.ResponseWriter, r *http.Request) {
	var req FinancialSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.UserID == "" {
		api.Error(w, http.StatusBadRequest, "user_id is required")
		return
	}

	results, err := h.svc.SearchAllFinancialKnowledge(r.Context(), service.CombinedSearchInput{
		Query:         req.Query,
		UserID:        req.UserID,
		PersonalLimit: limitOrDefault(req.PersonalLimit, defaultPersonalLimit),
		GoalsLimit:    limitOrDefault(req.GoalsLimit, defaultGoalsLimit),
		GeneralLimit:  limitOrDefault(req.GeneralLimit, defaultGeneralLimit),
		Category:      req.Category,
	})
	if err != nil {
		log.Printf("financial search failed: %v", err)
		telemetry.CaptureError(r.Context(), err)
		api.Success(w, http.StatusOK, []SearchResultResponse{{Content: searchErrorContent, Similarity: 0}})
		return
	}

	api.Success(w, http.StatusOK, resultsToResponse(results))
}

type DeleteKnowledgeResponse struct {
	Deleted int64 `json:"deleted"`
}

// DeleteKnowledge cascades the removal of a parent entity onto its chunks.
func (h *RetrievalHandler) DeleteKnowledge(w http.ResponseWriter, r *http.Request) {
	entityType := domain.EntityType(chi.URLParam(r, "entityType"))
	entityID := chi.URLParam(r, "entityID")

	if entityType == "" || entityID == "" {
		api.Error(w, http.StatusBadRequest, "entity type and id are required")
		return
	}

	deleted, err := h.svc.DeleteKnowledge(r.Context(), entityType, entityID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DeleteKnowledgeResponse{Deleted: deleted})
}

func resultsToResponse(results []domain.SearchResult) []SearchResultResponse {
	if len(results) == 0 {
		return []SearchResultResponse{{Content: noResultsContent, Similarity: 0}}
	}
	out := make([]SearchResultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, SearchResultResponse{Content: res.Content, Similarity: res.Similarity})
	}
	return out
}

func limitOrDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	if *v < 0 {
		return 0
	}
	return *v
}
