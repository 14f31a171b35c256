package services

import (
	"context"
	"math"
	"sort"

	"lms-video-platform/internal/config"
	"lms-video-platform/models"
	"lms-video-platform/utils"
)

// Embedder produces fixed-length vectors for transcript text and queries.
// internal/ai provides the production implementation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchService ranks a video's embedded segments against a query by cosine
// similarity. Segments without an embedding are simply excluded from
// ranking; they never fail the query.
type SearchService struct {
	segments     SegmentStore
	embedder     Embedder
	defaultLimit int
	maxLimit     int
}

func NewSearchService(segments SegmentStore, embedder Embedder, cfg *config.Config) *SearchService {
	return &SearchService{
		segments:     segments,
		embedder:     embedder,
		defaultLimit: cfg.SearchDefaultLimit,
		maxLimit:     cfg.SearchMaxLimit,
	}
}

// Search embeds the query and returns the top-K most similar segments.
// Zero embedded segments is a valid empty result set, not an error.
func (s *SearchService) Search(ctx context.Context, videoID, query string, limit int) (*models.SearchResponse, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	dbCtx, cancel := utils.WithTimeout(ctx)
	defer cancel()
	candidates, err := s.segments.ListEmbedded(dbCtx, videoID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &models.SearchResponse{Results: []models.SearchResult{}, TotalResults: 0}, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(candidates))
	for _, seg := range candidates {
		results = append(results, models.SearchResult{
			ID:         seg.ID.Hex(),
			Text:       seg.Text,
			StartTime:  seg.StartTime,
			EndTime:    seg.EndTime,
			Similarity: CosineSimilarity(queryVec, seg.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if limit < len(results) {
		results = results[:limit]
	}

	return &models.SearchResponse{Results: results, TotalResults: len(results)}, nil
}

// CosineSimilarity computes dot(a,b) / (|a|·|b|), defined as 0 when either
// vector has zero norm or the lengths differ. It never panics on degenerate
// input.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
