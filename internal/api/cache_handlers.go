package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/buchregal/buchregal-server/internal/domain"
)

func (s *Server) registerCacheRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCacheEntry",
		Method:      http.MethodGet,
		Path:        "/api/v1/cache/{id}",
		Summary:     "Get cache entry",
		Description: "Returns the cached enrichment for a book identity",
		Tags:        []string{"Cache"},
	}, s.handleGetCacheEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCacheEntry",
		Method:      http.MethodDelete,
		Path:        "/api/v1/cache/{id}",
		Summary:     "Delete cache entry",
		Description: "Removes a cached enrichment so the next run re-enriches the book",
		Tags:        []string{"Cache"},
	}, s.handleDeleteCacheEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "reclassifyCacheEntry",
		Method:      http.MethodPost,
		Path:        "/api/v1/cache/{id}/reclassify",
		Summary:     "Reclassify cache entry",
		Description: "Drops the cached verdict and runs enrichment again over the stored metadata",
		Tags:        []string{"Cache"},
	}, s.handleReclassifyCacheEntry)
}

type CacheEntryInput struct {
	ID string `path:"id" doc:"Book identity, isbn: or title_author: key"`
}

type CacheEntryOutput struct {
	Body domain.EnrichedMetadata
}

func (s *Server) handleGetCacheEntry(ctx context.Context, input *CacheEntryInput) (*CacheEntryOutput, error) {
	entry, err := s.services.Enrichment.CacheEntry(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &CacheEntryOutput{Body: *entry}, nil
}

func (s *Server) handleDeleteCacheEntry(ctx context.Context, input *CacheEntryInput) (*struct{}, error) {
	if err := s.services.Enrichment.DeleteCacheEntry(ctx, input.ID); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (s *Server) handleReclassifyCacheEntry(ctx context.Context, input *CacheEntryInput) (*CacheEntryOutput, error) {
	entry, err := s.services.Enrichment.Reclassify(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &CacheEntryOutput{Body: *entry}, nil
}
