package api

import (
	"github.com/buchregal/buchregal-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Enrichment *service.EnrichmentService
	Mapping    *service.MappingService
}
