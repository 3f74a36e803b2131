package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/buchregal/buchregal-server/internal/service"
	"github.com/buchregal/buchregal-server/internal/store"
)

func (s *Server) registerMappingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "learnMapping",
		Method:      http.MethodPost,
		Path:        "/api/v1/mappings",
		Summary:     "Learn mapping",
		Description: "Stores a subject-to-genre mapping that overrides the predefined table",
		Tags:        []string{"Mappings"},
	}, s.handleLearnMapping)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMappings",
		Method:      http.MethodGet,
		Path:        "/api/v1/mappings",
		Summary:     "List mappings",
		Description: "Returns all learned mappings sorted by subject",
		Tags:        []string{"Mappings"},
	}, s.handleListMappings)

	huma.Register(s.api, huma.Operation{
		OperationID: "lookupMapping",
		Method:      http.MethodGet,
		Path:        "/api/v1/mappings/{subject}",
		Summary:     "Look up mapping",
		Description: "Resolves one subject through the learned tier, then the predefined table",
		Tags:        []string{"Mappings"},
	}, s.handleLookupMapping)

	huma.Register(s.api, huma.Operation{
		OperationID: "forgetMapping",
		Method:      http.MethodDelete,
		Path:        "/api/v1/mappings/{subject}",
		Summary:     "Forget mapping",
		Description: "Removes a learned mapping",
		Tags:        []string{"Mappings"},
	}, s.handleForgetMapping)
}

type LearnMappingInput struct {
	Body service.LearnRequest
}

func (s *Server) handleLearnMapping(ctx context.Context, input *LearnMappingInput) (*struct{}, error) {
	if err := s.services.Mapping.Learn(ctx, input.Body); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

type ListMappingsResponse struct {
	Mappings []store.MappingEntry `json:"mappings" doc:"Learned mappings sorted by subject"`
}

type ListMappingsOutput struct {
	Body ListMappingsResponse
}

func (s *Server) handleListMappings(ctx context.Context, _ *struct{}) (*ListMappingsOutput, error) {
	entries, err := s.services.Mapping.List(ctx)
	if err != nil {
		return nil, err
	}
	return &ListMappingsOutput{Body: ListMappingsResponse{Mappings: entries}}, nil
}

type MappingSubjectInput struct {
	Subject string `path:"subject" doc:"Subject string, normalized before lookup"`
}

type LookupMappingOutput struct {
	Body service.MappingLookup
}

func (s *Server) handleLookupMapping(ctx context.Context, input *MappingSubjectInput) (*LookupMappingOutput, error) {
	result, err := s.services.Mapping.Lookup(ctx, input.Subject)
	if err != nil {
		return nil, err
	}
	return &LookupMappingOutput{Body: *result}, nil
}

func (s *Server) handleForgetMapping(ctx context.Context, input *MappingSubjectInput) (*struct{}, error) {
	if err := s.services.Mapping.Forget(ctx, input.Subject); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}
