package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/buchregal/buchregal-server/internal/domain"
)

func (s *Server) registerClassifyRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "classifyBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/classify",
		Summary:     "Classify book metadata",
		Description: "Runs the local classification cascade without touching the cache or issuing lookups",
		Tags:        []string{"Classification"},
	}, s.handleClassify)
}

type ClassifyRequest struct {
	Subjects []string `json:"subjects,omitempty" doc:"Subject strings from the book metadata"`
	Title    string   `json:"title,omitempty" doc:"Book title"`
	Author   string   `json:"author,omitempty" doc:"Primary author"`
}

type ClassifyResponse struct {
	Genre      domain.Genre      `json:"genre" doc:"Resolved genre from the closed set"`
	Provenance domain.Provenance `json:"provenance" doc:"Which cascade tier decided"`
}

type ClassifyInput struct {
	Body ClassifyRequest
}

type ClassifyOutput struct {
	Body ClassifyResponse
}

func (s *Server) handleClassify(ctx context.Context, input *ClassifyInput) (*ClassifyOutput, error) {
	genre, provenance := s.engine.Classify(ctx, input.Body.Subjects, input.Body.Title, input.Body.Author)

	return &ClassifyOutput{Body: ClassifyResponse{
		Genre:      genre,
		Provenance: provenance,
	}}, nil
}
