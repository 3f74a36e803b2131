package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/buchregal/buchregal-server/internal/domain"
)

func (s *Server) registerGenreRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listGenres",
		Method:      http.MethodGet,
		Path:        "/api/v1/genres",
		Summary:     "List genres",
		Description: "Returns the closed genre set",
		Tags:        []string{"Genres"},
	}, s.handleListGenres)
}

type ListGenresResponse struct {
	Genres   []domain.Genre `json:"genres" doc:"The closed genre set"`
	Fallback domain.Genre   `json:"fallback" doc:"Genre assigned when nothing matches"`
}

type ListGenresOutput struct {
	Body ListGenresResponse
}

func (s *Server) handleListGenres(_ context.Context, _ *struct{}) (*ListGenresOutput, error) {
	return &ListGenresOutput{Body: ListGenresResponse{
		Genres:   domain.AllGenres,
		Fallback: domain.GenreSonstiges,
	}}, nil
}
