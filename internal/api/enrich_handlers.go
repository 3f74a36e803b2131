package api

import (
	"context"
	"encoding/json/v2"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2"

	"github.com/buchregal/buchregal-server/internal/domain"
	domainerrors "github.com/buchregal/buchregal-server/internal/errors"
	"github.com/buchregal/buchregal-server/internal/epub"
	"github.com/buchregal/buchregal-server/internal/service"
)

func (s *Server) registerEnrichRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "enrichBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/enrich",
		Summary:     "Enrich one book",
		Description: "Runs the full pipeline for one book: cache, cascade, at most one lookup, persist",
		Tags:        []string{"Enrichment"},
	}, s.handleEnrichBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "enrichBatch",
		Method:      http.MethodPost,
		Path:        "/api/v1/enrich/batch",
		Summary:     "Enrich a directory of ebooks",
		Description: "Scans a directory for EPUB files, enriches each and returns the batch report",
		Tags:        []string{"Enrichment"},
	}, s.handleEnrichBatch)
}

type EnrichRequest struct {
	Title    string   `json:"title,omitempty" doc:"Book title"`
	Authors  []string `json:"authors,omitempty" doc:"Authors, primary first"`
	ISBN10   string   `json:"isbn_10,omitempty" doc:"ISBN-10 identifier"`
	ISBN13   string   `json:"isbn_13,omitempty" doc:"ISBN-13 identifier"`
	Subjects []string `json:"subjects,omitempty" doc:"Subject strings from the book metadata"`
}

type EnrichInput struct {
	Body EnrichRequest
}

type EnrichOutput struct {
	Body domain.EnrichedMetadata
}

func (s *Server) handleEnrichBook(ctx context.Context, input *EnrichInput) (*EnrichOutput, error) {
	entry, err := s.services.Enrichment.EnrichOne(ctx, &domain.BookMetadata{
		Title:    input.Body.Title,
		Authors:  input.Body.Authors,
		ISBN10:   input.Body.ISBN10,
		ISBN13:   input.Body.ISBN13,
		Subjects: input.Body.Subjects,
	})
	if err != nil {
		return nil, err
	}

	return &EnrichOutput{Body: *entry}, nil
}

type EnrichBatchRequest struct {
	SourceDir string `json:"source_dir" validate:"required" doc:"Directory to scan for EPUB files"`
	MaxBooks  int    `json:"max_books,omitempty" doc:"Cap on processed books, 0 means all"`
	DryRun    bool   `json:"dry_run,omitempty" doc:"Classify and report without persisting"`
	Output    string `json:"output,omitempty" doc:"Optional path to write the report as JSON"`
}

type EnrichBatchInput struct {
	Body EnrichBatchRequest
}

type EnrichBatchResponse struct {
	Report       *service.BatchReport `json:"report" doc:"Aggregated batch outcome"`
	SkippedFiles []string             `json:"skipped_files,omitempty" doc:"Files that could not be read"`
}

type EnrichBatchOutput struct {
	Body EnrichBatchResponse
}

func (s *Server) handleEnrichBatch(ctx context.Context, input *EnrichBatchInput) (*EnrichBatchOutput, error) {
	if input.Body.SourceDir == "" {
		return nil, domainerrors.Validation("source_dir is required")
	}

	paths, err := epub.ScanDir(input.Body.SourceDir, 0)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidation, "scan source directory")
	}

	var (
		metas   []*domain.BookMetadata
		skipped []string
	)
	for _, path := range paths {
		meta, err := epub.ExtractMetadata(path)
		if err != nil {
			s.logger.Warn("skipping unreadable ebook", "path", path, "error", err)
			skipped = append(skipped, path)
			continue
		}
		metas = append(metas, meta)
	}

	report, err := s.services.Enrichment.EnrichBatch(ctx, metas, service.BatchOptions{
		MaxBooks: input.Body.MaxBooks,
		DryRun:   input.Body.DryRun,
	})
	if err != nil {
		return nil, err
	}

	if input.Body.Output != "" {
		if err := writeReport(input.Body.Output, report); err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "write report file")
		}
	}

	return &EnrichBatchOutput{Body: EnrichBatchResponse{
		Report:       report,
		SkippedFiles: skipped,
	}}, nil
}

func writeReport(path string, report *service.BatchReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.MarshalWrite(f, report)
}
