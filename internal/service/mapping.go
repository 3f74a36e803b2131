package service

import (
	"context"
	"log/slog"

	"github.com/buchregal/buchregal-server/internal/classify"
	"github.com/buchregal/buchregal-server/internal/domain"
	domainerrors "github.com/buchregal/buchregal-server/internal/errors"
	"github.com/buchregal/buchregal-server/internal/normalize"
	"github.com/buchregal/buchregal-server/internal/store"
	"github.com/buchregal/buchregal-server/internal/validation"
)

// LearnRequest is the validated input for learning a mapping.
type LearnRequest struct {
	Subject string `json:"subject" validate:"required,max=256"`
	Genre   string `json:"genre" validate:"required"`
}

// MappingLookup is the result of a two-tier mapping lookup.
type MappingLookup struct {
	Subject    string            `json:"subject"`
	Genre      domain.Genre      `json:"genre"`
	Provenance domain.Provenance `json:"provenance"`
	Found      bool              `json:"found"`
}

// MappingService manages the learned genre mapping tier.
type MappingService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewMappingService creates a mapping service.
func NewMappingService(st *store.Store, validator *validation.Validator, logger *slog.Logger) *MappingService {
	return &MappingService{
		store:     st,
		validator: validator,
		logger:    logger,
	}
}

// Learn persists a subject-to-genre association. The genre must be a
// member of the closed set; the subject is normalized before storage so
// future classifications hit it regardless of spelling variants.
func (s *MappingService) Learn(ctx context.Context, req LearnRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	genre, ok := domain.ParseGenre(req.Genre)
	if !ok {
		return domainerrors.Validationf("unknown genre %q", req.Genre)
	}

	if err := s.store.LearnMapping(ctx, req.Subject, genre); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodePersistence, "persist learned mapping")
	}
	return nil
}

// Lookup resolves a subject through the learned tier first, then the
// predefined table. The learned tier always wins.
func (s *MappingService) Lookup(ctx context.Context, subject string) (*MappingLookup, error) {
	key := normalize.SubjectKey(subject)
	result := &MappingLookup{Subject: key}

	genre, ok, err := s.store.UserMapping(ctx, key)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodePersistence, "read learned mapping")
	}
	if ok {
		result.Genre = genre
		result.Provenance = domain.ProvenanceUserMapping
		result.Found = true
		return result, nil
	}

	if genre, ok := classify.PredefinedMapping(key); ok {
		result.Genre = genre
		result.Provenance = domain.ProvenancePredefined
		result.Found = true
		return result, nil
	}

	result.Genre = domain.GenreSonstiges
	return result, nil
}

// List returns all learned mappings sorted by subject.
func (s *MappingService) List(ctx context.Context) ([]store.MappingEntry, error) {
	entries, err := s.store.ListMappings(ctx)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodePersistence, "list learned mappings")
	}
	return entries, nil
}

// Forget removes a learned mapping.
func (s *MappingService) Forget(ctx context.Context, subject string) error {
	if err := s.store.DeleteMapping(ctx, subject); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodePersistence, "delete learned mapping")
	}
	return nil
}
