// Package service contains the orchestration layer: enrichment of book
// metadata through cache, classification cascade and external lookup,
// and the learning workflow for genre mappings.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/buchregal/buchregal-server/internal/classify"
	"github.com/buchregal/buchregal-server/internal/domain"
	domainerrors "github.com/buchregal/buchregal-server/internal/errors"
	"github.com/buchregal/buchregal-server/internal/id"
	"github.com/buchregal/buchregal-server/internal/metadata/googlebooks"
	"github.com/buchregal/buchregal-server/internal/normalize"
	"github.com/buchregal/buchregal-server/internal/store"
)

// sourceGoogleBooks marks entries whose deciding subjects came from the
// Books API.
const sourceGoogleBooks = "googlebooks"

// LookupClient is the external metadata boundary.
type LookupClient interface {
	Search(ctx context.Context, key googlebooks.SearchKey) (*googlebooks.Volume, error)
}

// EnrichmentService orchestrates cache, cascade and lookup for books.
//
// The quota flag is run-scoped: once the Books API signals exhaustion,
// or the configured lookup budget is spent, every remaining book in the
// process classifies locally.
type EnrichmentService struct {
	store  *store.Store
	engine *classify.Engine
	lookup LookupClient
	logger *slog.Logger

	mu             sync.Mutex
	maxLookups     int
	lookupsIssued  int
	quotaExhausted bool
}

// NewEnrichmentService creates the orchestrator. maxLookups caps lookups
// per run; 0 disables external lookups entirely. lookup may be nil, which
// also disables them.
func NewEnrichmentService(st *store.Store, engine *classify.Engine, lookup LookupClient, maxLookups int, logger *slog.Logger) *EnrichmentService {
	return &EnrichmentService{
		store:      st,
		engine:     engine,
		lookup:     lookup,
		logger:     logger,
		maxLookups: maxLookups,
	}
}

// BatchOptions controls a batch run.
type BatchOptions struct {
	// MaxBooks caps how many books are processed; 0 means all.
	MaxBooks int
	// DryRun classifies and reports without persisting.
	DryRun bool
}

// BatchReport aggregates the outcome of a batch run.
type BatchReport struct {
	RunID           string                    `json:"run_id"`
	Total           int                       `json:"total"`
	CacheHits       int                       `json:"cache_hits"`
	CacheMisses     int                       `json:"cache_misses"`
	LookupsIssued   int                       `json:"lookups_issued"`
	LookupFailures  int                       `json:"lookup_failures"`
	CalibreIgnored  int                       `json:"calibre_ignored"`
	QuotaExhausted  bool                      `json:"quota_exhausted"`
	DryRun          bool                      `json:"dry_run,omitempty"`
	ByProvenance    map[domain.Provenance]int `json:"by_provenance"`
	ByGenre         map[domain.Genre]int      `json:"by_genre"`
	UnknownSubjects []string                  `json:"unknown_subjects,omitempty"`
	StartedAt       time.Time                 `json:"started_at"`
	Duration        time.Duration             `json:"duration,format:units"`
}

// outcome carries per-book bookkeeping from enrichOne to the report.
type outcome struct {
	cacheHit     bool
	lookupIssued bool
	lookupFailed bool
	calibre      bool
}

// EnrichOne classifies a single book and persists the result.
func (s *EnrichmentService) EnrichOne(ctx context.Context, meta *domain.BookMetadata) (*domain.EnrichedMetadata, error) {
	entry, _, err := s.enrichOne(ctx, meta, false)
	return entry, err
}

// enrichOne runs the full per-book pipeline: cache check, local cascade,
// at most one lookup, persist.
func (s *EnrichmentService) enrichOne(ctx context.Context, meta *domain.BookMetadata, dryRun bool) (*domain.EnrichedMetadata, outcome, error) {
	var out outcome
	if meta.Title == "" && meta.ISBN() == "" {
		return nil, out, domainerrors.Validation("book needs a title or a usable ISBN")
	}
	out.calibre = meta.HasCalibreISBN()

	bookID := domain.Identity(meta)

	cached, err := s.store.GetEnriched(ctx, bookID)
	switch {
	case err == nil && cached.Settled():
		// The dominant path: a settled entry answers without any work.
		out.cacheHit = true
		return cached, out, nil
	case err == nil:
		// Fallback entry. Cached subjects mean the lookup already
		// happened; reclassify locally in case mappings were learned
		// since. Without subjects the book may earn one more lookup.
		out.cacheHit = true
		if len(cached.Subjects) > 0 {
			meta = &domain.BookMetadata{
				Title:    cached.Title,
				Authors:  cached.Authors,
				ISBN13:   cached.ISBN,
				Subjects: cached.Subjects,
			}
			entry, err := s.classifyLocal(ctx, bookID, meta, cached.Source, dryRun)
			return entry, out, err
		}
	case err != store.ErrNotFound:
		return nil, out, domainerrors.Wrap(err, domainerrors.CodePersistence, "read cache entry")
	}

	genre, provenance := s.engine.Classify(ctx, meta.Subjects, meta.Title, meta.FirstAuthor())
	subjects := meta.Subjects
	source := ""

	// Only books with no usable subjects earn a lookup, and only while
	// the run still has budget.
	if s.engine.NeedsLookup(meta.Subjects) && s.acquireLookup() {
		out.lookupIssued = true

		volume, err := s.lookup.Search(ctx, s.searchKey(meta))
		switch {
		case err == nil && len(volume.Categories) > 0:
			subjects = volume.Categories
			source = sourceGoogleBooks
			genre, provenance = s.engine.Classify(ctx, subjects, meta.Title, meta.FirstAuthor())
			// The deciding subjects came from the API; local match
			// provenance is upgraded, user confirmations are not.
			if provenance != domain.ProvenanceUserMapping && provenance != domain.ProvenanceFallback {
				provenance = domain.ProvenanceAPI
			}
		case err == nil:
			// A hit without categories decides nothing.
			s.logger.Debug("lookup returned no categories", "book", bookID)
		case domainerrors.Is(err, context.Canceled) || domainerrors.Is(err, context.DeadlineExceeded):
			return nil, out, err
		case domainerrors.Is(err, googlebooks.ErrNotFound):
			// No match is an ordinary outcome, not a failure.
			s.logger.Debug("lookup found no volume", "book", bookID)
		case errIsQuota(err):
			s.exhaustQuota()
			s.logger.Warn("lookup quota exhausted, remaining books classify locally", "book", bookID)
		default:
			out.lookupFailed = true
			s.logger.Warn("lookup failed, falling back to local classification",
				"book", bookID,
				"error", err,
			)
		}
	}

	now := time.Now().UTC()
	entry := &domain.EnrichedMetadata{
		ID:         bookID,
		Title:      meta.Title,
		Authors:    meta.Authors,
		ISBN:       meta.ISBN(),
		Genre:      genre,
		Provenance: provenance,
		Subjects:   subjects,
		Source:     source,
		FetchedAt:  now,
	}

	if !dryRun {
		if err := s.store.PutEnriched(ctx, entry); err != nil {
			return nil, out, domainerrors.Wrap(err, domainerrors.CodePersistence, "persist cache entry")
		}
	}

	return entry, out, nil
}

// classifyLocal re-runs the cascade over already-known subjects and
// updates the entry when the verdict changed.
func (s *EnrichmentService) classifyLocal(ctx context.Context, bookID string, meta *domain.BookMetadata, source string, dryRun bool) (*domain.EnrichedMetadata, error) {
	genre, provenance := s.engine.Classify(ctx, meta.Subjects, meta.Title, meta.FirstAuthor())

	entry := &domain.EnrichedMetadata{
		ID:         bookID,
		Title:      meta.Title,
		Authors:    meta.Authors,
		ISBN:       meta.ISBN(),
		Genre:      genre,
		Provenance: provenance,
		Subjects:   meta.Subjects,
		Source:     source,
		FetchedAt:  time.Now().UTC(),
	}

	if !dryRun {
		if err := s.store.PutEnriched(ctx, entry); err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodePersistence, "persist cache entry")
		}
	}
	return entry, nil
}

// searchKey builds the lookup key, preferring a clean ISBN over the
// normalized title/author pair.
func (s *EnrichmentService) searchKey(meta *domain.BookMetadata) googlebooks.SearchKey {
	if isbn := meta.ISBN(); isbn != "" {
		return googlebooks.SearchKey{ISBN: isbn}
	}
	return googlebooks.SearchKey{
		Title:  normalize.SearchTitle(meta.Title),
		Author: normalize.Author(meta.FirstAuthor()),
	}
}

// acquireLookup reserves one lookup from the run budget.
func (s *EnrichmentService) acquireLookup() bool {
	if s.lookup == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quotaExhausted || s.maxLookups <= 0 || s.lookupsIssued >= s.maxLookups {
		return false
	}
	s.lookupsIssued++
	return true
}

func (s *EnrichmentService) exhaustQuota() {
	s.mu.Lock()
	s.quotaExhausted = true
	s.mu.Unlock()
}

// QuotaExhausted reports whether the run has stopped issuing lookups.
func (s *EnrichmentService) QuotaExhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quotaExhausted || s.maxLookups <= 0 || s.lookupsIssued >= s.maxLookups
}

func errIsQuota(err error) bool {
	return domainerrors.Is(err, googlebooks.ErrQuotaExceeded) || domainerrors.Is(err, googlebooks.ErrRateLimited)
}

// EnrichBatch processes the books sequentially and aggregates a report.
// Lookup failures never abort the batch; persistence failures do.
func (s *EnrichmentService) EnrichBatch(ctx context.Context, metas []*domain.BookMetadata, opts BatchOptions) (*BatchReport, error) {
	runID, err := id.Generate("run")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate run id")
	}

	report := &BatchReport{
		RunID:        runID,
		DryRun:       opts.DryRun,
		ByProvenance: make(map[domain.Provenance]int),
		ByGenre:      make(map[domain.Genre]int),
		StartedAt:    time.Now().UTC(),
	}

	if opts.MaxBooks > 0 && len(metas) > opts.MaxBooks {
		metas = metas[:opts.MaxBooks]
	}

	s.logger.Info("batch enrichment started",
		"run", runID,
		"books", len(metas),
		"dry_run", opts.DryRun,
	)

	for _, meta := range metas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, out, err := s.enrichOne(ctx, meta, opts.DryRun)
		if err != nil {
			if domainerrors.Is(err, domainerrors.ErrValidation) {
				s.logger.Warn("skipping book without usable identity", "title", meta.Title)
				continue
			}
			// Persistence and context errors are fatal to the run.
			return nil, err
		}

		report.Total++
		if out.cacheHit {
			report.CacheHits++
		} else {
			report.CacheMisses++
		}
		if out.lookupIssued {
			report.LookupsIssued++
		}
		if out.lookupFailed {
			report.LookupFailures++
		}
		if out.calibre {
			report.CalibreIgnored++
		}
		report.ByProvenance[entry.Provenance]++
		report.ByGenre[entry.Genre]++
	}

	report.QuotaExhausted = s.QuotaExhausted()
	report.UnknownSubjects = s.engine.DrainUnknown()
	report.Duration = time.Since(report.StartedAt)

	s.logger.Info("batch enrichment finished",
		"run", runID,
		"books", report.Total,
		"cache_hits", report.CacheHits,
		"lookups", report.LookupsIssued,
		"duration", report.Duration,
	)

	return report, nil
}

// Reclassify drops the cache entry and runs enrichment again, so learned
// mappings and fresh lookups can override an old verdict.
func (s *EnrichmentService) Reclassify(ctx context.Context, bookID string) (*domain.EnrichedMetadata, error) {
	cached, err := s.store.GetEnriched(ctx, bookID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, domainerrors.NotFoundf("no cache entry for %s", bookID)
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodePersistence, "read cache entry")
	}

	if err := s.store.DeleteEnriched(ctx, bookID); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodePersistence, "delete cache entry")
	}

	// The stored ISBN keeps the identity stable: without it the rebuilt
	// book would re-key under title_author.
	meta := &domain.BookMetadata{
		Title:    cached.Title,
		Authors:  cached.Authors,
		ISBN13:   cached.ISBN,
		Subjects: cached.Subjects,
	}
	return s.EnrichOne(ctx, meta)
}

// CacheEntry returns a cached entry by identity.
func (s *EnrichmentService) CacheEntry(ctx context.Context, bookID string) (*domain.EnrichedMetadata, error) {
	entry, err := s.store.GetEnriched(ctx, bookID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, domainerrors.NotFoundf("no cache entry for %s", bookID)
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodePersistence, "read cache entry")
	}
	return entry, nil
}

// DeleteCacheEntry removes a cached entry so the next enrichment runs
// the full pipeline again.
func (s *EnrichmentService) DeleteCacheEntry(ctx context.Context, bookID string) error {
	if err := s.store.DeleteEnriched(ctx, bookID); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodePersistence, "delete cache entry")
	}
	return nil
}
