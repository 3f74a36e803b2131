// Package classify implements the layered genre classification cascade:
// learned user mappings, predefined mappings, substring matching over
// subjects, and broad keyword matching over title and author. It is pure
// decision logic; network lookups happen in the enrichment service.
package classify

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/buchregal/buchregal-server/internal/domain"
	"github.com/buchregal/buchregal-server/internal/normalize"
)

// MappingSource is the learned (user) tier of the mapping store.
// Keys are passed already normalized with normalize.SubjectKey.
type MappingSource interface {
	UserMapping(ctx context.Context, key string) (domain.Genre, bool, error)
}

// Engine evaluates the classification cascade. It is total: Classify
// always returns a genre from the closed set, never an error.
type Engine struct {
	mappings MappingSource
	logger   *slog.Logger

	// Subjects that fell through every tier, collected so callers can
	// offer them to the user for learning.
	mu      sync.Mutex
	unknown map[string]struct{}
}

// NewEngine creates a classification engine backed by the given learned
// mapping tier.
func NewEngine(mappings MappingSource, logger *slog.Logger) *Engine {
	return &Engine{
		mappings: mappings,
		logger:   logger,
		unknown:  make(map[string]struct{}),
	}
}

// Classify runs the cascade over the given subjects, title and author.
// Strategies are evaluated in strict order, first success wins:
//
//  1. learned user mappings (exact, per subject)
//  2. predefined mappings (exact, per subject)
//  3. broad keyword substring match over subjects
//  4. broad keyword substring match over title and author
//  5. fallback: Sonstiges
//
// Within the substring tiers, keyword list order is the priority order.
func (e *Engine) Classify(ctx context.Context, subjects []string, title, author string) (domain.Genre, domain.Provenance) {
	keys := make([]string, 0, len(subjects))
	for _, s := range subjects {
		if key := normalize.SubjectKey(s); key != "" {
			keys = append(keys, key)
		}
	}

	// Strategy 1: learned mappings. Highest priority, a hit here means
	// the user confirmed this exact subject before.
	for i, key := range keys {
		genre, ok, err := e.mappings.UserMapping(ctx, key)
		if err != nil {
			// A read failure must not break classification; the
			// cascade continues on built-in knowledge.
			e.logger.Warn("user mapping lookup failed, skipping tier",
				"subject", subjects[i],
				"error", err,
			)
			continue
		}
		if ok {
			return genre, domain.ProvenanceUserMapping
		}
	}

	// Strategy 2: predefined mappings.
	for _, key := range keys {
		if genre, ok := PredefinedMapping(key); ok {
			return genre, domain.ProvenancePredefined
		}
	}

	// Strategy 3: substring match over subjects.
	for _, key := range keys {
		if genre, ok := matchKeywords(key); ok {
			return genre, domain.ProvenanceSubstring
		}
	}

	// Nothing in the subject vocabulary matched; remember them for the
	// learning workflow before falling through.
	e.recordUnknown(subjects)

	// Strategy 4: broad keywords over title and author, for books whose
	// subjects are empty or uninformative.
	haystack := normalize.SubjectKey(title + " " + author)
	if haystack != "" {
		if genre, ok := matchKeywords(haystack); ok {
			return genre, domain.ProvenanceKeyword
		}
	}

	return domain.GenreSonstiges, domain.ProvenanceFallback
}

// NeedsLookup reports whether the subject list is empty, which signals
// the orchestrator that an external lookup should be attempted before
// accepting the fallback genre.
func (e *Engine) NeedsLookup(subjects []string) bool {
	for _, s := range subjects {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// matchKeywords tests the ordered broad keyword list against a haystack
// already in SubjectKey form. List order is the tie-break.
func matchKeywords(haystack string) (domain.Genre, bool) {
	for _, km := range broadKeywords {
		if strings.Contains(haystack, km.keyword) {
			return km.genre, true
		}
	}
	return domain.GenreSonstiges, false
}

// recordUnknown collects subjects no tier recognized.
func (e *Engine) recordUnknown(subjects []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range subjects {
		if s = strings.TrimSpace(s); s != "" {
			e.unknown[s] = struct{}{}
		}
	}
}

// DrainUnknown returns the subjects collected since the last call,
// sorted, and resets the set. Callers surface these to the user so the
// mappings can be learned.
func (e *Engine) DrainUnknown() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.unknown) == 0 {
		return nil
	}

	subjects := make([]string, 0, len(e.unknown))
	for s := range e.unknown {
		subjects = append(subjects, s)
	}
	e.unknown = make(map[string]struct{})

	sort.Strings(subjects)
	return subjects
}
