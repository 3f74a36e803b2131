package store

import (
	"context"
	"fmt"
	"time"

	"github.com/buchregal/buchregal-server/internal/domain"
)

// Key prefixes partition the database into namespaces.
const (
	prefixEnriched = "enriched:"
	prefixMapping  = "mapping:"
)

func enrichedKey(id string) []byte {
	return []byte(prefixEnriched + id)
}

// GetEnriched retrieves the cached enrichment entry for a book identity.
// Returns ErrNotFound on a cache miss.
func (s *Store) GetEnriched(ctx context.Context, id string) (*domain.EnrichedMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entry domain.EnrichedMetadata
	if err := s.get(enrichedKey(id), &entry); err != nil {
		if err == ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get enriched %s: %w", id, err)
	}
	return &entry, nil
}

// PutEnriched stores an enrichment entry under its identity, stamping
// UpdatedAt. The write is synced before PutEnriched returns.
func (s *Store) PutEnriched(ctx context.Context, entry *domain.EnrichedMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.ID == "" {
		return fmt.Errorf("put enriched: empty id")
	}

	entry.UpdatedAt = time.Now().UTC()
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = entry.UpdatedAt
	}

	if err := s.set(enrichedKey(entry.ID), entry); err != nil {
		return fmt.Errorf("put enriched %s: %w", entry.ID, err)
	}
	return nil
}

// HasEnriched reports whether an entry exists for the identity.
func (s *Store) HasEnriched(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ok, err := s.exists(enrichedKey(id))
	if err != nil {
		return false, fmt.Errorf("check enriched %s: %w", id, err)
	}
	return ok, nil
}

// DeleteEnriched removes a cache entry. Deleting a missing entry is a
// no-op, so re-enrichment flows can call it unconditionally.
func (s *Store) DeleteEnriched(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.delete(enrichedKey(id)); err != nil {
		return fmt.Errorf("delete enriched %s: %w", id, err)
	}
	return nil
}

// IterateEnriched walks every cached entry in key order.
func (s *Store) IterateEnriched(ctx context.Context, fn func(entry *domain.EnrichedMetadata) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return iteratePrefix(s, prefixEnriched, func(_ string, entry *domain.EnrichedMetadata) error {
		return fn(entry)
	})
}

// CountEnriched returns the number of cached entries.
func (s *Store) CountEnriched(ctx context.Context) (int, error) {
	count := 0
	err := s.IterateEnriched(ctx, func(*domain.EnrichedMetadata) error {
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
