package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/buchregal/buchregal-server/internal/domain"
	"github.com/buchregal/buchregal-server/internal/normalize"
)

// MappingEntry is one learned subject-to-genre association.
type MappingEntry struct {
	Subject string       `json:"subject"`
	Genre   domain.Genre `json:"genre"`
}

func mappingKey(subjectKey string) []byte {
	return []byte(prefixMapping + subjectKey)
}

// LearnMapping stores a learned subject-to-genre association. The
// subject is normalized to its key form, so variant spellings of the
// same subject share one entry and relearning overwrites it.
func (s *Store) LearnMapping(ctx context.Context, subject string, genre domain.Genre) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := normalize.SubjectKey(subject)
	if key == "" {
		return fmt.Errorf("learn mapping: empty subject")
	}
	if !genre.Valid() {
		return fmt.Errorf("learn mapping: unknown genre %q", genre)
	}

	entry := MappingEntry{Subject: key, Genre: genre}
	if err := s.set(mappingKey(key), &entry); err != nil {
		return fmt.Errorf("learn mapping %s: %w", key, err)
	}

	if s.logger != nil {
		s.logger.Info("learned genre mapping", "subject", key, "genre", genre)
	}
	return nil
}

// UserMapping returns the learned genre for a subject key, if any. It
// implements the learned tier of the classification cascade; the input
// is normalized again so callers may pass raw subjects.
func (s *Store) UserMapping(ctx context.Context, key string) (domain.Genre, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.GenreSonstiges, false, err
	}

	key = normalize.SubjectKey(key)
	if key == "" {
		return domain.GenreSonstiges, false, nil
	}

	var entry MappingEntry
	if err := s.get(mappingKey(key), &entry); err != nil {
		if err == ErrNotFound {
			return domain.GenreSonstiges, false, nil
		}
		return domain.GenreSonstiges, false, fmt.Errorf("get mapping %s: %w", key, err)
	}

	// A stored genre outside the closed set means the database was
	// written by a newer version; treat it as absent rather than leak it.
	if !entry.Genre.Valid() {
		return domain.GenreSonstiges, false, nil
	}
	return entry.Genre, true, nil
}

// DeleteMapping removes a learned association.
func (s *Store) DeleteMapping(ctx context.Context, subject string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := normalize.SubjectKey(subject)
	if key == "" {
		return fmt.Errorf("delete mapping: empty subject")
	}

	if err := s.delete(mappingKey(key)); err != nil {
		return fmt.Errorf("delete mapping %s: %w", key, err)
	}
	return nil
}

// ListMappings returns all learned associations sorted by subject key.
func (s *Store) ListMappings(ctx context.Context) ([]MappingEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []MappingEntry
	err := iteratePrefix(s, prefixMapping, func(_ string, entry *MappingEntry) error {
		entries = append(entries, *entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Subject < entries[j].Subject
	})
	return entries, nil
}
