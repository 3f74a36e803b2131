package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/buchregal/buchregal-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary store for testing
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "buchregal-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := New(dbPath, nil)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func testEntry(id string) *domain.EnrichedMetadata {
	return &domain.EnrichedMetadata{
		ID:         id,
		Title:      "Die Auferstehung",
		Authors:    []string{"Max Muster"},
		Genre:      domain.GenreScienceFiction,
		Provenance: domain.ProvenancePredefined,
		Subjects:   []string{"Fiction / Science Fiction"},
		Source:     "googlebooks",
		FetchedAt:  time.Now().UTC(),
	}
}

func TestPutAndGetEnriched(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	entry := testEntry("isbn:9783161484100")

	err := store.PutEnriched(ctx, entry)
	require.NoError(t, err)
	assert.False(t, entry.UpdatedAt.IsZero(), "put should stamp UpdatedAt")

	got, err := store.GetEnriched(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, entry.Title, got.Title)
	assert.Equal(t, domain.GenreScienceFiction, got.Genre)
	assert.Equal(t, domain.ProvenancePredefined, got.Provenance)
	assert.Equal(t, entry.Subjects, got.Subjects)
}

func TestGetEnrichedNotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.GetEnriched(context.Background(), "isbn:0000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutEnrichedEmptyID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.PutEnriched(context.Background(), &domain.EnrichedMetadata{})
	assert.Error(t, err)
}

func TestPutEnrichedOverwrite(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	entry := testEntry("title_author:der prozess:franz kafka")
	require.NoError(t, store.PutEnriched(ctx, entry))

	entry.Genre = domain.GenreBelletristik
	entry.Provenance = domain.ProvenanceUserMapping
	require.NoError(t, store.PutEnriched(ctx, entry))

	got, err := store.GetEnriched(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenreBelletristik, got.Genre)
	assert.Equal(t, domain.ProvenanceUserMapping, got.Provenance)
}

func TestHasAndDeleteEnriched(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	entry := testEntry("isbn:9780261103573")
	require.NoError(t, store.PutEnriched(ctx, entry))

	ok, err := store.HasEnriched(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.DeleteEnriched(ctx, entry.ID))

	ok, err = store.HasEnriched(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is a no-op
	assert.NoError(t, store.DeleteEnriched(ctx, entry.ID))
}

func TestIterateEnriched(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	ids := []string{"isbn:1111111111111", "isbn:2222222222222", "isbn:3333333333333"}
	for _, id := range ids {
		require.NoError(t, store.PutEnriched(ctx, testEntry(id)))
	}

	var seen []string
	err := store.IterateEnriched(ctx, func(entry *domain.EnrichedMetadata) error {
		seen = append(seen, entry.ID)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, seen)

	count, err := store.CountEnriched(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestLearnAndLookupMapping(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	err := store.LearnMapping(ctx, "Space Opera", domain.GenreScienceFiction)
	require.NoError(t, err)

	// Lookup normalizes, so variant spellings of the learned subject hit
	genre, ok, err := store.UserMapping(ctx, "  SPACE   opera ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.GenreScienceFiction, genre)
}

func TestUserMappingMiss(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, ok, err := store.UserMapping(context.Background(), "never learned")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLearnMappingRejectsUnknownGenre(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.LearnMapping(context.Background(), "space opera", domain.Genre("Horror"))
	assert.Error(t, err)
}

func TestLearnMappingOverwrite(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.LearnMapping(ctx, "space opera", domain.GenreFantasy))
	require.NoError(t, store.LearnMapping(ctx, "Space Opera", domain.GenreScienceFiction))

	genre, ok, err := store.UserMapping(ctx, "space opera")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.GenreScienceFiction, genre)

	entries, err := store.ListMappings(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1, "relearning must overwrite, not duplicate")
}

func TestListMappingsSorted(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.LearnMapping(ctx, "zukunftsroman", domain.GenreScienceFiction))
	require.NoError(t, store.LearnMapping(ctx, "abenteuer", domain.GenreBelletristik))
	require.NoError(t, store.LearnMapping(ctx, "heimatroman", domain.GenreBelletristik))

	entries, err := store.ListMappings(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "abenteuer", entries[0].Subject)
	assert.Equal(t, "heimatroman", entries[1].Subject)
	assert.Equal(t, "zukunftsroman", entries[2].Subject)
}

func TestDeleteMapping(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.LearnMapping(ctx, "space opera", domain.GenreScienceFiction))
	require.NoError(t, store.DeleteMapping(ctx, "Space Opera"))

	_, ok, err := store.UserMapping(ctx, "space opera")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "buchregal-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")
	ctx := context.Background()

	store, err := New(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, store.PutEnriched(ctx, testEntry("isbn:9783161484100")))
	require.NoError(t, store.LearnMapping(ctx, "space opera", domain.GenreScienceFiction))
	require.NoError(t, store.Close())

	store, err = New(dbPath, nil)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetEnriched(ctx, "isbn:9783161484100")
	require.NoError(t, err)
	assert.Equal(t, domain.GenreScienceFiction, got.Genre)

	_, ok, err := store.UserMapping(ctx, "space opera")
	require.NoError(t, err)
	assert.True(t, ok)
}
