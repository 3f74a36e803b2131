package service

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/buchregal/buchregal-server/internal/classify"
	"github.com/buchregal/buchregal-server/internal/domain"
	domainerrors "github.com/buchregal/buchregal-server/internal/errors"
	"github.com/buchregal/buchregal-server/internal/metadata/googlebooks"
	"github.com/buchregal/buchregal-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLookup is a scripted LookupClient that counts calls.
type fakeLookup struct {
	calls   int
	volume  *googlebooks.Volume
	err     error
	lastKey googlebooks.SearchKey
}

func (f *fakeLookup) Search(_ context.Context, key googlebooks.SearchKey) (*googlebooks.Volume, error) {
	f.calls++
	f.lastKey = key
	if f.err != nil {
		return nil, f.err
	}
	return f.volume, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupService(t *testing.T, lookup LookupClient, maxLookups int) (*EnrichmentService, *store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "buchregal-test-*")
	require.NoError(t, err)

	st, err := store.New(filepath.Join(tmpDir, "db"), nil)
	require.NoError(t, err)

	logger := testLogger()
	engine := classify.NewEngine(st, logger)
	svc := NewEnrichmentService(st, engine, lookup, maxLookups, logger)

	cleanup := func() {
		st.Close()
		os.RemoveAll(tmpDir)
	}
	return svc, st, cleanup
}

func TestEnrichOne_LocalSubjects(t *testing.T) {
	lookup := &fakeLookup{}
	svc, _, cleanup := setupService(t, lookup, 10)
	defer cleanup()

	meta := &domain.BookMetadata{
		Title:    "Der Schwarm",
		Authors:  []string{"Frank Schätzing"},
		Subjects: []string{"Science Fiction"},
	}

	entry, err := svc.EnrichOne(context.Background(), meta)
	require.NoError(t, err)

	assert.Equal(t, domain.GenreScienceFiction, entry.Genre)
	assert.Equal(t, domain.ProvenancePredefined, entry.Provenance)
	assert.Equal(t, 0, lookup.calls, "books with subjects never trigger lookups")
}

func TestEnrichOne_CachedSettledEntrySkipsEverything(t *testing.T) {
	lookup := &fakeLookup{}
	svc, st, cleanup := setupService(t, lookup, 10)
	defer cleanup()

	ctx := context.Background()
	meta := &domain.BookMetadata{Title: "Der Schwarm", ISBN13: "9783462033748"}

	cached := &domain.EnrichedMetadata{
		ID:         domain.Identity(meta),
		Title:      "Der Schwarm",
		Genre:      domain.GenreScienceFiction,
		Provenance: domain.ProvenanceAPI,
		Subjects:   []string{"Fiction / Science Fiction"},
		Source:     "googlebooks",
	}
	require.NoError(t, st.PutEnriched(ctx, cached))

	entry, err := svc.EnrichOne(ctx, meta)
	require.NoError(t, err)

	assert.Equal(t, domain.GenreScienceFiction, entry.Genre)
	assert.Equal(t, domain.ProvenanceAPI, entry.Provenance)
	assert.Equal(t, 0, lookup.calls, "cached api entry must issue zero lookups")
}

func TestEnrichOne_LookupUpgradesProvenance(t *testing.T) {
	lookup := &fakeLookup{
		volume: &googlebooks.Volume{
			Title:      "Der Schwarm",
			Categories: []string{"Fiction / Science Fiction"},
		},
	}
	svc, _, cleanup := setupService(t, lookup, 10)
	defer cleanup()

	meta := &domain.BookMetadata{
		Title:   "Der Schwarm",
		Authors: []string{"Frank Schätzing"},
		ISBN13:  "9783462033748",
	}

	entry, err := svc.EnrichOne(context.Background(), meta)
	require.NoError(t, err)

	assert.Equal(t, 1, lookup.calls)
	assert.Equal(t, "9783462033748", lookup.lastKey.ISBN)
	assert.Equal(t, domain.GenreScienceFiction, entry.Genre)
	assert.Equal(t, domain.ProvenanceAPI, entry.Provenance)
	assert.Equal(t, "googlebooks", entry.Source)
	assert.Equal(t, []string{"Fiction / Science Fiction"}, entry.Subjects)
}

func TestEnrichOne_SearchKeyFallsBackToTitleAuthor(t *testing.T) {
	lookup := &fakeLookup{err: googlebooks.ErrNotFound}
	svc, _, cleanup := setupService(t, lookup, 10)
	defer cleanup()

	meta := &domain.BookMetadata{
		Title:   "001 - Die Auferstehung",
		Authors: []string{"Max Muster"},
		ISBN13:  "calibre:17",
	}

	entry, err := svc.EnrichOne(context.Background(), meta)
	require.NoError(t, err)

	// Calibre pseudo-ISBN never reaches the wire.
	assert.Empty(t, lookup.lastKey.ISBN)
	assert.Equal(t, "Die Auferstehung", lookup.lastKey.Title)
	assert.Equal(t, "Max Muster", lookup.lastKey.Author)

	assert.Equal(t, domain.GenreSonstiges, entry.Genre)
	assert.Equal(t, domain.ProvenanceFallback, entry.Provenance)
}

func TestEnrichOne_LookupFailureFallsBack(t *testing.T) {
	lookup := &fakeLookup{err: googlebooks.ErrServer}
	svc, _, cleanup := setupService(t, lookup, 10)
	defer cleanup()

	meta := &domain.BookMetadata{Title: "Unbekanntes Werk", Authors: []string{"Niemand"}}

	entry, err := svc.EnrichOne(context.Background(), meta)
	require.NoError(t, err, "lookup failures are recovered locally")
	assert.Equal(t, domain.GenreSonstiges, entry.Genre)
	assert.Equal(t, domain.ProvenanceFallback, entry.Provenance)
}

func TestEnrichOne_QuotaExhaustionStopsLookups(t *testing.T) {
	lookup := &fakeLookup{err: googlebooks.ErrQuotaExceeded}
	svc, _, cleanup := setupService(t, lookup, 10)
	defer cleanup()

	ctx := context.Background()

	_, err := svc.EnrichOne(ctx, &domain.BookMetadata{Title: "Erstes Buch", Authors: []string{"A"}})
	require.NoError(t, err)
	assert.Equal(t, 1, lookup.calls)
	assert.True(t, svc.QuotaExhausted())

	// Remaining books classify locally, no further lookups.
	entry, err := svc.EnrichOne(ctx, &domain.BookMetadata{Title: "Zweites Buch", Authors: []string{"B"}})
	require.NoError(t, err)
	assert.Equal(t, 1, lookup.calls)
	assert.Equal(t, domain.GenreSonstiges, entry.Genre)
	assert.Equal(t, domain.ProvenanceFallback, entry.Provenance)
}

func TestEnrichOne_ZeroQuotaDisablesLookups(t *testing.T) {
	lookup := &fakeLookup{}
	svc, _, cleanup := setupService(t, lookup, 0)
	defer cleanup()

	_, err := svc.EnrichOne(context.Background(), &domain.BookMetadata{Title: "Buch", Authors: []string{"A"}})
	require.NoError(t, err)
	assert.Equal(t, 0, lookup.calls)
}

func TestEnrichOne_NoIdentity(t *testing.T) {
	svc, _, cleanup := setupService(t, &fakeLookup{}, 10)
	defer cleanup()

	_, err := svc.EnrichOne(context.Background(), &domain.BookMetadata{})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestEnrichOne_FallbackEntryReclassifiedAfterLearning(t *testing.T) {
	lookup := &fakeLookup{}
	svc, st, cleanup := setupService(t, lookup, 10)
	defer cleanup()

	ctx := context.Background()
	meta := &domain.BookMetadata{
		Title:    "Raumfahrer",
		Authors:  []string{"Max Muster"},
		Subjects: []string{"Weltraumabenteuer"},
	}

	entry, err := svc.EnrichOne(ctx, meta)
	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceFallback, entry.Provenance)

	// The user teaches the unknown subject; the next pass on the same
	// book picks the learned verdict up without a lookup.
	require.NoError(t, st.LearnMapping(ctx, "Weltraumabenteuer", domain.GenreScienceFiction))

	entry, err = svc.EnrichOne(ctx, meta)
	require.NoError(t, err)
	assert.Equal(t, domain.GenreScienceFiction, entry.Genre)
	assert.Equal(t, domain.ProvenanceUserMapping, entry.Provenance)
	assert.Equal(t, 0, lookup.calls)
}

func TestEnrichBatch_Report(t *testing.T) {
	lookup := &fakeLookup{
		volume: &googlebooks.Volume{Categories: []string{"Fiction / Fantasy"}},
	}
	svc, _, cleanup := setupService(t, lookup, 10)
	defer cleanup()

	ctx := context.Background()
	metas := []*domain.BookMetadata{
		{Title: "Mit Subjects", Authors: []string{"A"}, Subjects: []string{"Krimi"}},
		{Title: "Ohne Subjects", Authors: []string{"B"}},
		{Title: "Calibre-Buch", Authors: []string{"C"}, ISBN13: "calibre:99", Subjects: []string{"Thriller"}},
	}

	report, err := svc.EnrichBatch(ctx, metas, BatchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.CacheMisses)
	assert.Equal(t, 1, report.LookupsIssued)
	assert.Equal(t, 1, report.CalibreIgnored)
	assert.Equal(t, 1, report.ByProvenance[domain.ProvenanceAPI])
	assert.Equal(t, 2, report.ByProvenance[domain.ProvenancePredefined])
	assert.Equal(t, 2, report.ByGenre[domain.GenreKrimi])
	assert.Equal(t, 1, report.ByGenre[domain.GenreFantasy])
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.QuotaExhausted)

	// Second run over the same books: everything is a cache hit and no
	// lookups are issued.
	report2, err := svc.EnrichBatch(ctx, metas, BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, report2.CacheHits)
	assert.Equal(t, 0, report2.CacheMisses)
	assert.Equal(t, 1, lookup.calls)
}

func TestEnrichBatch_NoMatchIsNotAFailure(t *testing.T) {
	lookup := &fakeLookup{err: googlebooks.ErrNotFound}
	svc, _, cleanup := setupService(t, lookup, 10)
	defer cleanup()

	metas := []*domain.BookMetadata{
		{Title: "Unbekanntes Werk", Authors: []string{"Niemand"}},
	}

	report, err := svc.EnrichBatch(context.Background(), metas, BatchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.LookupsIssued)
	assert.Equal(t, 0, report.LookupFailures, "a book the API does not know is not a failure")
	assert.Equal(t, 1, report.ByProvenance[domain.ProvenanceFallback])
}

func TestEnrichBatch_ReportMarshals(t *testing.T) {
	svc, _, cleanup := setupService(t, &fakeLookup{}, 0)
	defer cleanup()

	metas := []*domain.BookMetadata{
		{Title: "Buch", Authors: []string{"A"}, Subjects: []string{"Krimi"}},
	}

	report, err := svc.EnrichBatch(context.Background(), metas, BatchOptions{})
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"duration":"`)
	assert.Contains(t, string(data), `"by_genre"`)
}

func TestEnrichBatch_MaxBooks(t *testing.T) {
	svc, _, cleanup := setupService(t, &fakeLookup{}, 0)
	defer cleanup()

	metas := []*domain.BookMetadata{
		{Title: "Eins", Subjects: []string{"Krimi"}},
		{Title: "Zwei", Subjects: []string{"Krimi"}},
		{Title: "Drei", Subjects: []string{"Krimi"}},
	}

	report, err := svc.EnrichBatch(context.Background(), metas, BatchOptions{MaxBooks: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
}

func TestEnrichBatch_DryRunDoesNotPersist(t *testing.T) {
	svc, st, cleanup := setupService(t, &fakeLookup{}, 0)
	defer cleanup()

	ctx := context.Background()
	meta := &domain.BookMetadata{Title: "Fluechtig", Authors: []string{"A"}, Subjects: []string{"Krimi"}}

	report, err := svc.EnrichBatch(ctx, []*domain.BookMetadata{meta}, BatchOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.ByGenre[domain.GenreKrimi])

	ok, err := st.HasEnriched(ctx, domain.Identity(meta))
	require.NoError(t, err)
	assert.False(t, ok, "dry run must not write cache entries")
}

func TestEnrichBatch_CollectsUnknownSubjects(t *testing.T) {
	svc, _, cleanup := setupService(t, &fakeLookup{}, 0)
	defer cleanup()

	metas := []*domain.BookMetadata{
		{Title: "Buch", Authors: []string{"A"}, Subjects: []string{"Weltraumabenteuer"}},
	}

	report, err := svc.EnrichBatch(context.Background(), metas, BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Weltraumabenteuer"}, report.UnknownSubjects)
}

func TestReclassify(t *testing.T) {
	svc, st, cleanup := setupService(t, &fakeLookup{}, 0)
	defer cleanup()

	ctx := context.Background()
	meta := &domain.BookMetadata{
		Title:    "Raumfahrer",
		Authors:  []string{"Max Muster"},
		Subjects: []string{"Weltraumabenteuer"},
	}

	entry, err := svc.EnrichOne(ctx, meta)
	require.NoError(t, err)
	require.Equal(t, domain.GenreSonstiges, entry.Genre)

	require.NoError(t, st.LearnMapping(ctx, "Weltraumabenteuer", domain.GenreScienceFiction))

	entry, err = svc.Reclassify(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenreScienceFiction, entry.Genre)
	assert.Equal(t, domain.ProvenanceUserMapping, entry.Provenance)
}

func TestReclassify_KeepsISBNIdentity(t *testing.T) {
	svc, st, cleanup := setupService(t, &fakeLookup{}, 0)
	defer cleanup()

	ctx := context.Background()
	meta := &domain.BookMetadata{
		Title:    "Der Schwarm",
		Authors:  []string{"Frank Schätzing"},
		ISBN13:   "9783462033748",
		Subjects: []string{"Science Fiction"},
	}

	entry, err := svc.EnrichOne(ctx, meta)
	require.NoError(t, err)
	require.Equal(t, "isbn:9783462033748", entry.ID)

	entry, err = svc.Reclassify(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "isbn:9783462033748", entry.ID, "reclassify must not re-key the entry")

	ok, err := st.HasEnriched(ctx, "isbn:9783462033748")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReclassify_MissingEntry(t *testing.T) {
	svc, _, cleanup := setupService(t, &fakeLookup{}, 0)
	defer cleanup()

	_, err := svc.Reclassify(context.Background(), "isbn:0000000000000")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}
