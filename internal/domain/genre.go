// Package domain contains the core types for book metadata enrichment:
// the closed genre set, classification provenance, and book identity.
package domain

// Genre is one of the fixed category labels assigned to a book.
// The set is closed: classification always terminates in one of these
// values, never in "no result".
type Genre string

// The twelve genres. Sonstiges is the fallback and is never absent.
const (
	GenreBelletristik   Genre = "Belletristik"
	GenreScienceFiction Genre = "Science Fiction"
	GenreFantasy        Genre = "Fantasy"
	GenreKrimi          Genre = "Krimi/Thriller"
	GenreLiebesromane   Genre = "Liebesromane"
	GenreBiografien     Genre = "Biografien/Memoiren"
	GenreSachbuecher    Genre = "Sachbücher"
	GenreRatgeber       Genre = "Ratgeber"
	GenreWirtschaft     Genre = "Wirtschaft"
	GenreJugendbuch     Genre = "Jugendbuch"
	GenreKinderbuch     Genre = "Kinderbuch"
	GenreSonstiges      Genre = "Sonstiges"
)

// AllGenres lists every genre in stable display order.
//
//nolint:gochecknoglobals // Static closed enumeration
var AllGenres = []Genre{
	GenreBelletristik,
	GenreScienceFiction,
	GenreFantasy,
	GenreKrimi,
	GenreLiebesromane,
	GenreBiografien,
	GenreSachbuecher,
	GenreRatgeber,
	GenreWirtschaft,
	GenreJugendbuch,
	GenreKinderbuch,
	GenreSonstiges,
}

// Valid reports whether g is a member of the closed genre set.
func (g Genre) Valid() bool {
	for _, known := range AllGenres {
		if g == known {
			return true
		}
	}
	return false
}

// ParseGenre returns the genre matching s, or (Sonstiges, false) when s is
// not a member of the set.
func ParseGenre(s string) (Genre, bool) {
	g := Genre(s)
	if g.Valid() {
		return g, true
	}
	return GenreSonstiges, false
}

// Provenance identifies which cascade strategy produced a genre assignment.
type Provenance string

// Provenance values, in cascade order.
const (
	ProvenanceUserMapping Provenance = "user-mapping"
	ProvenancePredefined  Provenance = "predefined-mapping"
	ProvenanceSubstring   Provenance = "substring-match"
	ProvenanceKeyword     Provenance = "keyword-match"
	ProvenanceAPI         Provenance = "api"
	ProvenanceFallback    Provenance = "fallback"
)
