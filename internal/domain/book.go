package domain

import (
	"strings"
	"time"

	"github.com/buchregal/buchregal-server/internal/normalize"
)

// CalibrePrefix marks pseudo-ISBNs emitted by Calibre in place of a real
// identifier. They are never valid identity or lookup material.
const CalibrePrefix = "calibre:"

// BookMetadata is the raw input to enrichment, as extracted from an ebook
// or supplied by an external caller.
type BookMetadata struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors,omitempty"`
	ISBN10   string   `json:"isbn_10,omitempty"`
	ISBN13   string   `json:"isbn_13,omitempty"`
	Subjects []string `json:"subjects,omitempty"`
}

// FirstAuthor returns the primary author or the empty string.
func (m *BookMetadata) FirstAuthor() string {
	if len(m.Authors) == 0 {
		return ""
	}
	return m.Authors[0]
}

// ISBN returns the best usable ISBN for lookup and identity, preferring
// ISBN-13 over ISBN-10. Calibre pseudo-ISBNs and malformed identifiers
// yield the empty string.
func (m *BookMetadata) ISBN() string {
	if isbn, ok := CleanISBN(m.ISBN13); ok {
		return isbn
	}
	if isbn, ok := CleanISBN(m.ISBN10); ok {
		return isbn
	}
	return ""
}

// HasCalibreISBN reports whether either identifier carries the Calibre
// pseudo-ISBN prefix. Tracked separately so batch reports can count them.
func (m *BookMetadata) HasCalibreISBN() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(m.ISBN13)), CalibrePrefix) ||
		strings.HasPrefix(strings.ToLower(strings.TrimSpace(m.ISBN10)), CalibrePrefix)
}

// CleanISBN strips separators and validates the identifier shape.
// Accepts 13-digit ISBNs and 10-character ISBNs (trailing X allowed).
// Anything containing a colon (Calibre, uuid and urn identifiers) is
// rejected outright.
func CleanISBN(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.Contains(s, ":") {
		return "", false
	}

	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ToUpper(s)

	switch len(s) {
	case 13:
		for _, r := range s {
			if r < '0' || r > '9' {
				return "", false
			}
		}
		return s, true
	case 10:
		for i, r := range s {
			if r >= '0' && r <= '9' {
				continue
			}
			// Check digit may be X.
			if r == 'X' && i == 9 {
				continue
			}
			return "", false
		}
		return s, true
	default:
		return "", false
	}
}

// Identity derives the deterministic cache key for a book.
// A valid non-Calibre ISBN wins; otherwise the key is built from the
// normalized title and first author so the same file maps to the same
// entry across runs.
func Identity(m *BookMetadata) string {
	if isbn := m.ISBN(); isbn != "" {
		return "isbn:" + isbn
	}

	title := strings.ToLower(strings.TrimSpace(normalize.Title(m.Title)))
	author := strings.ToLower(strings.TrimSpace(m.FirstAuthor()))
	return "title_author:" + title + ":" + author
}

// EnrichedMetadata is one resolved cache entry per book identity.
// Unknown JSON fields are ignored on read so cache files stay
// forward-readable across versions.
type EnrichedMetadata struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Authors    []string   `json:"authors,omitempty"`
	ISBN       string     `json:"isbn,omitempty"`
	Genre      Genre      `json:"genre"`
	Provenance Provenance `json:"provenance"`
	Subjects   []string   `json:"subjects,omitempty"`
	Source     string     `json:"source,omitempty"`
	FetchedAt  time.Time  `json:"fetched_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Settled reports whether this entry should be reused as-is on a cache
// hit: user-confirmed and lookup-derived classifications are final until
// explicitly deleted, as is any non-fallback local match.
func (e *EnrichedMetadata) Settled() bool {
	return e.Provenance != ProvenanceFallback
}
