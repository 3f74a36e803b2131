// Package normalize provides utilities for normalizing titles, authors,
// and subject strings before they are used as lookup or mapping keys.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// Leading series counters: "001 - ", "12: ".
	seriesNumberPrefix = regexp.MustCompile(`^\d{1,3}\s*[-:]\s*`)
	// Volume words in German and English: "Band 1 - ", "Volume 2: ", "Vol. 3 - ".
	volumeWordPrefix = regexp.MustCompile(`(?i)^(Band|Teil|Book|Volume|Vol\.?)\s+\d+\s*[-:]\s*`)
	// Runs of whitespace inside subject keys.
	innerWhitespace = regexp.MustCompile(`\s+`)
)

// maxSearchTitleLen is the point at which a title is considered too long
// to make a good search query. Long titles are usually "Main Title - A
// Very Long Subtitle"; external lookups hit far more often on the main
// title alone.
const maxSearchTitleLen = 50

// Title strips leading series and volume markers from a raw title.
// It is idempotent, never fails, and leaves titles without a recognized
// prefix unchanged.
func Title(raw string) string {
	title := strings.TrimSpace(raw)
	if title == "" {
		return title
	}

	// Strip to a fixpoint: stacked prefixes like "001 - Band 2 - X"
	// must reduce the same way no matter how often Title is applied.
	for {
		stripped := seriesNumberPrefix.ReplaceAllString(title, "")
		stripped = volumeWordPrefix.ReplaceAllString(stripped, "")
		stripped = strings.TrimSpace(stripped)
		if stripped == title || stripped == "" {
			break
		}
		title = stripped
	}

	return title
}

// SearchTitle normalizes a title for use as an external search key.
// On top of Title it truncates overlong titles at a word boundary,
// preferring the main title before the first " - " separator. The result
// is only ever used to build queries, never stored.
func SearchTitle(raw string) string {
	title := Title(raw)
	if len([]rune(title)) <= maxSearchTitleLen {
		return title
	}

	if main, _, found := strings.Cut(title, " - "); found {
		title = strings.TrimSpace(main)
	}

	runes := []rune(title)
	if len(runes) <= maxSearchTitleLen {
		return title
	}

	// Still too long: cut at the last space before the limit, never
	// mid-word.
	cut := string(runes[:maxSearchTitleLen])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

// UnknownAuthor is the placeholder for books without author metadata.
const UnknownAuthor = "Unbekannt"

// Author sanitizes an author name. Characters that are hostile to
// filesystems and search queries are removed; empty input maps to the
// Unbekannt placeholder.
func Author(raw string) string {
	author := strings.TrimSpace(raw)
	if author == "" {
		return UnknownAuthor
	}

	author = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return -1
		case 0:
			return -1
		}
		return r
	}, author)

	author = strings.TrimSpace(author)
	if author == "" {
		return UnknownAuthor
	}
	return author
}

// SubjectKey normalizes a subject/category string into the key form used
// by the mapping store: unicode-normalized, lowercased, trimmed, inner
// whitespace collapsed. Lookups and learned entries go through the same
// function so "Science Fiction ", "science  fiction" and "SCIENCE FICTION"
// all land on one key.
func SubjectKey(raw string) string {
	s := norm.NFKC.String(raw)
	s = strings.ToLower(strings.TrimSpace(s))
	s = innerWhitespace.ReplaceAllString(s, " ")
	return s
}
