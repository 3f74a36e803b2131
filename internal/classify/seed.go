package classify

import "github.com/buchregal/buchregal-server/internal/domain"

// predefinedMappings is the built-in exact subject-to-genre table,
// covering the English category vocabulary of the Books API and the
// German vocabulary found in ebook metadata. Keys are stored in
// normalize.SubjectKey form. Users extend this knowledge through the
// learned tier, which always wins on lookup.
//
//nolint:gochecknoglobals // Static seed data
var predefinedMappings = map[string]domain.Genre{
	// English categories.
	"fiction / science fiction":    domain.GenreScienceFiction,
	"fiction / fantasy":            domain.GenreFantasy,
	"fiction / mystery & detective": domain.GenreKrimi,
	"fiction / thriller":           domain.GenreKrimi,
	"fiction / thrillers":          domain.GenreKrimi,
	"fiction / literary":           domain.GenreBelletristik,
	"fiction / general":            domain.GenreBelletristik,
	"fiction / contemporary":       domain.GenreBelletristik,
	"fiction / historical":         domain.GenreBelletristik,
	"fiction / romance":            domain.GenreLiebesromane,
	"biography & autobiography":    domain.GenreBiografien,
	"history":                      domain.GenreSachbuecher,
	"science":                      domain.GenreSachbuecher,
	"philosophy":                   domain.GenreSachbuecher,
	"psychology":                   domain.GenreSachbuecher,
	"self-help":                    domain.GenreRatgeber,
	"health & fitness":             domain.GenreRatgeber,
	"cooking":                      domain.GenreRatgeber,
	"business & economics":         domain.GenreWirtschaft,
	"technology":                   domain.GenreSachbuecher,
	"computers":                    domain.GenreSachbuecher,
	"true crime":                   domain.GenreKrimi,
	"young adult fiction":          domain.GenreJugendbuch,
	"juvenile fiction":             domain.GenreKinderbuch,
	"travel":                       domain.GenreSachbuecher,
	"religion":                     domain.GenreSachbuecher,
	"political science":            domain.GenreSachbuecher,
	"social science":               domain.GenreSachbuecher,

	// German categories.
	"fiktion":         domain.GenreBelletristik,
	"belletristik":    domain.GenreBelletristik,
	"science-fiction": domain.GenreScienceFiction,
	"science fiction": domain.GenreScienceFiction,
	"fantasy":         domain.GenreFantasy,
	"fantasie":        domain.GenreFantasy,
	"kriminalroman":   domain.GenreKrimi,
	"thriller":        domain.GenreKrimi,
	"krimi":           domain.GenreKrimi,
	"liebesroman":     domain.GenreLiebesromane,
	"romantik":        domain.GenreLiebesromane,
	"biografie":       domain.GenreBiografien,
	"biographie":      domain.GenreBiografien,
	"memoiren":        domain.GenreBiografien,
	"geschichte":      domain.GenreSachbuecher,
	"wissenschaft":    domain.GenreSachbuecher,
	"philosophie":     domain.GenreSachbuecher,
	"ratgeber":        domain.GenreRatgeber,
	"selbsthilfe":     domain.GenreRatgeber,
	"wirtschaft":      domain.GenreWirtschaft,
	"jugendbuch":      domain.GenreJugendbuch,
	"kinderbuch":      domain.GenreKinderbuch,
	"reiseliteratur":  domain.GenreSachbuecher,
	"reisen":          domain.GenreSachbuecher,
	"psychologie":     domain.GenreSachbuecher,
	"politik":         domain.GenreSachbuecher,
	"soziologie":      domain.GenreSachbuecher,
}

// keywordMapping is one entry of the broad substring tier.
type keywordMapping struct {
	keyword string
	genre   domain.Genre
}

// broadKeywords is the ordered substring tier consulted after the exact
// tiers. List order is the tie-break priority and is configuration data:
// it must not be reordered, since reordering changes classification
// outcomes for ambiguous subjects.
//
//nolint:gochecknoglobals // Static seed data, order-sensitive
var broadKeywords = []keywordMapping{
	{"fiction", domain.GenreBelletristik},
	{"fiktion", domain.GenreBelletristik},
	{"science fiction", domain.GenreScienceFiction},
	{"fantasy", domain.GenreFantasy},
	{"thriller", domain.GenreKrimi},
	{"krimi", domain.GenreKrimi},
	{"mystery", domain.GenreKrimi},
	{"romance", domain.GenreLiebesromane},
	{"biography", domain.GenreBiografien},
	{"biografie", domain.GenreBiografien},
	{"history", domain.GenreSachbuecher},
	{"geschichte", domain.GenreSachbuecher},
	{"science", domain.GenreSachbuecher},
	{"wissenschaft", domain.GenreSachbuecher},
	{"travel", domain.GenreSachbuecher},
	{"reise", domain.GenreSachbuecher},
	{"self-help", domain.GenreRatgeber},
	{"ratgeber", domain.GenreRatgeber},
}

// PredefinedMapping returns the predefined tier entry for a subject key
// already normalized with normalize.SubjectKey.
func PredefinedMapping(key string) (domain.Genre, bool) {
	genre, ok := predefinedMappings[key]
	return genre, ok
}
