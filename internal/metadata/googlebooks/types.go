// Package googlebooks provides a client for looking up book categories
// via the Google Books volumes API.
package googlebooks

// Volume is the distilled lookup result consumed by the enrichment
// service: the upstream title plus the category vocabulary.
type Volume struct {
	Title      string   `json:"title"`
	Authors    []string `json:"authors,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Language   string   `json:"language,omitempty"`
}

// volumesResponse is the raw Books API response.
type volumesResponse struct {
	TotalItems int    `json:"totalItems"`
	Items      []item `json:"items"`
}

// item is a single volume from the Books API.
type item struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title               string               `json:"title"`
	Authors             []string             `json:"authors,omitempty"`
	Categories          []string             `json:"categories,omitempty"`
	Language            string               `json:"language,omitempty"`
	PublishedDate       string               `json:"publishedDate,omitempty"`
	IndustryIdentifiers []industryIdentifier `json:"industryIdentifiers,omitempty"`
}

type industryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}
