// Package epub extracts book metadata from EPUB files. An EPUB is a zip
// container; the OPF package document inside carries the Dublin Core
// metadata this engine feeds into classification.
package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/buchregal/buchregal-server/internal/domain"
)

const containerPath = "META-INF/container.xml"

// container is the fixed entry point of every EPUB, pointing at the OPF.
type container struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// opfPackage is the subset of the OPF package document we care about.
type opfPackage struct {
	Metadata struct {
		Titles      []string        `xml:"title"`
		Creators    []opfCreator    `xml:"creator"`
		Identifiers []opfIdentifier `xml:"identifier"`
		Subjects    []string        `xml:"subject"`
	} `xml:"metadata"`
}

type opfCreator struct {
	Name string `xml:",chardata"`
	Role string `xml:"role,attr"`
}

type opfIdentifier struct {
	Value  string `xml:",chardata"`
	Scheme string `xml:"scheme,attr"`
}

// ExtractMetadata reads the OPF metadata from the EPUB at path.
func ExtractMetadata(path string) (*domain.BookMetadata, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open epub %s: %w", path, err)
	}
	defer r.Close()

	opfPath, err := findOPFPath(&r.Reader)
	if err != nil {
		return nil, fmt.Errorf("locate opf in %s: %w", path, err)
	}

	var pkg opfPackage
	if err := decodeZipXML(&r.Reader, opfPath, &pkg); err != nil {
		return nil, fmt.Errorf("parse opf in %s: %w", path, err)
	}

	meta := &domain.BookMetadata{
		Title:    firstNonEmpty(pkg.Metadata.Titles),
		Authors:  extractAuthors(pkg.Metadata.Creators),
		Subjects: trimAll(pkg.Metadata.Subjects),
	}
	meta.ISBN13, meta.ISBN10 = extractISBNs(pkg.Metadata.Identifiers)

	return meta, nil
}

// findOPFPath reads container.xml and returns the first rootfile path.
func findOPFPath(r *zip.Reader) (string, error) {
	var c container
	if err := decodeZipXML(r, containerPath, &c); err != nil {
		return "", err
	}
	if len(c.Rootfiles) == 0 || c.Rootfiles[0].FullPath == "" {
		return "", fmt.Errorf("container.xml names no rootfile")
	}
	return c.Rootfiles[0].FullPath, nil
}

// decodeZipXML decodes the named zip entry into dest.
func decodeZipXML(r *zip.Reader, name string, dest any) error {
	f, err := r.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	if err := xml.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// extractAuthors returns creator names, authors first. Many EPUBs tag
// the role (aut, edt, trl); untagged creators are treated as authors.
func extractAuthors(creators []opfCreator) []string {
	var authors, others []string
	for _, c := range creators {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(c.Role)) {
		case "", "aut":
			authors = append(authors, name)
		default:
			others = append(others, name)
		}
	}
	if len(authors) > 0 {
		return authors
	}
	return others
}

// extractISBNs harvests ISBN-13 and ISBN-10 values from the identifier
// list. Calibre pseudo-ISBNs, uuids and urns fail CleanISBN and are
// skipped, but a raw Calibre identifier is kept so callers can still
// detect and count it.
func extractISBNs(identifiers []opfIdentifier) (isbn13, isbn10 string) {
	var calibre string
	for _, ident := range identifiers {
		value := strings.TrimSpace(ident.Value)
		if value == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(value), domain.CalibrePrefix) {
			calibre = value
			continue
		}

		isbn, ok := domain.CleanISBN(value)
		if !ok {
			continue
		}
		switch len(isbn) {
		case 13:
			if isbn13 == "" {
				isbn13 = isbn
			}
		case 10:
			if isbn10 == "" {
				isbn10 = isbn
			}
		}
	}

	// Surface the Calibre marker only when no real ISBN was found.
	if isbn13 == "" && isbn10 == "" && calibre != "" {
		isbn13 = calibre
	}
	return isbn13, isbn10
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ScanDir returns the paths of all EPUB files under dir, sorted, up to
// max entries. max <= 0 means no limit.
func ScanDir(dir string, max int) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".epub") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Strings(paths)
	if max > 0 && len(paths) > max {
		paths = paths[:max]
	}
	return paths, nil
}
