package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/buchregal/buchregal-server/internal/domain"
	"github.com/buchregal/buchregal-server/internal/store"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/Buchregal/data/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	entryCount := 0
	byGenre := make(map[domain.Genre]int)
	byProvenance := make(map[domain.Provenance]int)
	unsettled := 0

	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("enriched:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(val []byte) error {
				var entry domain.EnrichedMetadata
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}

				entryCount++
				byGenre[entry.Genre]++
				byProvenance[entry.Provenance]++
				if !entry.Settled() {
					unsettled++
				}

				// Show the first few entries in full.
				if entryCount <= 3 {
					fmt.Printf("Book: %s\n", entry.Title)
					fmt.Printf("  ID: %s\n", entry.ID)
					fmt.Printf("  Genre: %s (%s)\n", entry.Genre, entry.Provenance)
					if len(entry.Subjects) > 0 {
						fmt.Printf("  Subjects: %s\n", strings.Join(entry.Subjects, ", "))
					}
					if entry.Source != "" {
						fmt.Printf("  Source: %s\n", entry.Source)
					}
					fmt.Printf("  Fetched: %s\n", entry.FetchedAt)
					fmt.Println()
				}
				return nil
			})
			if err != nil {
				log.Printf("Error reading entry %s: %v", key, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	mappingCount := 0
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("mapping:")
		it := txn.NewIterator(opts)
		defer it.Close()

		fmt.Println("=== Learned Mappings ===")
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()

			err := item.Value(func(val []byte) error {
				var entry store.MappingEntry
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}
				mappingCount++
				fmt.Printf("  %s -> %s\n", entry.Subject, entry.Genre)
				return nil
			})
			if err != nil {
				log.Printf("Error reading mapping %s: %v", string(item.Key()), err)
			}
		}
		fmt.Println()
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Cached books: %d\n", entryCount)
	fmt.Printf("Unsettled (fallback) entries: %d\n", unsettled)
	fmt.Printf("Learned mappings: %d\n", mappingCount)

	if entryCount > 0 {
		fmt.Println()
		fmt.Println("Genres:")
		for _, genre := range domain.AllGenres {
			if count := byGenre[genre]; count > 0 {
				fmt.Printf("  %-20s %d\n", genre, count)
			}
		}

		fmt.Println()
		fmt.Println("Provenance:")
		for provenance, count := range byProvenance {
			fmt.Printf("  %-20s %d\n", provenance, count)
		}
	}
}
