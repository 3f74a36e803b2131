// Package main provides the batch enrichment CLI. It scans a directory
// of EPUB files, classifies every book and prints the genre report.
//
// Usage:
//
//	enrich [flags] <directory>
package main

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/buchregal/buchregal-server/internal/classify"
	"github.com/buchregal/buchregal-server/internal/config"
	"github.com/buchregal/buchregal-server/internal/domain"
	"github.com/buchregal/buchregal-server/internal/epub"
	"github.com/buchregal/buchregal-server/internal/logger"
	"github.com/buchregal/buchregal-server/internal/metadata/googlebooks"
	"github.com/buchregal/buchregal-server/internal/service"
	"github.com/buchregal/buchregal-server/internal/store"
)

func main() {
	output := flag.String("output", "", "Write the batch report to this file as JSON")
	maxBooks := flag.Int("max-books", 0, "Cap on processed books (0 = all)")
	dryRun := flag.Bool("dry-run", false, "Classify and report without persisting")

	// LoadConfig parses the combined flag set, so the enrich flags above
	// are picked up together with the shared configuration flags.
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	dir := flag.Arg(0)
	if dir == "" {
		fmt.Fprintln(os.Stderr, "Usage: enrich [flags] <directory>")
		os.Exit(2)
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	if err := run(cfg, log, dir, *output, *maxBooks, *dryRun); err != nil {
		log.Fatal("Batch enrichment failed", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger, dir, output string, maxBooks int, dryRun bool) error {
	// Interrupting mid-batch is safe: the store is closed on the way out
	// and every finished book is already durable.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Data.DatabasePath(), log.Logger)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := classify.NewEngine(st, log.Logger)

	opts := []googlebooks.Option{googlebooks.WithTimeout(cfg.Lookup.Timeout)}
	if cfg.Lookup.BaseURL != "" {
		opts = append(opts, googlebooks.WithBaseURL(cfg.Lookup.BaseURL))
	}
	client := googlebooks.NewClient(cfg.Lookup.Interval, log.Logger, opts...)

	svc := service.NewEnrichmentService(st, engine, client, cfg.Lookup.DailyQuota, log.Logger)

	paths, err := epub.ScanDir(dir, 0)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Printf("No EPUB files found in %s\n", dir)
		return nil
	}

	var metas []*domain.BookMetadata
	for _, path := range paths {
		meta, err := epub.ExtractMetadata(path)
		if err != nil {
			log.Warn("Skipping unreadable ebook", "path", path, "error", err)
			continue
		}
		metas = append(metas, meta)
	}

	report, err := svc.EnrichBatch(ctx, metas, service.BatchOptions{
		MaxBooks: maxBooks,
		DryRun:   dryRun,
	})
	if err != nil {
		return err
	}

	printReport(report)

	if output != "" {
		data, err := json.Marshal(report, jsontext.WithIndent("  "))
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("\nReport written to %s\n", output)
	}

	return nil
}

func printReport(report *service.BatchReport) {
	fmt.Println("=== Batch Report ===")
	fmt.Printf("Run:             %s\n", report.RunID)
	fmt.Printf("Books:           %d\n", report.Total)
	fmt.Printf("Cache hits:      %d\n", report.CacheHits)
	fmt.Printf("Cache misses:    %d\n", report.CacheMisses)
	fmt.Printf("Lookups issued:  %d\n", report.LookupsIssued)
	fmt.Printf("Lookup failures: %d\n", report.LookupFailures)
	fmt.Printf("Calibre ignored: %d\n", report.CalibreIgnored)
	fmt.Printf("Duration:        %s\n", report.Duration)
	if report.DryRun {
		fmt.Println("Dry run: nothing was persisted")
	}
	if report.QuotaExhausted {
		fmt.Println("Lookup quota exhausted during this run")
	}

	fmt.Println()
	fmt.Println("=== Genre Distribution ===")
	for _, genre := range domain.AllGenres {
		if count := report.ByGenre[genre]; count > 0 {
			fmt.Printf("%-20s %d\n", genre, count)
		}
	}

	fmt.Println()
	fmt.Println("=== Provenance ===")
	provenances := []domain.Provenance{
		domain.ProvenanceUserMapping,
		domain.ProvenancePredefined,
		domain.ProvenanceSubstring,
		domain.ProvenanceKeyword,
		domain.ProvenanceAPI,
		domain.ProvenanceFallback,
	}
	for _, p := range provenances {
		if count := report.ByProvenance[p]; count > 0 {
			fmt.Printf("%-20s %d\n", p, count)
		}
	}

	if len(report.UnknownSubjects) > 0 {
		fmt.Println()
		fmt.Println("=== Unmatched Subjects ===")
		for _, subject := range report.UnknownSubjects {
			fmt.Printf("  %s\n", subject)
		}
	}
}
