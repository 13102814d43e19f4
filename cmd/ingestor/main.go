package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	natsadapter "github.com/ibonlg/routeshape/internal/adapters/nats"
	"github.com/ibonlg/routeshape/internal/adapters/postgres"
	"github.com/ibonlg/routeshape/internal/core/domain"
	"github.com/ibonlg/routeshape/internal/core/ports"
	"github.com/ibonlg/routeshape/internal/core/usecases"
	"github.com/ibonlg/routeshape/internal/pkg/config"
	"github.com/ibonlg/routeshape/internal/pkg/logging"
)

// ---------------------------------------------------------------------------
// Manifest types
// ---------------------------------------------------------------------------

type Manifest struct {
	Source string      `json:"source"`
	Feeds  []FeedEntry `json:"feeds"`
}

type FeedEntry struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	URL  string `json:"url"`
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	cfg, err := config.Load("routeshape-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup("routeshape-ingestor", "info", "json")

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
		publisher = nil
	} else {
		defer publisher.Close()
	}

	// Load manifest
	manifestPath := cfg.Feeds.ManifestPath
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}

	log.Printf("RouteShape ingestor — %d feeds from %s", len(manifest.Feeds), manifest.Source)

	// Filter feeds (optional CLI arg: slug list)
	slugFilter := map[string]bool{}
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			slugFilter[strings.TrimSpace(s)] = true
		}
	}

	shapeRepo := postgres.NewShapeRepo(db)
	connRepo := postgres.NewConnectionRepo(db)
	decoder := usecases.NewShapeService(shapeRepo, nil)

	var pub ports.EventPublisher
	if publisher != nil {
		pub = publisher
	}

	ingest := usecases.NewIngestService(shapeRepo, connRepo, decoder, pub, slog.Default())

	client := &http.Client{Timeout: 120 * time.Second}

	var wg sync.WaitGroup
	sem := make(chan struct{}, cfg.Feeds.MaxConcurrent)

	for _, feed := range manifest.Feeds {
		if len(slugFilter) > 0 && !slugFilter[feed.Slug] {
			continue
		}

		wg.Add(1)
		go func(f FeedEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ingestFeed(ctx, client, ingest, f); err != nil {
				log.Printf("ERROR [%s]: %v", f.Slug, err)
			}
		}(feed)
	}

	wg.Wait()
	log.Println("ingestion complete")
}

// ---------------------------------------------------------------------------
// Per-feed ingestion
// ---------------------------------------------------------------------------

func ingestFeed(ctx context.Context, client *http.Client, ingest *usecases.IngestService, feed FeedEntry) error {
	log.Printf("[%s] downloading feed from %s", feed.Slug, feed.URL)

	doc, err := downloadFeed(ctx, client, feed)
	if err != nil {
		return err
	}

	result, err := ingest.IngestDocument(ctx, doc)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	log.Printf("[%s] done: %d shapes, %d connections, %d skipped, %d failed",
		feed.Slug, result.Shapes, result.Connections, result.Skipped, result.Failed)
	return nil
}

// downloadFeed fetches and parses a connection feed document.
func downloadFeed(ctx context.Context, client *http.Client, feed FeedEntry) (*domain.FeedDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, feed.URL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var doc domain.FeedDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	if doc.Feed == "" {
		doc.Feed = feed.Slug
	}
	if doc.Source == "" {
		doc.Source = feed.URL
	}

	return &doc, nil
}
