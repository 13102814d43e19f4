package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/ibonlg/routeshape/internal/adapters/nats"
	"github.com/ibonlg/routeshape/internal/adapters/postgres"
	"github.com/ibonlg/routeshape/internal/adapters/valkey"
	"github.com/ibonlg/routeshape/internal/core/domain"
	"github.com/ibonlg/routeshape/internal/core/ports"
	"github.com/ibonlg/routeshape/internal/core/usecases"
	"github.com/ibonlg/routeshape/internal/pkg/config"
	"github.com/ibonlg/routeshape/internal/pkg/logging"
	"github.com/ibonlg/routeshape/internal/workflows"
)

const taskQueue = "shape-refresh-queue"

type manifest struct {
	Source string `json:"source"`
	Feeds  []struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
		URL  string `json:"url"`
	} `json:"feeds"`
}

func main() {
	cfg, err := config.Load("routeshape-refresher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup("routeshape-refresher", "info", "json")

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
		publisher = nil
	} else {
		defer publisher.Close()
	}

	var pub ports.EventPublisher
	if publisher != nil {
		pub = publisher
	}

	shapeRepo := postgres.NewShapeRepo(db)
	connRepo := postgres.NewConnectionRepo(db)
	decoder := usecases.NewShapeService(shapeRepo, cache)
	ingest := usecases.NewIngestService(shapeRepo, connRepo, decoder, pub, slog.Default())

	// Durable consumers for shape events.
	if publisher != nil {
		startConsumers(ctx, cfg.NATS.URL, publisher)
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: cfg.Feeds.TemporalAddr,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(workflows.RefreshWorkflow)
	w.RegisterActivity(&workflows.RefreshActivities{
		Ingest:    ingest,
		Cache:     cache,
		Publisher: pub,
		Client:    &http.Client{Timeout: 120 * time.Second},
	})

	go scheduleRefreshes(ctx, c, cfg.Feeds.ManifestPath, cfg.Feeds.RefreshMinutes)

	log.Println("refresher worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

// startConsumers attaches the durable JetStream consumers: shape updates are
// relayed onto the broadcast subject for WebSocket clients, decode failures
// are logged for operators.
func startConsumers(ctx context.Context, natsURL string, publisher *natsadapter.Publisher) {
	sub, err := natsadapter.NewSubscriber(natsURL)
	if err != nil {
		slog.Warn("subscriber unavailable", "error", err)
		return
	}

	err = sub.SubscribeShapeUpdates(ctx, func(ctx context.Context, update *domain.ShapeUpdate) error {
		data, err := json.Marshal(update)
		if err != nil {
			return err
		}
		return publisher.PublishBroadcast(ctx, data)
	})
	if err != nil {
		slog.Warn("subscribe shape updates", "error", err)
	}

	err = sub.SubscribeDecodeFailures(ctx, func(ctx context.Context, feedSlug, shapeKey, reason string) error {
		slog.Warn("shape decode failed", "feed", feedSlug, "shape_key", shapeKey, "reason", reason)
		return nil
	})
	if err != nil {
		slog.Warn("subscribe decode failures", "error", err)
	}
}

// scheduleRefreshes starts a refresh workflow for every manifest feed on a
// fixed interval.
func scheduleRefreshes(ctx context.Context, c client.Client, manifestPath string, refreshMinutes int) {
	if refreshMinutes <= 0 {
		refreshMinutes = 60
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		slog.Warn("manifest unavailable, periodic refresh disabled", "path", manifestPath, "error", err)
		return
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		slog.Warn("manifest parse failed, periodic refresh disabled", "error", err)
		return
	}

	ticker := time.NewTicker(time.Duration(refreshMinutes) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, feed := range m.Feeds {
			opts := client.StartWorkflowOptions{
				ID:        fmt.Sprintf("refresh-%s-%d", feed.Slug, time.Now().Unix()),
				TaskQueue: taskQueue,
			}
			input := workflows.RefreshInput{FeedSlug: feed.Slug, FeedURL: feed.URL}
			if _, err := c.ExecuteWorkflow(ctx, opts, workflows.RefreshWorkflow, input); err != nil {
				slog.Error("start refresh workflow", "feed", feed.Slug, "error", err)
			}
		}
	}
}
