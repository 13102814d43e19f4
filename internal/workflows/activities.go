package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ibonlg/routeshape/internal/adapters/valkey"
	"github.com/ibonlg/routeshape/internal/core/domain"
	"github.com/ibonlg/routeshape/internal/core/ports"
	"github.com/ibonlg/routeshape/internal/core/usecases"
)

// RefreshActivities holds the activity implementations for the feed refresh workflow.
type RefreshActivities struct {
	Ingest    *usecases.IngestService
	Cache     *valkey.Cache
	Publisher ports.EventPublisher
	Client    *http.Client
}

// DownloadFeed fetches the raw feed document from its upstream URL.
func (a *RefreshActivities) DownloadFeed(ctx context.Context, url string) ([]byte, error) {
	client := a.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

// IngestFeed parses the raw document and writes its shapes and connections.
func (a *RefreshActivities) IngestFeed(ctx context.Context, feedSlug string, raw []byte) (*RefreshSummary, error) {
	var doc domain.FeedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedSlug, err)
	}
	if doc.Feed == "" {
		doc.Feed = feedSlug
	}

	result, err := a.Ingest.IngestDocument(ctx, &doc)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", feedSlug, err)
	}

	return &RefreshSummary{
		FeedSlug:    result.FeedSlug,
		Shapes:      result.Shapes,
		Connections: result.Connections,
		Failed:      result.Failed,
	}, nil
}

// InvalidateShapeCache drops cached shape responses after a refresh.
func (a *RefreshActivities) InvalidateShapeCache(ctx context.Context, feedSlug string) error {
	if a.Cache == nil {
		log.Printf("no cache configured, skipping invalidation for %s", feedSlug)
		return nil
	}
	if err := a.Cache.DeleteByPrefix(ctx, "shapes:"); err != nil {
		return fmt.Errorf("invalidate shape cache: %w", err)
	}
	return nil
}

// BroadcastRefresh announces a completed refresh to connected clients.
func (a *RefreshActivities) BroadcastRefresh(ctx context.Context, feedSlug string, shapes int) error {
	if a.Publisher == nil {
		log.Printf("REFRESH (no publisher) → feed=%s shapes=%d", feedSlug, shapes)
		return nil
	}
	payload, err := json.Marshal(map[string]any{
		"event":        "feed_refreshed",
		"feed_slug":    feedSlug,
		"shapes":       shapes,
		"refreshed_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return a.Publisher.PublishBroadcast(ctx, payload)
}
