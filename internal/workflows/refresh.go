package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RefreshInput is the input for the feed refresh workflow.
type RefreshInput struct {
	FeedSlug string
	FeedURL  string
}

// RefreshSummary reports what a refresh run changed.
type RefreshSummary struct {
	FeedSlug    string
	Shapes      int
	Connections int
	Failed      int
}

// RefreshWorkflow re-downloads a connection feed, ingests it, and invalidates
// the cached API responses for that feed. If invalidation fails after new data
// has been written, a broadcast notice is published so connected clients
// refetch instead of serving stale results (saga compensation).
func RefreshWorkflow(ctx workflow.Context, input RefreshInput) (*RefreshSummary, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting feed refresh", "feed", input.FeedSlug)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Download the feed document
	var raw []byte
	err := workflow.ExecuteActivity(ctx, "DownloadFeed", input.FeedURL).Get(ctx, &raw)
	if err != nil {
		return nil, err
	}

	// Step 2: Ingest shapes and connections
	var summary RefreshSummary
	err = workflow.ExecuteActivity(ctx, "IngestFeed", input.FeedSlug, raw).Get(ctx, &summary)
	if err != nil {
		return nil, err
	}

	// Step 3: Drop cached responses that may now be stale
	err = workflow.ExecuteActivity(ctx, "InvalidateShapeCache", input.FeedSlug).Get(ctx, nil)
	if err != nil {
		logger.Warn("cache invalidation failed, broadcasting refresh notice", "error", err)
		// Compensate: tell connected clients to refetch past the cache.
		_ = workflow.ExecuteActivity(ctx, "BroadcastRefresh", input.FeedSlug, summary.Shapes).Get(ctx, nil)
		return &summary, err
	}

	// Step 4: Announce the refresh
	err = workflow.ExecuteActivity(ctx, "BroadcastRefresh", input.FeedSlug, summary.Shapes).Get(ctx, nil)
	if err != nil {
		logger.Warn("refresh broadcast failed", "error", err)
	}

	logger.Info("Feed refresh complete", "feed", input.FeedSlug, "shapes", summary.Shapes)
	return &summary, nil
}
