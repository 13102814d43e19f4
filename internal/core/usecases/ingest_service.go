package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ibonlg/routeshape/internal/core/domain"
	"github.com/ibonlg/routeshape/internal/core/ports"
	"github.com/ibonlg/routeshape/internal/pkg/geospatial"
	"github.com/ibonlg/routeshape/internal/pkg/metrics"
)

// IngestService turns downloaded feed documents into persisted shapes
// and connections, publishing an update event per ingested shape.
type IngestService struct {
	shapes    ports.ShapeRepository
	conns     ports.ConnectionRepository
	decoder   *ShapeService
	publisher ports.EventPublisher
	logger    *slog.Logger
}

// NewIngestService creates a new IngestService.
func NewIngestService(
	shapes ports.ShapeRepository,
	conns ports.ConnectionRepository,
	decoder *ShapeService,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		shapes:    shapes,
		conns:     conns,
		decoder:   decoder,
		publisher: publisher,
		logger:    logger,
	}
}

// IngestResult summarizes one document ingestion.
type IngestResult struct {
	FeedSlug    string `json:"feed_slug"`
	Shapes      int    `json:"shapes"`
	Connections int    `json:"connections"`
	Skipped     int    `json:"skipped"`
	Failed      int    `json:"failed"`
}

// IngestDocument decodes and stores every entry of a feed document.
// A connection whose shape fails to decode is dropped and reported,
// never aborting the rest of the document. Entries tagged no_shape are
// stored as schedule-only connections without geometry.
func (s *IngestService) IngestDocument(ctx context.Context, doc *domain.FeedDocument) (*IngestResult, error) {
	if doc.Feed == "" {
		return nil, fmt.Errorf("feed document missing slug")
	}

	start := time.Now()
	defer func() {
		metrics.FeedIngestDuration.WithLabelValues(doc.Feed).Observe(time.Since(start).Seconds())
	}()

	now := time.Now().UTC()
	result := &IngestResult{FeedSlug: doc.Feed}

	var (
		shapes      []domain.Shape
		shapePoints [][]domain.ShapePoint
		conns       []domain.Connection
	)

	for _, fc := range doc.Connections {
		// The tag arrives raw so one bad entry cannot abort
		// unmarshalling the document; it is validated here instead.
		format, err := domain.ParseShapeFormat(fc.ShapeFormat)
		if err != nil {
			s.logger.Warn("skipping connection with unknown shape format",
				"feed", doc.Feed, "shape_key", fc.ShapeKey, "format", fc.ShapeFormat)
			metrics.FeedIngestErrors.WithLabelValues(doc.Feed).Inc()
			result.Failed++
			continue
		}

		conn := domain.Connection{
			ID:              uuid.NewString(),
			FeedSlug:        doc.Feed,
			From:            fc.From,
			To:              fc.To,
			DurationSeconds: fc.DurationSeconds,
			Format:          format,
			CreatedAt:       now,
		}

		switch format {
		case domain.FormatNoShape:
			conns = append(conns, conn)
			result.Skipped++
			continue
		case domain.FormatPolyline6:
		default:
			s.logger.Warn("skipping connection with unsupported shape format",
				"feed", doc.Feed, "shape_key", fc.ShapeKey, "format", fc.ShapeFormat)
			metrics.FeedIngestErrors.WithLabelValues(doc.Feed).Inc()
			result.Failed++
			continue
		}

		points, err := s.decoder.Decode(doc.Feed, fc.Shape)
		if err != nil {
			s.logger.Warn("shape decode failed",
				"feed", doc.Feed, "shape_key", fc.ShapeKey, "error", err)
			metrics.FeedIngestErrors.WithLabelValues(doc.Feed).Inc()
			result.Failed++
			if s.publisher != nil {
				if perr := s.publisher.PublishDecodeFailure(ctx, doc.Feed, fc.ShapeKey, err); perr != nil {
					s.logger.Error("failed to publish decode failure", "error", perr)
				}
			}
			continue
		}

		path, err := domain.PathGeometry(points)
		if err != nil {
			s.logger.Warn("shape geometry conversion failed",
				"feed", doc.Feed, "shape_key", fc.ShapeKey, "error", err)
			metrics.FeedIngestErrors.WithLabelValues(doc.Feed).Inc()
			result.Failed++
			continue
		}

		shape := domain.Shape{
			ID:           uuid.NewString(),
			FeedSlug:     doc.Feed,
			ShapeKey:     fc.ShapeKey,
			Format:       format,
			Encoded:      fc.Shape,
			PointCount:   len(points),
			LengthMeters: geospatial.PathLengthMeters(path),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		shapes = append(shapes, shape)
		shapePoints = append(shapePoints, points)
		conns = append(conns, conn)
	}

	if len(shapes) > 0 {
		if err := s.shapes.UpsertBatch(ctx, shapes, shapePoints); err != nil {
			metrics.FeedIngestErrors.WithLabelValues(doc.Feed).Inc()
			return nil, fmt.Errorf("upserting shapes for feed %s: %w", doc.Feed, err)
		}
	}
	if len(conns) > 0 {
		if err := s.conns.UpsertBatch(ctx, conns); err != nil {
			metrics.FeedIngestErrors.WithLabelValues(doc.Feed).Inc()
			return nil, fmt.Errorf("upserting connections for feed %s: %w", doc.Feed, err)
		}
	}

	for _, shape := range shapes {
		update := &domain.ShapeUpdate{
			FeedSlug:     shape.FeedSlug,
			ShapeKey:     shape.ShapeKey,
			PointCount:   shape.PointCount,
			LengthMeters: shape.LengthMeters,
			UpdatedAt:    shape.UpdatedAt,
		}
		if s.publisher != nil {
			if err := s.publisher.PublishShapeUpdate(ctx, update); err != nil {
				s.logger.Error("failed to publish shape update",
					"feed", shape.FeedSlug, "shape_key", shape.ShapeKey, "error", err)
			}
		}
	}

	result.Shapes = len(shapes)
	result.Connections = len(conns)

	s.logger.Info("feed document ingested",
		"feed", doc.Feed,
		"shapes", result.Shapes,
		"connections", result.Connections,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
