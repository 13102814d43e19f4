package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ibonlg/routeshape/internal/core/domain"
	"github.com/ibonlg/routeshape/internal/core/ports"
	"github.com/ibonlg/routeshape/internal/pkg/metrics"
)

// ShapeService handles shape-related business logic.
type ShapeService struct {
	shapes ports.ShapeRepository
	cache  ports.CacheService
}

// NewShapeService creates a new ShapeService.
func NewShapeService(shapes ports.ShapeRepository, cache ports.CacheService) *ShapeService {
	return &ShapeService{shapes: shapes, cache: cache}
}

// Decode decodes a polyline6 payload, recording decode metrics under the
// given feed label. It is the single decode entry point for request and
// ingestion paths so every decode shows up in the counters.
func (s *ShapeService) Decode(feed, encoded string) ([]domain.ShapePoint, error) {
	start := time.Now()
	points, err := domain.DecodePolyline6(encoded)
	metrics.DecodeDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.DecodeErrors.WithLabelValues(feed, decodeReason(err)).Inc()
		return nil, err
	}

	metrics.ShapesDecoded.WithLabelValues(feed).Inc()
	metrics.PointsPerShape.Observe(float64(len(points)))
	return points, nil
}

// GetByID returns a single shape, read-through cached.
func (s *ShapeService) GetByID(ctx context.Context, id string) (*domain.Shape, error) {
	cacheKey := "shapes:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var shape domain.Shape
			if err := json.Unmarshal(data, &shape); err == nil {
				metrics.CacheHits.WithLabelValues("shape_by_id").Inc()
				return &shape, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("shape_by_id").Inc()
	}

	shape, err := s.shapes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(shape); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return shape, nil
}

// GetByKey returns a shape by its feed slug and shape key.
func (s *ShapeService) GetByKey(ctx context.Context, feedSlug, shapeKey string) (*domain.Shape, error) {
	return s.shapes.GetByKey(ctx, feedSlug, shapeKey)
}

// ListByFeed returns a page of shapes for a feed plus the total count.
func (s *ShapeService) ListByFeed(ctx context.Context, feedSlug string, offset, limit int) ([]domain.Shape, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.shapes.ListByFeed(ctx, feedSlug, offset, limit)
}

// Points re-decodes a stored shape into its point sequence. Shapes are
// stored with the encoded polyline verbatim, so this is a pure pass
// through the decoder.
func (s *ShapeService) Points(shape *domain.Shape) ([]domain.ShapePoint, error) {
	if shape.Format == domain.FormatNoShape {
		return nil, fmt.Errorf("shape %s declares no geometry", shape.ID)
	}
	return s.Decode(shape.FeedSlug, shape.Encoded)
}

// decodeReason maps a typed decode error to its metric label.
func decodeReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, domain.ErrInvalidCharacter):
		return "invalid_character"
	case errors.Is(err, domain.ErrTruncatedField):
		return "truncated_field"
	case errors.Is(err, domain.ErrCoordinateOutOfRange):
		return "coordinate_out_of_range"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return "unsupported_format"
	default:
		return "other"
	}
}
