package ports

import (
	"context"

	"github.com/ibonlg/routeshape/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishShapeUpdate(ctx context.Context, update *domain.ShapeUpdate) error
	PublishDecodeFailure(ctx context.Context, feedSlug, shapeKey string, decodeErr error) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeShapeUpdates(ctx context.Context, handler func(ctx context.Context, update *domain.ShapeUpdate) error) error
	SubscribeDecodeFailures(ctx context.Context, handler func(ctx context.Context, feedSlug, shapeKey, reason string) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
