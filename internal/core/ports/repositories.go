package ports

import (
	"context"

	"github.com/ibonlg/routeshape/internal/core/domain"
)

// ShapeRepository persists ingested shapes.
type ShapeRepository interface {
	Upsert(ctx context.Context, shape *domain.Shape, points []domain.ShapePoint) error
	UpsertBatch(ctx context.Context, shapes []domain.Shape, points [][]domain.ShapePoint) error
	GetByID(ctx context.Context, id string) (*domain.Shape, error)
	GetByKey(ctx context.Context, feedSlug, shapeKey string) (*domain.Shape, error)
	ListByFeed(ctx context.Context, feedSlug string, offset, limit int) ([]domain.Shape, int, error)
}

// ConnectionRepository persists feed connections.
type ConnectionRepository interface {
	UpsertBatch(ctx context.Context, conns []domain.Connection) error
	GetByID(ctx context.Context, id string) (*domain.Connection, error)
	ListByFeed(ctx context.Context, feedSlug string, offset, limit int) ([]domain.Connection, int, error)
}
