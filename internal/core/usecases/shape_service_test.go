package usecases_test

import (
	"context"
	"testing"

	"github.com/ibonlg/routeshape/internal/core/domain"
	"github.com/ibonlg/routeshape/internal/core/usecases"
)

// --- Mock ShapeRepository ---

type mockShapeRepo struct {
	upsertBatchFn func(ctx context.Context, shapes []domain.Shape, points [][]domain.ShapePoint) error
	getByIDFn     func(ctx context.Context, id string) (*domain.Shape, error)
	getByKeyFn    func(ctx context.Context, feedSlug, shapeKey string) (*domain.Shape, error)
	listByFeedFn  func(ctx context.Context, feedSlug string, offset, limit int) ([]domain.Shape, int, error)
}

func (m *mockShapeRepo) Upsert(ctx context.Context, shape *domain.Shape, points []domain.ShapePoint) error {
	return nil
}

func (m *mockShapeRepo) UpsertBatch(ctx context.Context, shapes []domain.Shape, points [][]domain.ShapePoint) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, shapes, points)
	}
	return nil
}

func (m *mockShapeRepo) GetByID(ctx context.Context, id string) (*domain.Shape, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockShapeRepo) GetByKey(ctx context.Context, feedSlug, shapeKey string) (*domain.Shape, error) {
	if m.getByKeyFn != nil {
		return m.getByKeyFn(ctx, feedSlug, shapeKey)
	}
	return nil, nil
}

func (m *mockShapeRepo) ListByFeed(ctx context.Context, feedSlug string, offset, limit int) ([]domain.Shape, int, error) {
	if m.listByFeedFn != nil {
		return m.listByFeedFn(ctx, feedSlug, offset, limit)
	}
	return nil, 0, nil
}

// --- Mock CacheService ---

type mockCache struct {
	store map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{store: map[string][]byte{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := m.store[key]; ok {
		return data, nil
	}
	return nil, context.Canceled
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.store[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.store, key)
	return nil
}

// --- Tests ---

func TestShapeService_Decode(t *testing.T) {
	svc := usecases.NewShapeService(&mockShapeRepo{}, nil)

	points, err := svc.Decode("test-feed", "czaa{AythgU}K_C")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Lat != 48.268722 || points[0].Lon != 11.670365 {
		t.Errorf("unexpected first point: %+v", points[0])
	}
}

func TestShapeService_Decode_Truncated(t *testing.T) {
	svc := usecases.NewShapeService(&mockShapeRepo{}, nil)

	if _, err := svc.Decode("test-feed", "}"); err == nil {
		t.Fatal("expected error for truncated input")
	}
}

func TestShapeService_GetByID_CacheMiss(t *testing.T) {
	repoCalls := 0
	repo := &mockShapeRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Shape, error) {
			repoCalls++
			return &domain.Shape{ID: id, FeedSlug: "db-regional", PointCount: 71}, nil
		},
	}
	cache := newMockCache()

	svc := usecases.NewShapeService(repo, cache)

	shape, err := svc.GetByID(context.Background(), "abc-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shape.PointCount != 71 {
		t.Errorf("expected 71 points, got %d", shape.PointCount)
	}
	if repoCalls != 1 {
		t.Fatalf("expected 1 repo call, got %d", repoCalls)
	}

	// Second read should come from cache.
	if _, err := svc.GetByID(context.Background(), "abc-123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repoCalls != 1 {
		t.Errorf("expected cached read, repo called %d times", repoCalls)
	}
}

func TestShapeService_ListByFeed_ClampLimit(t *testing.T) {
	repo := &mockShapeRepo{
		listByFeedFn: func(ctx context.Context, feedSlug string, offset, limit int) ([]domain.Shape, int, error) {
			if limit != 100 {
				t.Errorf("expected limit clamped to 100, got %d", limit)
			}
			if offset != 0 {
				t.Errorf("expected offset clamped to 0, got %d", offset)
			}
			return nil, 0, nil
		},
	}

	svc := usecases.NewShapeService(repo, nil)
	_, _, _ = svc.ListByFeed(context.Background(), "db-regional", -5, 999)
}

func TestShapeService_Points_NoShape(t *testing.T) {
	svc := usecases.NewShapeService(&mockShapeRepo{}, nil)

	shape := &domain.Shape{ID: "abc", Format: domain.FormatNoShape}
	if _, err := svc.Points(shape); err == nil {
		t.Fatal("expected error for shape without geometry")
	}
}

func TestShapeService_Points(t *testing.T) {
	svc := usecases.NewShapeService(&mockShapeRepo{}, nil)

	shape := &domain.Shape{
		ID:       "abc",
		FeedSlug: "db-regional",
		Format:   domain.FormatPolyline6,
		Encoded:  "czaa{AythgU",
	}
	points, err := svc.Points(shape)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
}
