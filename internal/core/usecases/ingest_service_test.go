package usecases_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/ibonlg/routeshape/internal/core/domain"
	"github.com/ibonlg/routeshape/internal/core/usecases"
)

// --- Mock ConnectionRepository ---

type mockConnRepo struct {
	upsertBatchFn func(ctx context.Context, conns []domain.Connection) error
}

func (m *mockConnRepo) UpsertBatch(ctx context.Context, conns []domain.Connection) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, conns)
	}
	return nil
}

func (m *mockConnRepo) GetByID(ctx context.Context, id string) (*domain.Connection, error) {
	return nil, nil
}

func (m *mockConnRepo) ListByFeed(ctx context.Context, feedSlug string, offset, limit int) ([]domain.Connection, int, error) {
	return nil, 0, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	updates  []*domain.ShapeUpdate
	failures []string
}

func (m *mockPublisher) PublishShapeUpdate(ctx context.Context, update *domain.ShapeUpdate) error {
	m.updates = append(m.updates, update)
	return nil
}

func (m *mockPublisher) PublishDecodeFailure(ctx context.Context, feedSlug, shapeKey string, decodeErr error) error {
	m.failures = append(m.failures, shapeKey)
	return nil
}

func (m *mockPublisher) PublishBroadcast(ctx context.Context, data []byte) error { return nil }

func newIngestService(shapes *mockShapeRepo, conns *mockConnRepo, pub *mockPublisher) *usecases.IngestService {
	decoder := usecases.NewShapeService(shapes, nil)
	return usecases.NewIngestService(shapes, conns, decoder, pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// --- Tests ---

func TestIngestService_IngestDocument(t *testing.T) {
	var gotShapes []domain.Shape
	var gotConns []domain.Connection

	shapes := &mockShapeRepo{
		upsertBatchFn: func(ctx context.Context, s []domain.Shape, points [][]domain.ShapePoint) error {
			gotShapes = s
			return nil
		},
	}
	conns := &mockConnRepo{
		upsertBatchFn: func(ctx context.Context, c []domain.Connection) error {
			gotConns = c
			return nil
		},
	}
	pub := &mockPublisher{}

	svc := newIngestService(shapes, conns, pub)

	doc := &domain.FeedDocument{
		Source: "https://feeds.example.com/db-regional.json",
		Feed:   "db-regional",
		Connections: []domain.FeedConnection{
			{
				From:            "munich-central",
				To:              "munich-east",
				DurationSeconds: 540,
				ShapeFormat:     "polyline6",
				ShapeKey:        "munich-central:munich-east",
				Shape:           "czaa{AythgU}K_C",
			},
			{
				From:            "munich-east",
				To:              "freising",
				DurationSeconds: 1320,
				ShapeFormat:     "no_shape",
				ShapeKey:        "munich-east:freising",
			},
		},
	}

	result, err := svc.IngestDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Shapes != 1 || result.Connections != 2 || result.Skipped != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(gotShapes) != 1 {
		t.Fatalf("expected 1 upserted shape, got %d", len(gotShapes))
	}
	if gotShapes[0].ShapeKey != "munich-central:munich-east" {
		t.Errorf("unexpected shape key: %s", gotShapes[0].ShapeKey)
	}
	if gotShapes[0].PointCount != 2 {
		t.Errorf("expected 2 points, got %d", gotShapes[0].PointCount)
	}
	if gotShapes[0].LengthMeters <= 0 {
		t.Errorf("expected positive length, got %f", gotShapes[0].LengthMeters)
	}
	if len(gotConns) != 2 {
		t.Fatalf("expected 2 upserted connections, got %d", len(gotConns))
	}
	if len(pub.updates) != 1 {
		t.Fatalf("expected 1 shape update event, got %d", len(pub.updates))
	}
	if pub.updates[0].ShapeKey != "munich-central:munich-east" {
		t.Errorf("unexpected update key: %s", pub.updates[0].ShapeKey)
	}
}

func TestIngestService_DecodeFailure(t *testing.T) {
	upserted := false
	shapes := &mockShapeRepo{
		upsertBatchFn: func(ctx context.Context, s []domain.Shape, points [][]domain.ShapePoint) error {
			upserted = true
			return nil
		},
	}
	pub := &mockPublisher{}

	svc := newIngestService(shapes, &mockConnRepo{}, pub)

	doc := &domain.FeedDocument{
		Feed: "db-regional",
		Connections: []domain.FeedConnection{
			{
				From:        "a",
				To:          "b",
				ShapeFormat: "polyline6",
				ShapeKey:    "a:b",
				Shape:       "}", // truncated field
			},
		},
	}

	result, err := svc.IngestDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed != 1 || result.Shapes != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if upserted {
		t.Error("shapes should not be upserted when every decode fails")
	}
	if len(pub.failures) != 1 || pub.failures[0] != "a:b" {
		t.Fatalf("expected decode failure event for a:b, got %v", pub.failures)
	}
}

func TestIngestService_UnsupportedFormat(t *testing.T) {
	svc := newIngestService(&mockShapeRepo{}, &mockConnRepo{}, &mockPublisher{})

	doc := &domain.FeedDocument{
		Feed: "db-regional",
		Connections: []domain.FeedConnection{
			{From: "a", To: "b", ShapeFormat: "geojson", ShapeKey: "a:b", Shape: "{}"},
		},
	}

	result, err := svc.IngestDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed != 1 || result.Shapes != 0 || result.Connections != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestIngestService_UnknownFormatIsolated(t *testing.T) {
	var gotShapes []domain.Shape
	shapes := &mockShapeRepo{
		upsertBatchFn: func(ctx context.Context, s []domain.Shape, points [][]domain.ShapePoint) error {
			gotShapes = s
			return nil
		},
	}
	svc := newIngestService(shapes, &mockConnRepo{}, &mockPublisher{})

	// The format tag is carried raw, so an unknown tag in one entry must
	// not abort unmarshalling the document or drop its valid siblings.
	raw := `{
		"feed": "db-regional",
		"connections": [
			{"from": "a", "to": "b", "shape_format": "wkt", "shape_key": "a:b", "shape": "LINESTRING(0 0, 1 1)"},
			{"from": "munich-central", "to": "munich-east", "shape_format": "polyline6", "shape_key": "munich-central:munich-east", "shape": "czaa{AythgU}K_C"}
		]
	}`

	var doc domain.FeedDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("document with unknown tag must still unmarshal: %v", err)
	}

	result, err := svc.IngestDocument(context.Background(), &doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed != 1 || result.Shapes != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(gotShapes) != 1 || gotShapes[0].ShapeKey != "munich-central:munich-east" {
		t.Fatalf("expected the valid sibling to be ingested, got %+v", gotShapes)
	}
}

func TestIngestService_MissingSlug(t *testing.T) {
	svc := newIngestService(&mockShapeRepo{}, &mockConnRepo{}, &mockPublisher{})

	if _, err := svc.IngestDocument(context.Background(), &domain.FeedDocument{}); err == nil {
		t.Fatal("expected error for document without feed slug")
	}
}
