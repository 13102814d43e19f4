//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibonlg/routeshape/internal/adapters/http"
	"github.com/ibonlg/routeshape/internal/adapters/postgres"
	"github.com/ibonlg/routeshape/internal/core/domain"
	"github.com/ibonlg/routeshape/internal/core/usecases"
	"github.com/ibonlg/routeshape/internal/pkg/config"
)

// setupTestDB connects to the test database and returns a clean DB instance.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("routeshape-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	db := &postgres.DB{Pool: pool}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	return db
}

// setupTestDeps creates dependencies with real DB and repos, no cache.
func setupTestDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	shapeRepo := postgres.NewShapeRepo(db)
	connRepo := postgres.NewConnectionRepo(db)

	return &http.Dependencies{
		Shapes:      usecases.NewShapeService(shapeRepo, nil),
		Connections: connRepo,
		DB:          db,
	}
}

// seedTestShape inserts a test shape and returns its UUID.
func seedTestShape(t *testing.T, db *postgres.DB, feedSlug, shapeKey string) string {
	ctx := context.Background()
	points, err := domain.DecodePolyline6("czaa{AythgU}K_C")
	if err != nil {
		t.Fatalf("decode seed shape: %v", err)
	}

	shape := &domain.Shape{
		ID:         uuid.NewString(),
		FeedSlug:   feedSlug,
		ShapeKey:   shapeKey,
		Format:     domain.FormatPolyline6,
		Encoded:    "czaa{AythgU}K_C",
		PointCount: len(points),
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := postgres.NewShapeRepo(db).Upsert(ctx, shape, points); err != nil {
		t.Fatalf("seed shape: %v", err)
	}
	return shape.ID
}

// TestListFeedShapes_Integration tests shape listing against a real database.
func TestListFeedShapes_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	slug := "test-feed-" + time.Now().Format("20060102150405")
	seedTestShape(t, db, slug, "a:b")
	seedTestShape(t, db, slug, "b:c")

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/feeds/"+slug+"/shapes", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Shape      `json:"data"`
		Pagination struct{ Total int } `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if result.Pagination.Total != 2 {
		t.Errorf("expected 2 shapes, got %d", result.Pagination.Total)
	}
}

// TestGetShape_Integration tests shape lookup and re-decode against a real database.
func TestGetShape_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	slug := "test-feed-" + time.Now().Format("20060102150405")
	id := seedTestShape(t, db, slug, "munich-central:munich-east")

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/shapes/"+id+"/points", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Points []domain.ShapePoint `json:"points"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(result.Points) != 2 {
		t.Errorf("expected 2 points, got %d", len(result.Points))
	}
}
