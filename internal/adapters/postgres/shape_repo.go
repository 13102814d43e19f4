package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ibonlg/routeshape/internal/core/domain"
)

// ShapeRepo implements ports.ShapeRepository with pgx.
type ShapeRepo struct {
	db *DB
}

// NewShapeRepo creates a new ShapeRepo.
func NewShapeRepo(db *DB) *ShapeRepo {
	return &ShapeRepo{db: db}
}

// linestringWKT renders a decoded point sequence as a PostGIS WKT
// linestring. PostGIS rejects single-point linestrings, so callers get
// an empty string (stored as NULL geom) for fewer than two points.
func linestringWKT(points []domain.ShapePoint) string {
	if len(points) < 2 {
		return ""
	}
	var b strings.Builder
	b.WriteString("LINESTRING(")
	for i, p := range points {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(p.Lon, 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p.Lat, 'f', -1, 64))
	}
	b.WriteByte(')')
	return b.String()
}

const upsertShapeSQL = `
	INSERT INTO shapes (id, feed_slug, shape_key, format, encoded, point_count, length_meters, geom, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, ST_GeogFromText(NULLIF($8, '')), $9, $10)
	ON CONFLICT (feed_slug, shape_key) DO UPDATE
	SET format = EXCLUDED.format, encoded = EXCLUDED.encoded,
	    point_count = EXCLUDED.point_count, length_meters = EXCLUDED.length_meters,
	    geom = EXCLUDED.geom, updated_at = EXCLUDED.updated_at
`

// Upsert inserts or updates a single shape.
func (r *ShapeRepo) Upsert(ctx context.Context, s *domain.Shape, points []domain.ShapePoint) error {
	_, err := r.db.Pool.Exec(ctx, upsertShapeSQL,
		s.ID, s.FeedSlug, s.ShapeKey, string(s.Format), s.Encoded,
		s.PointCount, s.LengthMeters, linestringWKT(points), s.CreatedAt, s.UpdatedAt)
	return err
}

// UpsertBatch inserts many shapes using pgx.Batch.
func (r *ShapeRepo) UpsertBatch(ctx context.Context, shapes []domain.Shape, points [][]domain.ShapePoint) error {
	if len(shapes) != len(points) {
		return fmt.Errorf("shapes/points length mismatch: %d vs %d", len(shapes), len(points))
	}

	batch := &pgx.Batch{}
	for i, s := range shapes {
		batch.Queue(upsertShapeSQL,
			s.ID, s.FeedSlug, s.ShapeKey, string(s.Format), s.Encoded,
			s.PointCount, s.LengthMeters, linestringWKT(points[i]), s.CreatedAt, s.UpdatedAt)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range shapes {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

const selectShapeSQL = `
	SELECT id, feed_slug, shape_key, format, encoded, point_count, length_meters, created_at, updated_at
	FROM shapes
`

func scanShape(row pgx.Row) (*domain.Shape, error) {
	var s domain.Shape
	var format string
	err := row.Scan(&s.ID, &s.FeedSlug, &s.ShapeKey, &format, &s.Encoded,
		&s.PointCount, &s.LengthMeters, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Format = domain.ShapeFormat(format)
	return &s, nil
}

// GetByID returns a shape by UUID.
func (r *ShapeRepo) GetByID(ctx context.Context, id string) (*domain.Shape, error) {
	return scanShape(r.db.Pool.QueryRow(ctx, selectShapeSQL+` WHERE id = $1`, id))
}

// GetByKey returns a shape by feed slug and shape key.
func (r *ShapeRepo) GetByKey(ctx context.Context, feedSlug, shapeKey string) (*domain.Shape, error) {
	return scanShape(r.db.Pool.QueryRow(ctx,
		selectShapeSQL+` WHERE feed_slug = $1 AND shape_key = $2`, feedSlug, shapeKey))
}

// ListByFeed returns a page of shapes plus the feed's total count.
func (r *ShapeRepo) ListByFeed(ctx context.Context, feedSlug string, offset, limit int) ([]domain.Shape, int, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, feed_slug, shape_key, format, encoded, point_count, length_meters,
		       created_at, updated_at, COUNT(*) OVER() AS total
		FROM shapes
		WHERE feed_slug = $1
		ORDER BY shape_key
		OFFSET $2 LIMIT $3
	`, feedSlug, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var shapes []domain.Shape
	var total int
	for rows.Next() {
		var s domain.Shape
		var format string
		if err := rows.Scan(&s.ID, &s.FeedSlug, &s.ShapeKey, &format, &s.Encoded,
			&s.PointCount, &s.LengthMeters, &s.CreatedAt, &s.UpdatedAt, &total); err != nil {
			return nil, 0, err
		}
		s.Format = domain.ShapeFormat(format)
		shapes = append(shapes, s)
	}
	return shapes, total, rows.Err()
}
