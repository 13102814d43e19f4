package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ibonlg/routeshape/internal/core/domain"
)

// ConnectionRepo implements ports.ConnectionRepository with pgx.
type ConnectionRepo struct {
	db *DB
}

// NewConnectionRepo creates a new ConnectionRepo.
func NewConnectionRepo(db *DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

const upsertConnectionSQL = `
	INSERT INTO connections (id, feed_slug, from_place, to_place, duration_seconds, format, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (feed_slug, from_place, to_place) DO UPDATE
	SET duration_seconds = EXCLUDED.duration_seconds, format = EXCLUDED.format
`

// UpsertBatch inserts many connections using pgx.Batch.
func (r *ConnectionRepo) UpsertBatch(ctx context.Context, conns []domain.Connection) error {
	batch := &pgx.Batch{}
	for _, c := range conns {
		batch.Queue(upsertConnectionSQL,
			c.ID, c.FeedSlug, c.From, c.To, c.DurationSeconds, string(c.Format), c.CreatedAt)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range conns {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

const selectConnectionSQL = `
	SELECT id, feed_slug, from_place, to_place, duration_seconds, format, created_at
	FROM connections
`

func scanConnection(row pgx.Row) (*domain.Connection, error) {
	var c domain.Connection
	var format string
	err := row.Scan(&c.ID, &c.FeedSlug, &c.From, &c.To, &c.DurationSeconds, &format, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Format = domain.ShapeFormat(format)
	return &c, nil
}

// GetByID returns a connection by UUID.
func (r *ConnectionRepo) GetByID(ctx context.Context, id string) (*domain.Connection, error) {
	return scanConnection(r.db.Pool.QueryRow(ctx, selectConnectionSQL+` WHERE id = $1`, id))
}

// ListByFeed returns a page of connections plus the feed's total count.
func (r *ConnectionRepo) ListByFeed(ctx context.Context, feedSlug string, offset, limit int) ([]domain.Connection, int, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, feed_slug, from_place, to_place, duration_seconds, format, created_at,
		       COUNT(*) OVER() AS total
		FROM connections
		WHERE feed_slug = $1
		ORDER BY from_place, to_place
		OFFSET $2 LIMIT $3
	`, feedSlug, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var conns []domain.Connection
	var total int
	for rows.Next() {
		var c domain.Connection
		var format string
		if err := rows.Scan(&c.ID, &c.FeedSlug, &c.From, &c.To, &c.DurationSeconds,
			&format, &c.CreatedAt, &total); err != nil {
			return nil, 0, err
		}
		c.Format = domain.ShapeFormat(format)
		conns = append(conns, c)
	}
	return conns, total, rows.Err()
}
