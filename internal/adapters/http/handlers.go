package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/ibonlg/routeshape/internal/core/domain"
	"github.com/ibonlg/routeshape/internal/pkg/geospatial"
)

// FeedStats holds statistics about the ingested feed data.
type FeedStats struct {
	Feeds       int    `json:"feeds"`
	Shapes      int    `json:"shapes"`
	Connections int    `json:"connections"`
	TotalPoints int    `json:"total_points"`
	LastIngest  string `json:"last_ingest,omitempty"`
}

// FeedStatsHandler returns row counts from the shape tables.
func FeedStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats FeedStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(DISTINCT feed_slug) FROM shapes),
				(SELECT count(*) FROM shapes),
				(SELECT count(*) FROM connections),
				COALESCE((SELECT sum(point_count) FROM shapes), 0),
				COALESCE((SELECT max(updated_at)::text FROM shapes), '')
		`)
		if err := row.Scan(&stats.Feeds, &stats.Shapes, &stats.Connections,
			&stats.TotalPoints, &stats.LastIngest); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}

type decodeRequest struct {
	Format  domain.ShapeFormat `json:"format"`
	Encoded string             `json:"encoded"`
}

type decodeResponse struct {
	Points       []domain.ShapePoint `json:"points"`
	PointCount   int                 `json:"point_count"`
	LengthMeters float64             `json:"length_meters"`
	Bounds       domain.Bounds       `json:"bounds"`
}

// DecodeHandler decodes an encoded shape without persisting it.
// The format defaults to polyline6 when omitted.
func DecodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req decodeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}

		if req.Format == "" {
			req.Format = domain.FormatPolyline6
		}
		if _, err := domain.ParseShapeFormat(string(req.Format)); err != nil {
			return errBadRequest(c, err.Error())
		}
		if req.Format != domain.FormatPolyline6 {
			return errBadRequest(c, domain.ErrUnsupportedFormat.Error()+": "+string(req.Format))
		}

		points, err := deps.Shapes.Decode("api", req.Encoded)
		if err != nil {
			return errUnprocessable(c, err.Error())
		}

		// Decoded points already satisfy the bounds invariant.
		path, err := domain.PathGeometry(points)
		if err != nil {
			return errInternal(c, err.Error())
		}

		return c.JSON(decodeResponse{
			Points:       points,
			PointCount:   len(points),
			LengthMeters: geospatial.PathLengthMeters(path),
			Bounds:       domain.ShapeBounds(points),
		})
	}
}

// GetShapeHandler returns a single shape record by ID.
func GetShapeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "shape id is required")
		}
		shape, err := deps.Shapes.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "shape not found")
		}
		return c.JSON(shape)
	}
}

// GetShapePointsHandler returns a shape's decoded point sequence.
func GetShapePointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "shape id is required")
		}
		shape, err := deps.Shapes.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "shape not found")
		}

		points, err := deps.Shapes.Points(shape)
		if err != nil {
			return errUnprocessable(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(fiber.Map{
			"shape_key": shape.ShapeKey,
			"points":    points,
			"bounds":    domain.ShapeBounds(points),
		})
	}
}

// GetShapeGeoJSONHandler returns a shape as a GeoJSON LineString feature.
func GetShapeGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "shape id is required")
		}
		shape, err := deps.Shapes.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "shape not found")
		}

		points, err := deps.Shapes.Points(shape)
		if err != nil {
			return errUnprocessable(c, err.Error())
		}

		path, err := domain.PathGeometry(points)
		if err != nil {
			return errInternal(c, err.Error())
		}

		feature := geojson.NewFeature(orb.LineString(path))
		feature.Properties["feed_slug"] = shape.FeedSlug
		feature.Properties["shape_key"] = shape.ShapeKey
		feature.Properties["length_meters"] = shape.LengthMeters

		c.Set("Content-Type", "application/geo+json")
		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(feature)
	}
}

// ListFeedShapesHandler lists shapes for a feed with pagination.
func ListFeedShapesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "feed slug is required")
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		// Clamped here too so the Link headers agree with the page the
		// service actually returns.
		if limit <= 0 || limit > 200 {
			limit = 100
		}

		shapes, total, err := deps.Shapes.ListByFeed(c.Context(), slug, offset, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: shapes, Pagination: pg})
	}
}

// ListFeedConnectionsHandler lists connections for a feed with pagination.
func ListFeedConnectionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "feed slug is required")
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 100
		}

		conns, total, err := deps.Connections.ListByFeed(c.Context(), slug, offset, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: conns, Pagination: pg})
	}
}

// GetConnectionHandler returns a single connection by ID.
func GetConnectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "connection id is required")
		}
		conn, err := deps.Connections.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "connection not found")
		}
		return c.JSON(conn)
	}
}

