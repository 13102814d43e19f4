package domain

import (
	"time"
)

// Shape is a persisted path geometry ingested from a connection feed.
// The encoded polyline is kept verbatim; decoding is cheap and pure, so
// read paths re-decode rather than storing an expanded point list.
type Shape struct {
	ID           string      `json:"id"`
	FeedSlug     string      `json:"feed_slug"`
	ShapeKey     string      `json:"shape_key"`
	Format       ShapeFormat `json:"format"`
	Encoded      string      `json:"encoded,omitempty"`
	PointCount   int         `json:"point_count"`
	LengthMeters float64     `json:"length_meters"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Connection is one entry of a connection feed: a scheduled link between
// two places whose path geometry arrives polyline6-encoded. The Shape
// field decodes during deserialization via EncodedShape.
type Connection struct {
	ID              string       `json:"id,omitempty"`
	FeedSlug        string       `json:"feed_slug,omitempty"`
	From            string       `json:"from"`
	To              string       `json:"to"`
	DurationSeconds int          `json:"duration_seconds"`
	Format          ShapeFormat  `json:"shape_format,omitempty"`
	Shape           EncodedShape `json:"shape,omitempty"`
	CreatedAt       time.Time    `json:"created_at,omitempty"`
}

// ShapeUpdate is the event published when a shape is ingested or
// refreshed.
type ShapeUpdate struct {
	FeedSlug     string    `json:"feed_slug"`
	ShapeKey     string    `json:"shape_key"`
	PointCount   int       `json:"point_count"`
	LengthMeters float64   `json:"length_meters"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Bounds is the axis-aligned bounding box of a decoded shape.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// ShapeBounds computes the bounding box of a point sequence. Returns the
// zero Bounds for an empty sequence.
func ShapeBounds(points []ShapePoint) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLon: points[0].Lon, MaxLon: points[0].Lon,
	}
	for _, p := range points[1:] {
		if p.Lat < b.MinLat {
			b.MinLat = p.Lat
		}
		if p.Lat > b.MaxLat {
			b.MaxLat = p.Lat
		}
		if p.Lon < b.MinLon {
			b.MinLon = p.Lon
		}
		if p.Lon > b.MaxLon {
			b.MaxLon = p.Lon
		}
	}
	return b
}
