package domain

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// ShapeFormat declares how a connection's path geometry is encoded.
type ShapeFormat string

const (
	FormatPolyline6 ShapeFormat = "polyline6"
	FormatPolyline5 ShapeFormat = "polyline5"
	FormatGeoJSON   ShapeFormat = "geojson"
	FormatNoShape   ShapeFormat = "no_shape"
)

// ErrUnknownFormat is returned when a shape format tag is not one of the
// four declared values.
var ErrUnknownFormat = errors.New("unknown shape format")

// ErrUnsupportedFormat is returned by DecodeShape for declared formats
// that have no decoder. Only polyline6 decoding is implemented.
var ErrUnsupportedFormat = errors.New("unsupported shape format")

// ParseShapeFormat validates a raw format tag.
func ParseShapeFormat(s string) (ShapeFormat, error) {
	switch f := ShapeFormat(s); f {
	case FormatPolyline6, FormatPolyline5, FormatGeoJSON, FormatNoShape:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// UnmarshalJSON enforces the closed set of format tags. The empty
// string is accepted as the unset zero value so records round-trip
// through JSON (cache entries, API responses) without a tag.
func (f *ShapeFormat) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("shape format: expected JSON string, got %s", data)
	}
	raw := string(data[1 : len(data)-1])
	if raw == "" {
		*f = ""
		return nil
	}
	parsed, err := ParseShapeFormat(raw)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// DecodeShape decodes an encoded shape according to its declared format.
// Only polyline6 has decode behavior; every other tag is an explicit
// ErrUnsupportedFormat rather than a silent no-op. Callers should check
// for FormatNoShape before asking for geometry at all.
func DecodeShape(format ShapeFormat, encoded string) ([]ShapePoint, error) {
	switch format {
	case FormatPolyline6:
		return DecodePolyline6(encoded)
	case FormatPolyline5, FormatGeoJSON, FormatNoShape:
		return nil, fmt.Errorf("decode shape: %w: %s", ErrUnsupportedFormat, format)
	default:
		return nil, fmt.Errorf("decode shape: %w: %q", ErrUnknownFormat, format)
	}
}

// ErrCoordinateOutOfRange is returned when a coordinate falls outside the
// accepted WGS84 bounds.
var ErrCoordinateOutOfRange = errors.New("coordinate out of range")

// ShapePoint is a single geographic coordinate of a decoded path, in
// degrees (WGS84).
type ShapePoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Validate checks the coordinate bounds. The intervals are open: the
// exact poles and the antimeridian are rejected, matching the upstream
// routing engines this service ingests from.
func (p ShapePoint) Validate() error {
	if !(p.Lat > -90 && p.Lat < 90) {
		return fmt.Errorf("%w: lat %v", ErrCoordinateOutOfRange, p.Lat)
	}
	if !(p.Lon > -180 && p.Lon < 180) {
		return fmt.Errorf("%w: lon %v", ErrCoordinateOutOfRange, p.Lon)
	}
	return nil
}

// Geometry converts the point to an orb 2D geometry point (x=lon, y=lat)
// for use with planar geometry algorithms. The bounds invariant is
// re-checked here because geometry consumers may construct points
// outside the decoder path.
func (p ShapePoint) Geometry() (orb.Point, error) {
	if err := p.Validate(); err != nil {
		return orb.Point{}, err
	}
	return orb.Point{p.Lon, p.Lat}, nil
}

// Compact converts the point to its reduced-precision storage form.
// float32 keeps roughly seven significant digits, which is an accepted
// trade-off for bulk in-memory storage of shape points. The bounds
// invariant is re-checked before conversion.
func (p ShapePoint) Compact() (Coordinate, error) {
	if err := p.Validate(); err != nil {
		return Coordinate{}, err
	}
	return Coordinate{Lon: float32(p.Lon), Lat: float32(p.Lat)}, nil
}

// PathGeometry converts a decoded point sequence into orb path geometry.
func PathGeometry(points []ShapePoint) ([]orb.Point, error) {
	path := make([]orb.Point, len(points))
	for i, p := range points {
		pt, err := p.Geometry()
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		path[i] = pt
	}
	return path, nil
}

// Coordinate is the compact (lon, lat) pair used where large numbers of
// points are held in memory or cached.
type Coordinate struct {
	Lon float32 `json:"lon"`
	Lat float32 `json:"lat"`
}
