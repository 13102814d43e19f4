package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibonlg/routeshape/internal/core/domain"
)

func TestParseShapeFormat(t *testing.T) {
	for _, s := range []string{"polyline6", "polyline5", "geojson", "no_shape"} {
		f, err := domain.ParseShapeFormat(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(f))
	}

	_, err := domain.ParseShapeFormat("polyline7")
	assert.ErrorIs(t, err, domain.ErrUnknownFormat)
}

func TestShapeFormat_UnmarshalJSON(t *testing.T) {
	var f domain.ShapeFormat
	require.NoError(t, json.Unmarshal([]byte(`"polyline6"`), &f))
	assert.Equal(t, domain.FormatPolyline6, f)

	err := json.Unmarshal([]byte(`"wkt"`), &f)
	assert.ErrorIs(t, err, domain.ErrUnknownFormat)

	err = json.Unmarshal([]byte(`42`), &f)
	assert.Error(t, err)

	// The empty tag is the unset zero value, not an unknown format.
	f = domain.FormatPolyline6
	require.NoError(t, json.Unmarshal([]byte(`""`), &f))
	assert.Equal(t, domain.ShapeFormat(""), f)
}

func TestShape_JSONRoundTrip(t *testing.T) {
	// A shape without a format tag must survive a marshal/unmarshal
	// cycle: the read-through cache stores shapes as JSON.
	data, err := json.Marshal(domain.Shape{ID: "s1", FeedSlug: "db-regional"})
	require.NoError(t, err)

	var got domain.Shape
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, domain.ShapeFormat(""), got.Format)
}

func TestDecodeShape_Dispatch(t *testing.T) {
	points, err := domain.DecodeShape(domain.FormatPolyline6, "czaa{AythgU")
	require.NoError(t, err)
	assert.Len(t, points, 1)

	for _, f := range []domain.ShapeFormat{domain.FormatPolyline5, domain.FormatGeoJSON, domain.FormatNoShape} {
		_, err := domain.DecodeShape(f, "czaa{AythgU")
		assert.ErrorIs(t, err, domain.ErrUnsupportedFormat, "format %s", f)
	}

	_, err = domain.DecodeShape(domain.ShapeFormat("wkt"), "czaa{AythgU")
	assert.ErrorIs(t, err, domain.ErrUnknownFormat)
}

func TestShapePoint_Validate(t *testing.T) {
	assert.NoError(t, domain.ShapePoint{Lon: -76.781943, Lat: 39.991887}.Validate())

	// Bounds are open intervals: the exact poles and antimeridian are out.
	assert.ErrorIs(t, domain.ShapePoint{Lon: 0, Lat: 90}.Validate(), domain.ErrCoordinateOutOfRange)
	assert.ErrorIs(t, domain.ShapePoint{Lon: 0, Lat: -90}.Validate(), domain.ErrCoordinateOutOfRange)
	assert.ErrorIs(t, domain.ShapePoint{Lon: 180, Lat: 0}.Validate(), domain.ErrCoordinateOutOfRange)
	assert.ErrorIs(t, domain.ShapePoint{Lon: -180, Lat: 0}.Validate(), domain.ErrCoordinateOutOfRange)

	assert.NoError(t, domain.ShapePoint{Lon: 179.999999, Lat: 89.999999}.Validate())
}

func TestShapePoint_Geometry(t *testing.T) {
	p := domain.ShapePoint{Lon: 11.670365, Lat: 48.268722}
	pt, err := p.Geometry()
	require.NoError(t, err)
	assert.Equal(t, orb.Point{11.670365, 48.268722}, pt)
	assert.Equal(t, p.Lon, pt.X())
	assert.Equal(t, p.Lat, pt.Y())

	_, err = domain.ShapePoint{Lon: 0, Lat: 91}.Geometry()
	assert.ErrorIs(t, err, domain.ErrCoordinateOutOfRange)
}

func TestShapePoint_Compact(t *testing.T) {
	// Rounds to the nearest representable float32 without error.
	c, err := domain.ShapePoint{Lon: 123.4567895, Lat: 48.268722}.Compact()
	require.NoError(t, err)
	assert.Equal(t, float32(123.4567895), c.Lon)
	assert.Equal(t, float32(48.268722), c.Lat)
	assert.InDelta(t, 123.4567895, float64(c.Lon), 1e-4)

	_, err = domain.ShapePoint{Lon: 181, Lat: 0}.Compact()
	assert.ErrorIs(t, err, domain.ErrCoordinateOutOfRange)
}

func TestEncodedShape_UnmarshalJSON(t *testing.T) {
	var conn domain.Connection
	doc := `{"from":"Garching","to":"Marienplatz","duration_seconds":1380,"shape":"czaa{AythgU}K_C"}`
	require.NoError(t, json.Unmarshal([]byte(doc), &conn))
	require.Len(t, conn.Shape, 2)
	assert.Equal(t, domain.ShapePoint{Lon: 11.670365, Lat: 48.268722}, conn.Shape[0])

	// Non-string shape values fail with the JSON error, untouched.
	err := json.Unmarshal([]byte(`{"shape":[1,2]}`), &conn)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidCharacter)

	// Malformed polylines surface the decoder's typed error.
	err = json.Unmarshal([]byte(`{"shape":"}"}`), &conn)
	assert.ErrorIs(t, err, domain.ErrTruncatedField)
}

func TestShapeBounds(t *testing.T) {
	points, err := domain.DecodePolyline6(fixtureMunich)
	require.NoError(t, err)

	b := domain.ShapeBounds(points)
	assert.LessOrEqual(t, b.MinLat, b.MaxLat)
	assert.LessOrEqual(t, b.MinLon, b.MaxLon)
	assert.InDelta(t, 48.26, b.MinLat, 0.05)
	assert.InDelta(t, 11.67, b.MaxLon, 0.05)

	assert.Equal(t, domain.Bounds{}, domain.ShapeBounds(nil))
}
