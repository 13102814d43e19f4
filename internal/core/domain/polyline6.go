package domain

import (
	"errors"
	"fmt"
)

// Decode errors. All malformed-input conditions are explicit, typed
// failures; none of them are gated behind a build profile.
var (
	ErrEmptyInput       = errors.New("polyline6: empty input")
	ErrInvalidCharacter = errors.New("polyline6: invalid character")
	ErrTruncatedField   = errors.New("polyline6: truncated field")
)

// polyline6Scale is the fixed precision of the encoding: six decimal
// digits, i.e. the Valhalla flavor rather than the five-digit Google
// Maps one.
const polyline6Scale = 1e-6

// DecodePolyline6 decodes a polyline6-encoded string into an ordered
// sequence of shape points.
//
// Each point is two variable-length fields, latitude first. A field is a
// run of bytes; after subtracting the ASCII offset 63, the low five bits
// of each byte are data (least significant group first) and bit 0x20
// marks that more bytes follow. The accumulated value is zigzag-decoded
// into a signed delta against the previous point on that axis, so the
// first point is absolute. Algorithm reference:
// https://valhalla.github.io/valhalla/decoding/
//
// The function is pure and deterministic: same input, same output, no
// I/O, safe to call from any number of goroutines.
func DecodePolyline6(encoded string) ([]ShapePoint, error) {
	if encoded == "" {
		return nil, ErrEmptyInput
	}

	var decoded []ShapePoint
	var prevLat, prevLon int64
	i := 0

	for i < len(encoded) {
		lat, next, err := decodeField(encoded, i)
		if err != nil {
			return nil, err
		}
		lon, next, err := decodeField(encoded, next)
		if err != nil {
			return nil, err
		}
		i = next

		prevLat += lat
		prevLon += lon

		p := ShapePoint{
			Lon: float64(prevLon) * polyline6Scale,
			Lat: float64(prevLat) * polyline6Scale,
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("polyline6: point %d: %w", len(decoded), err)
		}
		decoded = append(decoded, p)
	}

	return decoded, nil
}

// decodeField reads one variable-length field starting at byte i and
// returns its zigzag-decoded signed delta plus the index of the first
// unread byte. It never indexes past the end of the input.
func decodeField(encoded string, i int) (int64, int, error) {
	start := i
	var result int64
	shift := uint(0)

	for {
		if i >= len(encoded) {
			return 0, i, fmt.Errorf("%w: field at byte %d runs past end of input", ErrTruncatedField, start)
		}
		c := encoded[i]
		if c < 63 || c > 127 {
			return 0, i, fmt.Errorf("%w: byte 0x%02x at offset %d", ErrInvalidCharacter, c, i)
		}
		b := int64(c) - 63
		i++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	// Zigzag: odd raw values are negative.
	if result&1 != 0 {
		return ^(result >> 1), i, nil
	}
	return result >> 1, i, nil
}
