package domain

import "encoding/json"

// EncodedShape is a decoded point sequence that deserializes from a
// polyline6 string. Connection feed documents carry shapes as a single
// string field ("shape": "}c|gkA..."); unmarshaling one of those fields
// into an EncodedShape runs the decoder in place, so the rest of the
// document round-trips through encoding/json untouched.
type EncodedShape []ShapePoint

// UnmarshalJSON extracts the JSON string value and decodes it. A
// non-string value fails with the encoding/json error, unchanged; a
// malformed polyline fails with the decoder's typed error.
func (e *EncodedShape) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	points, err := DecodePolyline6(s)
	if err != nil {
		return err
	}
	*e = points
	return nil
}

// Points returns the decoded sequence as a plain slice.
func (e EncodedShape) Points() []ShapePoint {
	return []ShapePoint(e)
}
