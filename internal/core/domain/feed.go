package domain

// FeedDocument is the parsed form of one connection feed download: a
// named source plus the connection entries it publishes.
type FeedDocument struct {
	Source      string           `json:"source"`
	Feed        string           `json:"feed"`
	Connections []FeedConnection `json:"connections"`
}

// FeedConnection is a raw feed entry. Both the shape and its format tag
// stay raw here; the ingestion path parses and decodes them per entry so
// a malformed entry is counted and reported instead of aborting the
// whole document.
type FeedConnection struct {
	From            string `json:"from"`
	To              string `json:"to"`
	DurationSeconds int    `json:"duration_seconds"`
	ShapeFormat     string `json:"shape_format"`
	ShapeKey        string `json:"shape_key"`
	Shape           string `json:"shape"`
}
