package models

// TrackHeader is the listing view of a track: identity and metadata,
// without the GPX document.
type TrackHeader struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Public      bool     `json:"public"`
	Keywords    []string `json:"keywords,omitempty"`
}

// TrackPayload is the full wire form of a track.
type TrackPayload struct {
	TrackHeader
	IDs []string `json:"ids,omitempty"`
	Gpx string   `json:"gpx"`
}

// TrackListResponse wraps a listing with its count.
type TrackListResponse struct {
	Data  []TrackHeader `json:"data"`
	Count int           `json:"count"`
}

// RenameRequest asks for a new identity for an existing track.
type RenameRequest struct {
	ID string `json:"id" binding:"required"`
}

// CreatedResponse reports the identity assigned by a write.
type CreatedResponse struct {
	ID string `json:"id"`
}
