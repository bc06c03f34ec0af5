package model

// RawEvent is a single upcoming event exactly as the feed delivers it.
// Timestamps arrive as strings with an embedded UTC offset
// (e.g. "2025-07-26T21:00:00+0100") and are parsed downstream.
// A RawEvent is immutable once received.
type RawEvent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time,omitempty"`
	Place       *Place `json:"place,omitempty"`
	EventURL    string `json:"event_url,omitempty"`
	Cover       *Cover `json:"cover,omitempty"`
	Attending   int    `json:"attending_count,omitempty"`
	Interested  int    `json:"interested_count,omitempty"`
}

// Place is the free-text venue label plus optional coordinates.
type Place struct {
	Name     string    `json:"name"`
	Location *GeoPoint `json:"location,omitempty"`
}

// GeoPoint holds the coordinates used for postcode enrichment.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Cover is the feed's cover-image descriptor; only Source is used.
type Cover struct {
	Source string `json:"source,omitempty"`
}

// TBD is the sentinel used wherever a display field could not be derived.
// Date/time/venue/location/postcode are never empty on a Gig: they carry
// either a real value or this sentinel.
const TBD = "TBD"

// Gig is the normalized, UI-ready schedule record. One RawEvent maps to
// exactly one Gig; events that fail enrichment still produce a (degraded,
// all-sentinel) Gig rather than being dropped.
type Gig struct {
	ID string `json:"id"`

	// Date is DD-MM-YYYY and StartTime is H:MM AM/PM, both rendered in
	// the configured civil display timezone.
	Date      string `json:"date"`
	StartTime string `json:"startTime"`

	Venue    string `json:"venue"`
	Location string `json:"location"`
	Postcode string `json:"postcode"`

	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	CoverImage  *string `json:"coverImage"`

	AttendingCount  int `json:"attendingCount"`
	InterestedCount int `json:"interestedCount"`
}
