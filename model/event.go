package model

// Event is one event listing.
type Event struct {
	ID        string `json:"id"`
	Title     string `json:"event_title"`
	Location  string `json:"event_location"`
	Date      string `json:"event_date"` // YYYY-MM-DD
	Times     string `json:"event_times"`
	Artists   string `json:"event_artists"` // free text
	URL       string `json:"event_url,omitempty"`
	Instagram string `json:"event_instagram,omitempty"`
}

// EventFile is the JSON document stored at /events/events.json.
type EventFile struct {
	Events []Event `json:"events"`
}
