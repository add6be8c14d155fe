package model

// Demo statuses. A demo's status is encoded by the folder its files live in.
const (
	StatusSubmitted      = "submitted"
	StatusAssistantLiked = "assistant_liked"
	StatusRejected       = "rejected"
	StatusOwnerLiked     = "owner_liked"
)

// Statuses lists all demo statuses in workflow order.
var Statuses = []string{StatusSubmitted, StatusAssistantLiked, StatusRejected, StatusOwnerLiked}

// Demo represents a submitted track plus its metadata sidecar, tracked
// through the four-stage review workflow.
type Demo struct {
	ID             string `json:"id"`
	Title          string `json:"track_title"`
	Artist         string `json:"artist_name"`
	ListenLink     string `json:"listen_link,omitempty"`
	SubmittedAt    string `json:"submitted_at"` // encoded YYYYMMDD_HHMMSS
	Status         string `json:"status"`
	SubmitterEmail string `json:"submitter_email,omitempty"`
	StreamURL      string `json:"stream_url,omitempty"` // share link for the stored audio
	AudioPath      string `json:"-"`
}

// DemoMetadata is the sidecar JSON stored next to each audio file. The
// status field is intentionally absent: the folder is the source of truth.
type DemoMetadata struct {
	ID             string `json:"demo_id"`
	Title          string `json:"track_title"`
	Artist         string `json:"artist_name"`
	ListenLink     string `json:"listen_link,omitempty"`
	SubmittedAt    string `json:"submitted_at"`
	SubmitterEmail string `json:"submitter_email,omitempty"`
}

// ValidStatus reports whether s is a known demo status.
func ValidStatus(s string) bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}
