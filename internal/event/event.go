package event

// Field names in remote event documents.
const (
	FieldTitle       = "title"
	FieldTime        = "time"
	FieldPlace       = "place"
	FieldDescription = "description"
)

// Defaults substituted for missing remote fields.
const (
	DefaultTitle       = "Event"
	DefaultTime        = "18:00"
	DefaultPlace       = "Student Union"
	DefaultDescription = "No description"
)

// Event is a locally cached campus event.
//
// Time is a free-form clock display string and is never parsed.
type Event struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Time        string `json:"time"`
	Place       string `json:"place"`
	Description string `json:"description"`
}
