package models

import "time"

// UnknownEventID marks a dead-letter entry whose payload could not be
// parsed far enough to recover an event ID.
const UnknownEventID = "unknown"

// DLQEntry is the envelope written to the dead-letter queue when an event
// exhausts its retries or arrives unparseable. Event carries the original
// queue payload verbatim so operators can replay it.
type DLQEntry struct {
	Event     string    `json:"event"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	EventID   string    `json:"event_id"`
}

// NewDLQEntry wraps a failed queue payload with its failure cause. eventID
// is the parsed event's ID, or UnknownEventID when parsing itself failed.
func NewDLQEntry(payload string, cause error, eventID string) DLQEntry {
	return DLQEntry{
		Event:     payload,
		Error:     cause.Error(),
		Timestamp: time.Now().UTC(),
		EventID:   eventID,
	}
}
