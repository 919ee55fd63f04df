package publishers

import (
	"time"

	"github.com/google/uuid"
)

// EventTypeUploadCompleted tags every event emitted after a successful upload.
const EventTypeUploadCompleted = "upload.completed"

// Event represents the payload published downstream.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	FileName    string    `json:"file_name"`
	Size        int64     `json:"size"`
	Digest      string    `json:"digest"`
	ContentType string    `json:"content_type"`
	Endpoint    string    `json:"endpoint"`
	Message     string    `json:"message"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// UploadDetails carries what the uploader knows about a finished upload.
type UploadDetails struct {
	FileName    string
	Size        int64
	Digest      string
	ContentType string
	Endpoint    string
	Message     string
}

// NewEvent constructs an upload-completed Event with a fresh id.
func NewEvent(d UploadDetails) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        EventTypeUploadCompleted,
		FileName:    d.FileName,
		Size:        d.Size,
		Digest:      d.Digest,
		ContentType: d.ContentType,
		Endpoint:    d.Endpoint,
		Message:     d.Message,
		UploadedAt:  time.Now().UTC(),
	}
}

// attributes returns the non-empty routing metadata attached to queue and topic messages.
func (e Event) attributes() map[string]string {
	attrs := make(map[string]string, 2)
	if e.Type != "" {
		attrs["event_type"] = e.Type
	}
	if e.Digest != "" {
		attrs["digest"] = e.Digest
	}
	return attrs
}
