// Package signcore drives a document through the e-signature workflow:
// upload, field placement, recipients, signing, and export of the flattened
// result. The subpackages do the actual work; Envelope is the state machine
// that owns their sessions and keeps the stages in the right order.
package signcore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/asaskevich/govalidator"
	"github.com/digitorus/pdf"
	"github.com/google/uuid"

	"github.com/doctransfer/signcore/audit"
	"github.com/doctransfer/signcore/config"
	"github.com/doctransfer/signcore/editor"
	"github.com/doctransfer/signcore/export"
	"github.com/doctransfer/signcore/field"
	"github.com/doctransfer/signcore/signing"
)

// Status is the envelope's position in the workflow. Transitions only move
// forward.
type Status int

const (
	// StatusUploaded means the document is parsed and no fields are placed.
	StatusUploaded Status = iota
	// StatusPrepared means the field layout is set.
	StatusPrepared
	// StatusRecipientsAdded means at least one signer is registered.
	StatusRecipientsAdded
	// StatusSigning means a signing session is underway.
	StatusSigning
	// StatusCompleted means signing finished; the envelope can be exported.
	StatusCompleted
)

var statusNames = map[Status]string{
	StatusUploaded:        "uploaded",
	StatusPrepared:        "prepared",
	StatusRecipientsAdded: "recipients_added",
	StatusSigning:         "signing",
	StatusCompleted:       "completed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// signerPalette cycles through the recipient accent colors.
var signerPalette = []string{"#4f46e5", "#10b981", "#f59e0b", "#ef4444", "#8b5cf6"}

// Signer is one registered recipient.
type Signer struct {
	ID    string
	Name  string
	Email string

	// Order is the zero-based signing position.
	Order int

	// Color is the hex accent assigned from the palette.
	Color string
}

// ErrInvalidTransition is returned when an operation is called in a status
// that does not allow it.
type ErrInvalidTransition struct {
	Status Status
	Op     string
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot %s while envelope is %s", e.Op, e.Status)
}

var (
	// ErrUnknownSigner is returned when a signer ID was never registered.
	ErrUnknownSigner = fmt.Errorf("unknown signer")
	// ErrSigningUnfinished is returned by Complete while any field still
	// lacks a value.
	ErrSigningUnfinished = fmt.Errorf("signing is not finished")
)

// Envelope owns one document's trip through the workflow.
type Envelope struct {
	id     string
	cfg    config.Config
	log    *slog.Logger
	status Status

	src    io.ReadSeeker
	reader *pdf.Reader

	fields  []*field.Field
	signers []Signer
	values  field.Values

	editSession  *editor.Session
	signSessions map[string]*signing.Session

	trail []audit.Event
}

// Open parses the document and returns an envelope in StatusUploaded with
// the default configuration.
func Open(r io.ReaderAt, size int64) (*Envelope, error) {
	rdr, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	e := &Envelope{
		id:     uuid.NewString(),
		cfg:    config.Default(),
		log:    slog.Default(),
		status: StatusUploaded,
		src:    io.NewSectionReader(r, 0, size),
		reader: rdr,
	}
	e.record(audit.New(audit.DocumentUploaded, e.id))
	return e, nil
}

// OpenFile reads path into memory and opens it. The file is not held open.
func OpenFile(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Open(bytes.NewReader(data), int64(len(data)))
}

// ID returns the envelope's document ID.
func (e *Envelope) ID() string { return e.id }

// Status returns the current workflow position.
func (e *Envelope) Status() Status { return e.status }

// SetConfig replaces the layout configuration. Allowed only before fields
// are placed; the editor and the export must agree on the same geometry.
func (e *Envelope) SetConfig(cfg config.Config) error {
	if e.status != StatusUploaded {
		return ErrInvalidTransition{Status: e.status, Op: "change configuration"}
	}
	if err := cfg.ValidateFields(); err != nil {
		return err
	}
	e.cfg = cfg
	return nil
}

// Editor returns the placement session for laying out fields. Valid until
// recipients are added; the session is created on first call and reused.
func (e *Envelope) Editor() (*editor.Session, error) {
	if e.status != StatusUploaded && e.status != StatusPrepared {
		return nil, ErrInvalidTransition{Status: e.status, Op: "edit fields"}
	}
	if e.editSession == nil {
		e.editSession = editor.NewSession(e.cfg, e.log)
	}
	return e.editSession, nil
}

// SetFields freezes the field layout and moves the envelope to
// StatusPrepared. Usually called with Editor().Fields().
func (e *Envelope) SetFields(fields []*field.Field) error {
	if e.status != StatusUploaded && e.status != StatusPrepared {
		return ErrInvalidTransition{Status: e.status, Op: "set fields"}
	}
	for _, f := range fields {
		if err := f.Validate(e.cfg.RenderWidth); err != nil {
			return err
		}
	}
	e.fields = fields
	e.status = StatusPrepared
	return nil
}

// AddSigner registers a recipient. Signers are ordered by registration and
// colored from the palette.
func (e *Envelope) AddSigner(name, email string) (Signer, error) {
	if e.status != StatusPrepared && e.status != StatusRecipientsAdded {
		return Signer{}, ErrInvalidTransition{Status: e.status, Op: "add signer"}
	}
	if !govalidator.IsEmail(email) {
		return Signer{}, fmt.Errorf("invalid signer email %q", email)
	}

	s := Signer{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Order: len(e.signers),
		Color: signerPalette[len(e.signers)%len(signerPalette)],
	}
	e.signers = append(e.signers, s)
	e.status = StatusRecipientsAdded

	ev := audit.New(audit.SignatureRequested, e.id)
	ev.UserEmail = email
	e.record(ev)
	return s, nil
}

// Signers returns the registered recipients in signing order.
func (e *Envelope) Signers() []Signer { return e.signers }

// StartSigning opens the signing session for the given registered signer.
// Every signer gets their own session, created on their first call and
// reused after. All sessions write into the envelope's shared value set, so
// fields assigned to different signers fill the same document.
func (e *Envelope) StartSigning(signerID string) (*signing.Session, error) {
	if e.status != StatusRecipientsAdded && e.status != StatusSigning {
		return nil, ErrInvalidTransition{Status: e.status, Op: "start signing"}
	}
	signer, ok := e.signer(signerID)
	if !ok {
		return nil, ErrUnknownSigner
	}

	if e.values == nil {
		e.values = make(field.Values)
	}
	if e.signSessions == nil {
		e.signSessions = make(map[string]*signing.Session)
	}

	sess, ok := e.signSessions[signerID]
	if !ok {
		sess = signing.NewSharedSession(signerID, e.fields, e.values, e.log)
		e.signSessions[signerID] = sess
		e.status = StatusSigning

		ev := audit.New(audit.SignatureViewed, e.id)
		ev.UserEmail = signer.Email
		e.record(ev)
	}
	return sess, nil
}

// Complete closes the envelope once every field holds a value. Open signing
// sessions are finished, so further mutations on them fail.
func (e *Envelope) Complete() error {
	if e.status != StatusSigning {
		return ErrInvalidTransition{Status: e.status, Op: "complete"}
	}
	if e.values.Filled() < len(e.fields) {
		return ErrSigningUnfinished
	}
	for _, sess := range e.signSessions {
		if sess.Finished() {
			continue
		}
		if err := sess.Finish(); err != nil {
			return err
		}
	}
	e.status = StatusCompleted
	e.record(audit.New(audit.SignatureCompleted, e.id))
	return nil
}

// Export flattens the signed document and its certificate page to w. Valid
// only once completed.
func (e *Envelope) Export(ctx context.Context, w io.Writer) error {
	if e.status != StatusCompleted {
		return ErrInvalidTransition{Status: e.status, Op: "export"}
	}

	emails := make([]string, len(e.signers))
	for i, s := range e.signers {
		emails[i] = s.Email
	}

	ev := audit.New(audit.DocumentDownloaded, e.id)
	e.record(ev)

	return export.Flatten(ctx, e.src, e.reader, w, export.Request{
		DocumentID:   e.id,
		Fields:       e.fields,
		Values:       e.values,
		Trail:        e.trail,
		SignerEmails: emails,
		Config:       e.cfg,
	})
}

// Trail returns the events recorded so far.
func (e *Envelope) Trail() []audit.Event { return e.trail }

// Persist writes the in-memory trail through the recorder, typically an
// audit.Store.
func (e *Envelope) Persist(ctx context.Context, rec audit.Recorder) error {
	for _, ev := range e.trail {
		if err := rec.Record(ctx, ev); err != nil {
			return fmt.Errorf("failed to persist event %s: %w", ev.ID, err)
		}
	}
	return nil
}

func (e *Envelope) record(ev audit.Event) {
	e.trail = append(e.trail, ev)
}

func (e *Envelope) signer(id string) (Signer, bool) {
	for _, s := range e.signers {
		if s.ID == id {
			return s, true
		}
	}
	return Signer{}, false
}
