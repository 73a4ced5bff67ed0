// Package signing implements a recipient's signing session: activating
// fields, collecting their values, tracking completion, and gating finish on
// a fully filled envelope.
package signing

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/doctransfer/signcore/field"
	"github.com/doctransfer/signcore/stamps"
)

var (
	// ErrSessionFinished is returned by mutations after Finish succeeds.
	ErrSessionFinished = errors.New("signing session already finished")
	// ErrIncomplete is returned by Finish while fields remain unfilled.
	ErrIncomplete = errors.New("not all fields are filled")
	// ErrFieldNotFound is returned when an operation names an unknown field.
	ErrFieldNotFound = errors.New("field not found")
)

// PromptKind tells the caller what input an activated field needs.
type PromptKind int

const (
	// PromptNone means activation needed no further input: either the
	// field applied its value immediately or access was denied.
	PromptNone PromptKind = iota
	// PromptImage asks for drawn or uploaded signature image data.
	PromptImage
	// PromptDate asks for a date.
	PromptDate
	// PromptText asks for a line of text.
	PromptText
)

// Prompt is the result of activating a field.
type Prompt struct {
	Kind    PromptKind
	FieldID string
	// Applied is set when activation itself changed the field value, as
	// checkbox toggles and stamp applications do.
	Applied bool
}

// Session is one signer's pass over a document's fields. It is not safe for
// concurrent use.
type Session struct {
	signerID string
	fields   []*field.Field
	values   field.Values
	finished bool
	log      *slog.Logger
}

// NewSession starts a signing session for signerID over the given fields
// with a fresh value set. An empty signerID means an unrestricted session.
func NewSession(signerID string, fields []*field.Field, log *slog.Logger) *Session {
	return NewSharedSession(signerID, fields, make(field.Values), log)
}

// NewSharedSession starts a session that reads and writes the given value
// set. Sessions for different signers can share one set, so a multi-party
// document accumulates every signer's inputs in the same place while each
// session still enforces its own field assignments.
func NewSharedSession(signerID string, fields []*field.Field, values field.Values, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	if values == nil {
		values = make(field.Values)
	}
	return &Session{
		signerID: signerID,
		fields:   fields,
		values:   values,
		log:      log,
	}
}

// canEdit reports whether the session's signer may touch f. A field assigned
// to another signer is off limits; unassigned fields are open to everyone.
func (s *Session) canEdit(f *field.Field) bool {
	if s.signerID == "" || f.AssignedSignerID == "" {
		return true
	}
	return f.AssignedSignerID == s.signerID
}

// Activate begins interaction with a field. Checkbox fields toggle and stamp
// fields apply immediately; other types return a prompt describing the input
// to collect. Activating a field assigned to another signer is silently
// ignored and yields a PromptNone.
func (s *Session) Activate(fieldID string) (Prompt, error) {
	if s.finished {
		return Prompt{}, ErrSessionFinished
	}
	f, err := s.find(fieldID)
	if err != nil {
		return Prompt{}, err
	}
	if !s.canEdit(f) {
		s.log.Debug("field assigned to another signer", "field", fieldID, "signer", s.signerID)
		return Prompt{Kind: PromptNone, FieldID: fieldID}, nil
	}

	switch {
	case f.Type.IsImage():
		return Prompt{Kind: PromptImage, FieldID: fieldID}, nil
	case f.Type == field.Date:
		return Prompt{Kind: PromptDate, FieldID: fieldID}, nil
	case f.Type.IsTextual():
		return Prompt{Kind: PromptText, FieldID: fieldID}, nil
	case f.Type == field.Checkbox:
		cur, _ := s.values.Get(fieldID)
		s.values[fieldID] = field.CheckedValue(!cur.Checked)
		return Prompt{Kind: PromptNone, FieldID: fieldID, Applied: true}, nil
	case f.Type == field.Stamp:
		s.values[fieldID] = field.StampAppliedValue()
		return Prompt{Kind: PromptNone, FieldID: fieldID, Applied: true}, nil
	}
	return Prompt{}, fmt.Errorf("unsupported field type %q", f.Type)
}

// SetImage stores signature image data on a signature or initials field.
func (s *Session) SetImage(fieldID string, data []byte) error {
	f, err := s.editable(fieldID)
	if err != nil {
		return err
	}
	if f == nil {
		return nil
	}
	if !f.Type.IsImage() {
		return fmt.Errorf("field %s does not take an image", fieldID)
	}
	if len(data) == 0 {
		return fmt.Errorf("empty image data")
	}
	s.values[fieldID] = field.ImageValue(data)
	return nil
}

// SetDate stores a date on a date field.
func (s *Session) SetDate(fieldID string, d time.Time) error {
	f, err := s.editable(fieldID)
	if err != nil {
		return err
	}
	if f == nil {
		return nil
	}
	if f.Type != field.Date {
		return fmt.Errorf("field %s does not take a date", fieldID)
	}
	s.values[fieldID] = field.DateValue(d)
	return nil
}

// SetText stores trimmed text on a textual field. A blank submission leaves
// any existing value in place.
func (s *Session) SetText(fieldID, text string) error {
	f, err := s.editable(fieldID)
	if err != nil {
		return err
	}
	if f == nil {
		return nil
	}
	if !f.Type.IsTextual() || f.Type == field.Date {
		return fmt.Errorf("field %s does not take text", fieldID)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.values[fieldID] = field.TextValue(text)
	return nil
}

// StampKind resolves the stamp artwork for a stamp field, falling back to
// the default stamp when the field names none.
func (s *Session) StampKind(fieldID string) (stamps.Stamp, error) {
	f, err := s.find(fieldID)
	if err != nil {
		return stamps.Stamp{}, err
	}
	if f.StampKind == "" {
		return stamps.Default(), nil
	}
	return stamps.Lookup(stamps.Kind(f.StampKind))
}

// CompletedCount reports how many fields hold a non-empty value.
func (s *Session) CompletedCount() int {
	return s.values.Filled()
}

// TotalCount reports the number of fields in the session.
func (s *Session) TotalCount() int {
	return len(s.fields)
}

// CompletionRatio reports completion as a rounded percentage. A session with
// no fields reports 0.
func (s *Session) CompletionRatio() int {
	if len(s.fields) == 0 {
		return 0
	}
	return int(math.Round(float64(s.values.Filled()) / float64(len(s.fields)) * 100))
}

// Values returns a copy of the collected field values. The copy stays valid
// after Finish; mutating it does not touch the session.
func (s *Session) Values() field.Values {
	return s.values.Clone()
}

// Finished reports whether Finish has succeeded.
func (s *Session) Finished() bool {
	return s.finished
}

// Finish closes the session. It fails with ErrIncomplete while any field is
// unfilled; after it succeeds, every mutation returns ErrSessionFinished.
func (s *Session) Finish() error {
	if s.finished {
		return ErrSessionFinished
	}
	if s.CompletionRatio() < 100 {
		return fmt.Errorf("%w: %d of %d", ErrIncomplete, s.values.Filled(), len(s.fields))
	}
	s.finished = true
	s.log.Info("signing session finished", "signer", s.signerID, "fields", len(s.fields))
	return nil
}

// editable resolves a field for mutation. It returns (nil, nil) when the
// field belongs to another signer, mirroring the silent rejection of
// Activate.
func (s *Session) editable(fieldID string) (*field.Field, error) {
	if s.finished {
		return nil, ErrSessionFinished
	}
	f, err := s.find(fieldID)
	if err != nil {
		return nil, err
	}
	if !s.canEdit(f) {
		return nil, nil
	}
	return f, nil
}

func (s *Session) find(id string) (*field.Field, error) {
	for _, f := range s.fields {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, id)
}
