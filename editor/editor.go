// Package editor implements field placement on the document canvas: dropping
// fields from the palette, moving and resizing them on a snap grid, and
// tracking the current selection.
package editor

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/doctransfer/signcore/config"
	"github.com/doctransfer/signcore/field"
)

// ErrFieldNotFound is returned when an operation names a field the session
// does not hold.
var ErrFieldNotFound = fmt.Errorf("field not found")

// Session is a single-user editing session over a document's field layout.
// It is not safe for concurrent use.
type Session struct {
	cfg      config.Config
	fields   []*field.Field
	selected string
	log      *slog.Logger
}

// NewSession returns an empty editing session governed by cfg.
func NewSession(cfg config.Config, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{cfg: cfg, log: log}
}

// Snap rounds v to the session's grid.
func (s *Session) Snap(v float64) float64 {
	return math.Round(v/s.cfg.GridSize) * s.cfg.GridSize
}

// DropFromPalette places a new field of the given type at the drop point.
// The point snaps to the grid and the field takes its type's default size.
// A drop whose snapped rectangle falls outside the canvas is ignored and
// returns nil.
func (s *Session) DropFromPalette(t field.Type, x, y float64) *field.Field {
	f := field.New(t, s.Snap(x), s.Snap(y))
	if f.Y < 0 {
		s.log.Debug("drop above canvas ignored", "type", t.String(), "x", x, "y", y)
		return nil
	}
	if err := f.Validate(s.cfg.RenderWidth); err != nil {
		s.log.Debug("drop outside canvas ignored", "type", t.String(), "x", x, "y", y)
		return nil
	}

	s.fields = append(s.fields, &f)
	s.selected = f.ID
	s.log.Info("field placed", "id", f.ID, "type", t.String(), "x", f.X, "y", f.Y)
	return &f
}

// MoveField translates a field by (dx, dy) and snaps the resulting position
// to the grid. A move that would push the field outside the canvas is
// ignored.
func (s *Session) MoveField(id string, dx, dy float64) error {
	f, err := s.find(id)
	if err != nil {
		return err
	}

	moved := *f
	moved.X = s.Snap(f.X + dx)
	moved.Y = s.Snap(f.Y + dy)
	if moved.Y < 0 {
		s.log.Debug("move above canvas ignored", "id", id)
		return nil
	}
	if err := moved.Validate(s.cfg.RenderWidth); err != nil {
		s.log.Debug("move outside canvas ignored", "id", id)
		return nil
	}

	f.X, f.Y = moved.X, moved.Y
	return nil
}

// ResizeField sets a field's size, clamping both dimensions to the
// configured minimum. Resizing does not snap.
func (s *Session) ResizeField(id string, width, height float64) error {
	f, err := s.find(id)
	if err != nil {
		return err
	}

	f.Width = math.Max(s.cfg.MinFieldSize, width)
	f.Height = math.Max(s.cfg.MinFieldSize, height)
	return nil
}

// DeleteField removes a field, clearing the selection if it pointed at it.
func (s *Session) DeleteField(id string) error {
	for i, f := range s.fields {
		if f.ID == id {
			s.fields = append(s.fields[:i], s.fields[i+1:]...)
			if s.selected == id {
				s.selected = ""
			}
			s.log.Info("field removed", "id", id)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
}

// AssignSigner routes a field to a signer.
func (s *Session) AssignSigner(fieldID, signerID string) error {
	f, err := s.find(fieldID)
	if err != nil {
		return err
	}
	f.AssignedSignerID = signerID
	return nil
}

// SetStampKind sets the stamp artwork on a stamp field.
func (s *Session) SetStampKind(fieldID, kind string) error {
	f, err := s.find(fieldID)
	if err != nil {
		return err
	}
	if f.Type != field.Stamp {
		return fmt.Errorf("field %s is not a stamp field", fieldID)
	}
	f.StampKind = kind
	return nil
}

// Select marks a field as selected.
func (s *Session) Select(id string) error {
	if _, err := s.find(id); err != nil {
		return err
	}
	s.selected = id
	return nil
}

// ClearSelection drops the selection.
func (s *Session) ClearSelection() {
	s.selected = ""
}

// Selected reports the selected field ID, empty when nothing is selected.
func (s *Session) Selected() string {
	return s.selected
}

// Fields returns the placed fields in placement order.
func (s *Session) Fields() []*field.Field {
	out := make([]*field.Field, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Session) find(id string) (*field.Field, error) {
	for _, f := range s.fields {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, id)
}
