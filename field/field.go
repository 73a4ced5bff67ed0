// Package field defines the annotation model shared by the placement editor,
// the signing session, and the export engine.
//
// A Field is a rectangle in visual space: CSS-pixel coordinates with a
// top-left origin, measured from the top of the first rendered page as if all
// pages formed one continuous column. Mapping to per-page PDF coordinates is
// the layout package's job and happens only at export time.
package field

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/doctransfer/signcore/stamps"
)

// Type identifies what kind of input a field collects.
type Type int

const (
	// Signature collects a drawn or typed signature image.
	Signature Type = iota
	// Initials collects a smaller signature-style image.
	Initials
	// Date collects a calendar date.
	Date
	// Text collects free text.
	Text
	// Email collects an email address as text.
	Email
	// Company collects a company name as text.
	Company
	// Title collects a job title as text.
	Title
	// Checkbox collects a boolean mark.
	Checkbox
	// Stamp applies a pre-selected stamp graphic.
	Stamp
)

var typeNames = map[Type]string{
	Signature: "signature",
	Initials:  "initials",
	Date:      "date",
	Text:      "text",
	Email:     "email",
	Company:   "company",
	Title:     "title",
	Checkbox:  "checkbox",
	Stamp:     "stamp",
}

// String returns the wire name of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType converts a wire name back into a Type.
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

// IsTextual reports whether the field's value is rendered as a text string.
func (t Type) IsTextual() bool {
	switch t {
	case Date, Text, Email, Company, Title:
		return true
	}
	return false
}

// IsImage reports whether the field's value is rendered as a raster image.
func (t Type) IsImage() bool {
	return t == Signature || t == Initials
}

// Size is a width/height pair in visual units.
type Size struct {
	Width, Height float64
}

// DefaultSize returns the size a freshly dropped field of the given type gets.
func DefaultSize(t Type) Size {
	switch t {
	case Checkbox:
		return Size{30, 30}
	case Signature:
		return Size{150, 60}
	case Initials:
		return Size{100, 60}
	case Text:
		return Size{200, 40}
	case Date:
		return Size{120, 40}
	case Stamp:
		s := stamps.Default()
		return Size{s.Width, s.Height}
	default:
		return Size{120, 40}
	}
}

// Field is a placed annotation on a document.
type Field struct {
	ID   string
	Type Type

	// X, Y are the top-left corner in visual units, relative to the top of
	// the first rendered page.
	X, Y          float64
	Width, Height float64

	// AssignedSignerID, when non-empty, restricts interaction during signing
	// to that signer.
	AssignedSignerID string

	// StampKind selects the stamp graphic; meaningful only for Stamp fields.
	StampKind string
}

// New creates a field of the given type at the given position with the
// type's default size.
func New(t Type, x, y float64) Field {
	size := DefaultSize(t)
	return Field{
		ID:     uuid.NewString(),
		Type:   t,
		X:      x,
		Y:      y,
		Width:  size.Width,
		Height: size.Height,
	}
}

// Validate checks the horizontal placement invariant: the field must sit fully
// within the canvas width. There is no vertical bound; fields may approach or
// straddle the inter-page gap, which is resolved at export time.
func (f Field) Validate(canvasWidth float64) error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("field %s has degenerate size %gx%g", f.ID, f.Width, f.Height)
	}
	if f.X < 0 || f.X+f.Width > canvasWidth {
		return fmt.Errorf("field %s exceeds canvas width: x=%g width=%g canvas=%g", f.ID, f.X, f.Width, canvasWidth)
	}
	if f.Y < 0 {
		return fmt.Errorf("field %s has negative y=%g", f.ID, f.Y)
	}
	return nil
}
