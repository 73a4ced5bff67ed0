package field

import "time"

// ValueKind discriminates what a Value holds.
type ValueKind int

const (
	// KindImage holds raster image bytes (signature, initials).
	KindImage ValueKind = iota
	// KindText holds a plain string (text, email, company, title).
	KindText
	// KindDate holds a calendar date.
	KindDate
	// KindChecked holds a boolean mark.
	KindChecked
	// KindStampApplied marks that the field's stamp graphic was applied.
	KindStampApplied
)

// Value is the datum a signer attached to one field. Exactly one of the
// payload members is meaningful, selected by Kind.
type Value struct {
	Kind    ValueKind
	Image   []byte
	Text    string
	Date    time.Time
	Checked bool
}

// ImageValue wraps raster image bytes.
func ImageValue(data []byte) Value { return Value{Kind: KindImage, Image: data} }

// TextValue wraps a string.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// DateValue wraps a date.
func DateValue(t time.Time) Value { return Value{Kind: KindDate, Date: t} }

// CheckedValue wraps a checkbox state.
func CheckedValue(b bool) Value { return Value{Kind: KindChecked, Checked: b} }

// StampAppliedValue marks a stamp field as applied.
func StampAppliedValue() Value { return Value{Kind: KindStampApplied} }

// Empty reports whether the value counts as unfilled for completion purposes.
// An unticked checkbox and a blank string are unfilled; everything else set
// counts as filled.
func (v Value) Empty() bool {
	switch v.Kind {
	case KindImage:
		return len(v.Image) == 0
	case KindText:
		return v.Text == ""
	case KindDate:
		return v.Date.IsZero()
	case KindChecked:
		return !v.Checked
	case KindStampApplied:
		return false
	}
	return true
}

// Values maps field IDs to the value a signer attached. Last write wins and
// no history is retained.
type Values map[string]Value

// Clone returns a copy of the map. The values inside are shared, not deep
// copied.
func (vs Values) Clone() Values {
	out := make(Values, len(vs))
	for id, v := range vs {
		out[id] = v
	}
	return out
}

// Filled counts the values that are present and non-empty.
func (vs Values) Filled() int {
	n := 0
	for _, v := range vs {
		if !v.Empty() {
			n++
		}
	}
	return n
}

// Get returns the value for a field id and whether one is set.
func (vs Values) Get(id string) (Value, bool) {
	v, ok := vs[id]
	return v, ok
}
