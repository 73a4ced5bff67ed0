package editor

import (
	"errors"
	"math"
	"testing"

	"github.com/doctransfer/signcore/config"
	"github.com/doctransfer/signcore/field"
)

func newTestSession() *Session {
	return NewSession(config.Default(), nil)
}

func TestDropFromPalette(t *testing.T) {
	t.Run("position snaps to grid", func(t *testing.T) {
		s := newTestSession()
		f := s.DropFromPalette(field.Signature, 33, 47)
		if f == nil {
			t.Fatal("drop inside canvas should place a field")
		}
		if f.X != 40 || f.Y != 40 {
			t.Errorf("expected snapped (40,40), got (%g,%g)", f.X, f.Y)
		}
		g := float64(config.Default().GridSize)
		if math.Mod(f.X, g) != 0 || math.Mod(f.Y, g) != 0 {
			t.Error("snapped position must be a grid multiple")
		}
	})

	t.Run("default size by type", func(t *testing.T) {
		s := newTestSession()
		f := s.DropFromPalette(field.Date, 100, 100)
		if f.Width != 120 || f.Height != 40 {
			t.Errorf("date field default should be 120x40, got %gx%g", f.Width, f.Height)
		}
	})

	t.Run("drop outside canvas is a no-op", func(t *testing.T) {
		s := newTestSession()
		if f := s.DropFromPalette(field.Signature, 790, 40); f != nil {
			t.Error("drop past the right edge should be ignored")
		}
		if len(s.Fields()) != 0 {
			t.Error("no field should be recorded")
		}
	})

	t.Run("drop above the canvas is a no-op", func(t *testing.T) {
		s := newTestSession()
		if f := s.DropFromPalette(field.Text, 100, -50); f != nil {
			t.Error("drop with negative y should be ignored")
		}
	})

	t.Run("dropped field becomes selected", func(t *testing.T) {
		s := newTestSession()
		f := s.DropFromPalette(field.Text, 40, 40)
		if s.Selected() != f.ID {
			t.Error("newly placed field should be selected")
		}
	})
}

func TestMoveField(t *testing.T) {
	s := newTestSession()
	f := s.DropFromPalette(field.Signature, 100, 100)

	if err := s.MoveField(f.ID, 37, -12); err != nil {
		t.Fatalf("MoveField: %v", err)
	}
	if f.X != 140 || f.Y != 80 {
		t.Errorf("expected snapped (140,80), got (%g,%g)", f.X, f.Y)
	}

	t.Run("move outside canvas ignored", func(t *testing.T) {
		before := *f
		if err := s.MoveField(f.ID, 10000, 0); err != nil {
			t.Fatal(err)
		}
		if f.X != before.X || f.Y != before.Y {
			t.Error("out of bounds move should leave the field unchanged")
		}
	})

	t.Run("move above canvas ignored", func(t *testing.T) {
		before := *f
		if err := s.MoveField(f.ID, 0, -10000); err != nil {
			t.Fatal(err)
		}
		if f.Y != before.Y {
			t.Error("negative y move should leave the field unchanged")
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		if err := s.MoveField("no-such", 1, 1); !errors.Is(err, ErrFieldNotFound) {
			t.Errorf("expected ErrFieldNotFound, got %v", err)
		}
	})
}

func TestResizeField(t *testing.T) {
	s := newTestSession()
	f := s.DropFromPalette(field.Signature, 100, 100)

	if err := s.ResizeField(f.ID, 200, 90); err != nil {
		t.Fatal(err)
	}
	if f.Width != 200 || f.Height != 90 {
		t.Errorf("resize not applied, got %gx%g", f.Width, f.Height)
	}

	if err := s.ResizeField(f.ID, 5, 10); err != nil {
		t.Fatal(err)
	}
	if f.Width != 30 || f.Height != 30 {
		t.Errorf("resize should clamp to 30, got %gx%g", f.Width, f.Height)
	}
}

func TestDeleteField(t *testing.T) {
	s := newTestSession()
	f := s.DropFromPalette(field.Checkbox, 40, 40)

	if err := s.DeleteField(f.ID); err != nil {
		t.Fatal(err)
	}
	if len(s.Fields()) != 0 {
		t.Error("field should be gone")
	}
	if s.Selected() != "" {
		t.Error("deleting the selected field should clear the selection")
	}

	if err := s.DeleteField(f.ID); !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("expected ErrFieldNotFound, got %v", err)
	}
}

func TestAssignSignerAndStampKind(t *testing.T) {
	s := newTestSession()
	sig := s.DropFromPalette(field.Signature, 40, 40)
	stamp := s.DropFromPalette(field.Stamp, 200, 40)

	if err := s.AssignSigner(sig.ID, "signer-1"); err != nil {
		t.Fatal(err)
	}
	if sig.AssignedSignerID != "signer-1" {
		t.Error("signer assignment not applied")
	}

	if err := s.SetStampKind(stamp.ID, "approved-green"); err != nil {
		t.Fatal(err)
	}
	if stamp.StampKind != "approved-green" {
		t.Error("stamp kind not applied")
	}

	if err := s.SetStampKind(sig.ID, "approved-green"); err == nil {
		t.Error("setting a stamp kind on a signature field should fail")
	}
}

func TestSelection(t *testing.T) {
	s := newTestSession()
	a := s.DropFromPalette(field.Text, 40, 40)
	b := s.DropFromPalette(field.Date, 40, 200)

	if s.Selected() != b.ID {
		t.Error("latest drop should be selected")
	}
	if err := s.Select(a.ID); err != nil {
		t.Fatal(err)
	}
	if s.Selected() != a.ID {
		t.Error("Select should switch the selection")
	}
	s.ClearSelection()
	if s.Selected() != "" {
		t.Error("ClearSelection should empty the selection")
	}
	if err := s.Select("ghost"); !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("expected ErrFieldNotFound, got %v", err)
	}
}
