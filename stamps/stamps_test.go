package stamps

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/doctransfer/signcore/internal/render"
)

type countingAdder struct {
	next uint32
}

func (c *countingAdder) AddObject(object []byte) (uint32, error) {
	c.next++
	return c.next, nil
}

func (c *countingAdder) Compression() int { return zlib.DefaultCompression }

func TestDefault(t *testing.T) {
	s := Default()
	if s.Kind != Biohazard {
		t.Errorf("default stamp should be %q, got %q", Biohazard, s.Kind)
	}
	if s.Width != 100 || s.Height != 100 {
		t.Errorf("unexpected default stamp canvas %gx%g", s.Width, s.Height)
	}
}

func TestLookup(t *testing.T) {
	s, err := Lookup(ApprovedGreen)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if s.Label != "Approved (Green)" {
		t.Errorf("unexpected label %q", s.Label)
	}

	if _, err := Lookup(Kind("notary-gold")); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestKinds(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 15 {
		t.Errorf("expected 15 stamp kinds, got %d", len(kinds))
	}
}

func TestAllStampsRender(t *testing.T) {
	for _, k := range Kinds() {
		s, err := Lookup(k)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", k, err)
		}
		if len(s.Elements) == 0 {
			t.Errorf("stamp %q has no elements", k)
		}
		if s.Width <= 0 || s.Height <= 0 {
			t.Errorf("stamp %q has degenerate canvas %gx%g", k, s.Width, s.Height)
		}

		var stream bytes.Buffer
		res := render.NewResources()
		if err := render.DrawElements(&stream, s.Elements, &countingAdder{}, res); err != nil {
			t.Errorf("stamp %q failed to render: %v", k, err)
		}
		if stream.Len() == 0 {
			t.Errorf("stamp %q produced an empty stream", k)
		}
		if len(res.XObjects) != 0 {
			t.Errorf("stamp %q should be pure vector art", k)
		}

		for _, el := range s.Elements {
			switch e := el.(type) {
			case render.TextElement:
				if e.X < 0 || e.Y < 0 || e.X > s.Width || e.Y > s.Height {
					t.Errorf("stamp %q text %q positioned off canvas", k, e.Content)
				}
			}
		}
	}
}
