package render

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/doctransfer/signcore/fonts"
)

type fakeAdder struct {
	objects  [][]byte
	nextID   uint32
	compress int
}

func newFakeAdder() *fakeAdder {
	return &fakeAdder{nextID: 10, compress: zlib.DefaultCompression}
}

func (f *fakeAdder) AddObject(object []byte) (uint32, error) {
	f.objects = append(f.objects, object)
	id := f.nextID
	f.nextID++
	return id, nil
}

func (f *fakeAdder) Compression() int { return f.compress }

func opaquePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func transparentPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 128})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRegisterImage(t *testing.T) {
	t.Run("opaque png produces single flate object", func(t *testing.T) {
		adder := newFakeAdder()
		id, err := RegisterImage(adder, opaquePNG(t, 8, 8))
		if err != nil {
			t.Fatalf("RegisterImage: %v", err)
		}
		if id != 10 {
			t.Errorf("expected object id 10, got %d", id)
		}
		if len(adder.objects) != 1 {
			t.Fatalf("expected 1 object, got %d", len(adder.objects))
		}
		obj := string(adder.objects[0])
		if !strings.Contains(obj, "/Subtype /Image") {
			t.Error("missing image subtype")
		}
		if !strings.Contains(obj, "/Filter /FlateDecode") {
			t.Error("expected flate filter for re-encoded png")
		}
		if strings.Contains(obj, "/SMask") {
			t.Error("opaque image should not carry an SMask")
		}
	})

	t.Run("transparent png adds smask", func(t *testing.T) {
		adder := newFakeAdder()
		_, err := RegisterImage(adder, transparentPNG(t))
		if err != nil {
			t.Fatalf("RegisterImage: %v", err)
		}
		if len(adder.objects) != 2 {
			t.Fatalf("expected smask + image objects, got %d", len(adder.objects))
		}
		smask := string(adder.objects[0])
		img := string(adder.objects[1])
		if !strings.Contains(smask, "/DeviceGray") {
			t.Error("smask should be DeviceGray")
		}
		if !strings.Contains(img, "/SMask 10 0 R") {
			t.Errorf("image should reference smask object: %s", img[:120])
		}
	})

	t.Run("opaque jpeg passes through as DCTDecode", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 6, 6))
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, nil); err != nil {
			t.Fatal(err)
		}
		adder := newFakeAdder()
		_, err := RegisterImage(adder, buf.Bytes())
		if err != nil {
			t.Fatalf("RegisterImage: %v", err)
		}
		obj := adder.objects[len(adder.objects)-1]
		if !strings.Contains(string(obj), "/Filter /DCTDecode") {
			t.Error("jpeg should pass through with DCTDecode")
		}
		if !bytes.Contains(obj, buf.Bytes()) {
			t.Error("jpeg stream should contain original data unmodified")
		}
	})

	t.Run("garbage data fails", func(t *testing.T) {
		adder := newFakeAdder()
		if _, err := RegisterImage(adder, []byte("not an image")); err == nil {
			t.Error("expected decode error")
		}
	})

	t.Run("empty data fails", func(t *testing.T) {
		adder := newFakeAdder()
		if _, err := RegisterImage(adder, nil); err == nil {
			t.Error("expected error for empty data")
		}
	})
}

func TestRegisterFont(t *testing.T) {
	t.Run("standard font is plain type1 dict", func(t *testing.T) {
		adder := newFakeAdder()
		_, err := RegisterFont(adder, fonts.Standard(fonts.Helvetica))
		if err != nil {
			t.Fatalf("RegisterFont: %v", err)
		}
		if len(adder.objects) != 1 {
			t.Fatalf("standard font should emit a single object, got %d", len(adder.objects))
		}
		obj := string(adder.objects[0])
		if !strings.Contains(obj, "/BaseFont /Helvetica") {
			t.Errorf("unexpected font dict: %s", obj)
		}
		if !strings.Contains(obj, "/Subtype /Type1") {
			t.Error("standard font should be Type1")
		}
	})

	t.Run("nil font falls back to helvetica", func(t *testing.T) {
		adder := newFakeAdder()
		_, err := RegisterFont(adder, nil)
		if err != nil {
			t.Fatalf("RegisterFont: %v", err)
		}
		if !strings.Contains(string(adder.objects[0]), "/BaseFont /Helvetica") {
			t.Error("nil font should register Helvetica")
		}
	})
}

func TestDrawElements(t *testing.T) {
	t.Run("text element", func(t *testing.T) {
		var stream bytes.Buffer
		adder := newFakeAdder()
		res := NewResources()
		els := []Element{
			TextElement{Content: "Jane Doe", Font: fonts.Standard(fonts.Helvetica), Size: 12, X: 40, Y: 700, Color: Color{R: 0, G: 0, B: 0}},
		}
		if err := DrawElements(&stream, els, adder, res); err != nil {
			t.Fatalf("DrawElements: %v", err)
		}
		out := stream.String()
		if !strings.Contains(out, "/F1 12.00 Tf") {
			t.Errorf("missing font operator: %s", out)
		}
		want := "<" + hex.EncodeToString([]byte("Jane Doe")) + "> Tj"
		if !strings.Contains(out, want) {
			t.Errorf("missing hex text show %q in %s", want, out)
		}
		if len(res.Fonts) != 1 {
			t.Errorf("expected 1 font resource, got %d", len(res.Fonts))
		}
	})

	t.Run("same font registered once", func(t *testing.T) {
		var stream bytes.Buffer
		adder := newFakeAdder()
		res := NewResources()
		els := []Element{
			TextElement{Content: "a", Font: fonts.Standard(fonts.Helvetica), Size: 12},
			TextElement{Content: "b", Font: fonts.Standard(fonts.Helvetica), Size: 14},
		}
		if err := DrawElements(&stream, els, adder, res); err != nil {
			t.Fatal(err)
		}
		if len(adder.objects) != 1 {
			t.Errorf("expected a single font object for repeated font, got %d", len(adder.objects))
		}
	})

	t.Run("image element", func(t *testing.T) {
		var stream bytes.Buffer
		adder := newFakeAdder()
		res := NewResources()
		els := []Element{
			ImageElement{Data: opaquePNG(t, 4, 4), X: 100, Y: 200, Width: 150, Height: 60},
		}
		if err := DrawElements(&stream, els, adder, res); err != nil {
			t.Fatal(err)
		}
		out := stream.String()
		if !strings.Contains(out, "/Im1 Do") {
			t.Errorf("missing XObject invocation: %s", out)
		}
		if !strings.Contains(out, "cm") {
			t.Error("missing transform matrix")
		}
		if _, ok := res.XObjects["Im1"]; !ok {
			t.Error("image not recorded in resources")
		}
	})

	t.Run("line and shapes", func(t *testing.T) {
		var stream bytes.Buffer
		adder := newFakeAdder()
		res := NewResources()
		red := Color{R: 255}
		els := []Element{
			LineElement{X1: 0, Y1: 0, X2: 100, Y2: 0, StrokeColor: red, StrokeWidth: 2},
			ShapeElement{Kind: ShapeRect, X: 10, Y: 10, Width: 30, Height: 30, StrokeColor: &red, StrokeWidth: 1},
			ShapeElement{Kind: ShapeEllipse, CX: 50, CY: 50, RX: 20, RY: 10, FillColor: &red},
		}
		if err := DrawElements(&stream, els, adder, res); err != nil {
			t.Fatal(err)
		}
		out := stream.String()
		if !strings.Contains(out, "100.00 0.00 l") {
			t.Errorf("missing line segment: %s", out)
		}
		if !strings.Contains(out, "10.00 10.00 30.00 30.00 re") {
			t.Errorf("missing rectangle: %s", out)
		}
		if strings.Count(out, " c\n") != 4 {
			t.Errorf("ellipse should emit 4 bezier segments, got %d", strings.Count(out, " c\n"))
		}
		if !strings.Contains(out, "f\n") {
			t.Error("filled ellipse should use f operator")
		}
	})
}
