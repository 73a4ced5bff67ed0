// Package render turns element lists into PDF content stream operators and
// registers the image and font objects they reference. It owns no document
// state; callers supply an ObjectAdder for the incremental update in progress.
package render

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/doctransfer/signcore/fonts"
)

// ObjectAdder appends new indirect objects to a PDF during an incremental
// update and reports the configured stream compression level.
type ObjectAdder interface {
	AddObject(object []byte) (uint32, error)
	Compression() int
}

// Resources accumulates the XObject and font references a content stream
// needs. The collected names map to object IDs and are later merged into the
// owning page's resource dictionary.
type Resources struct {
	XObjects map[string]uint32
	Fonts    map[string]uint32

	imgCount  int
	fontCount int
	fontNames map[string]string
}

// NewResources returns an empty resource accumulator.
func NewResources() *Resources {
	return &Resources{
		XObjects:  make(map[string]uint32),
		Fonts:     make(map[string]uint32),
		fontNames: make(map[string]string),
	}
}

func (r *Resources) addImage(objID uint32) string {
	r.imgCount++
	name := fmt.Sprintf("Im%d", r.imgCount)
	r.XObjects[name] = objID
	return name
}

func (r *Resources) font(adder ObjectAdder, f *fonts.Font) (string, error) {
	// Embedded fonts dedupe on content, standard fonts on name.
	key := "Helvetica"
	if f != nil {
		key = f.Name
		if f.Hash != "" {
			key = f.Hash
		}
	}
	if name, ok := r.fontNames[key]; ok {
		return name, nil
	}

	objID, err := RegisterFont(adder, f)
	if err != nil {
		return "", err
	}

	r.fontCount++
	name := fmt.Sprintf("F%d", r.fontCount)
	r.fontNames[key] = name
	r.Fonts[name] = objID
	return name, nil
}

// DrawElements appends the operators for the given elements to stream,
// registering referenced images and fonts through adder and recording their
// names in res.
func DrawElements(stream *bytes.Buffer, elements []Element, adder ObjectAdder, res *Resources) error {
	for _, el := range elements {
		switch e := el.(type) {
		case ImageElement:
			imgObjID, err := RegisterImage(adder, e.Data)
			if err != nil {
				return err
			}
			name := res.addImage(imgObjID)

			fmt.Fprintf(stream, "q\n")
			fmt.Fprintf(stream, "  %f 0 0 %f %f %f cm\n", e.Width, e.Height, e.X, e.Y)
			fmt.Fprintf(stream, "  /%s Do\n", name)
			fmt.Fprintf(stream, "Q\n")

		case TextElement:
			fontName, err := res.font(adder, e.Font)
			if err != nil {
				return err
			}

			stream.WriteString("q\nBT\n")
			fmt.Fprintf(stream, "  /%s %.2f Tf\n", fontName, e.Size)
			fmt.Fprintf(stream, "  %.2f %.2f %.2f rg\n", float64(e.Color.R)/255.0, float64(e.Color.G)/255.0, float64(e.Color.B)/255.0)
			fmt.Fprintf(stream, "  %.2f %.2f Td\n", e.X, e.Y)
			fmt.Fprintf(stream, "  <%s> Tj\n", hex.EncodeToString([]byte(e.Content)))
			stream.WriteString("ET\nQ\n")

		case LineElement:
			stream.WriteString("q\n")
			fmt.Fprintf(stream, "%.2f w\n", e.StrokeWidth)
			fmt.Fprintf(stream, "%.2f %.2f %.2f RG\n", float64(e.StrokeColor.R)/255.0, float64(e.StrokeColor.G)/255.0, float64(e.StrokeColor.B)/255.0)
			fmt.Fprintf(stream, "%.2f %.2f m\n", e.X1, e.Y1)
			fmt.Fprintf(stream, "%.2f %.2f l\n", e.X2, e.Y2)
			stream.WriteString("S\nQ\n")

		case ShapeElement:
			stream.WriteString("q\n")
			fmt.Fprintf(stream, "%.2f w\n", e.StrokeWidth)
			if e.FillColor != nil {
				fmt.Fprintf(stream, "%.2f %.2f %.2f rg\n", float64(e.FillColor.R)/255.0, float64(e.FillColor.G)/255.0, float64(e.FillColor.B)/255.0)
			}
			if e.StrokeColor != nil {
				fmt.Fprintf(stream, "%.2f %.2f %.2f RG\n", float64(e.StrokeColor.R)/255.0, float64(e.StrokeColor.G)/255.0, float64(e.StrokeColor.B)/255.0)
			}

			switch e.Kind {
			case ShapeRect:
				fmt.Fprintf(stream, "%.2f %.2f %.2f %.2f re\n", e.X, e.Y, e.Width, e.Height)
			case ShapeEllipse:
				writeEllipse(stream, e.CX, e.CY, e.RX, e.RY)
			}

			if e.FillColor != nil && e.StrokeColor != nil {
				stream.WriteString("B\n")
			} else if e.FillColor != nil {
				stream.WriteString("f\n")
			} else if e.StrokeColor != nil {
				stream.WriteString("S\n")
			}
			stream.WriteString("Q\n")
		}
	}

	return nil
}

// writeEllipse approximates an ellipse with four cubic Bezier segments.
func writeEllipse(stream *bytes.Buffer, cx, cy, rx, ry float64) {
	kx := 0.5522847498 * rx
	ky := 0.5522847498 * ry
	fmt.Fprintf(stream, "%.2f %.2f m\n", cx+rx, cy)
	fmt.Fprintf(stream, "%.2f %.2f %.2f %.2f %.2f %.2f c\n", cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	fmt.Fprintf(stream, "%.2f %.2f %.2f %.2f %.2f %.2f c\n", cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	fmt.Fprintf(stream, "%.2f %.2f %.2f %.2f %.2f %.2f c\n", cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	fmt.Fprintf(stream, "%.2f %.2f %.2f %.2f %.2f %.2f c\n", cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
}

// RegisterImage decodes raster image data, encodes it as an image XObject and
// registers it in the PDF. JPEG data without transparency passes through
// untouched (DCTDecode); everything else is re-encoded as zlib-compressed RGB
// with an SMask when the source carries alpha.
func RegisterImage(adder ObjectAdder, data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("invalid image data")
	}

	srcImg, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to decode image: %v", err)
	}

	bounds := srcImg.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	compressLevel := zlib.DefaultCompression
	if adder != nil {
		compressLevel = adder.Compression()
	}
	useCompression := compressLevel != zlib.NoCompression

	var rgbBuf, alphaBuf bytes.Buffer
	var rgbWriter, alphaWriter io.Writer = &rgbBuf, &alphaBuf
	var zlibRgb, zlibAlpha *zlib.Writer

	if useCompression {
		zlibRgb, _ = zlib.NewWriterLevel(&rgbBuf, compressLevel)
		zlibAlpha, _ = zlib.NewWriterLevel(&alphaBuf, compressLevel)
		rgbWriter, alphaWriter = zlibRgb, zlibAlpha
	}

	hasAlpha := false
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := srcImg.At(bounds.Min.X+x, bounds.Min.Y+y)
			r, g, b, a := c.RGBA()
			a8 := uint8(a >> 8)
			if a8 < 255 {
				hasAlpha = true
			}
			alphaWriter.Write([]byte{a8})
			rgbWriter.Write([]byte{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)})
		}
	}

	if useCompression {
		zlibRgb.Close()
		zlibAlpha.Close()
	}

	var smaskID uint32
	if hasAlpha {
		smaskDict := fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray /BitsPerComponent 8 %s /Length %d >>\nstream\n",
			width, height, ifElse(useCompression, "/Filter /FlateDecode", ""), alphaBuf.Len())
		smaskData := append([]byte(smaskDict), alphaBuf.Bytes()...)
		smaskData = append(smaskData, []byte("\nendstream")...)
		smaskID, _ = adder.AddObject(smaskData)
	}

	var objBuf bytes.Buffer
	objBuf.WriteString("<< /Type /XObject /Subtype /Image\n")
	fmt.Fprintf(&objBuf, "  /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8\n", width, height)
	if smaskID != 0 {
		fmt.Fprintf(&objBuf, "  /SMask %d 0 R\n", smaskID)
	}

	if format == "jpeg" && !hasAlpha {
		fmt.Fprintf(&objBuf, "  /Filter /DCTDecode /Length %d >>\nstream\n", len(data))
		objBuf.Write(data)
	} else {
		fmt.Fprintf(&objBuf, "  %s /Length %d >>\nstream\n", ifElse(useCompression, "/Filter /FlateDecode", ""), rgbBuf.Len())
		objBuf.Write(rgbBuf.Bytes())
	}
	objBuf.WriteString("\nendstream")

	return adder.AddObject(objBuf.Bytes())
}

// RegisterFont registers a font in the PDF. Fonts with embedded TrueType data
// get a full descriptor and width array; standard fonts get a plain Type1
// dictionary, which every reader resolves without embedding.
func RegisterFont(adder ObjectAdder, f *fonts.Font) (uint32, error) {
	if f != nil && len(f.Data) > 0 {
		compressLevel := zlib.DefaultCompression
		if adder != nil {
			compressLevel = adder.Compression()
		}

		fontData := f.Data
		filter := ""
		if compressLevel != zlib.NoCompression {
			var buf bytes.Buffer
			zw, _ := zlib.NewWriterLevel(&buf, compressLevel)
			zw.Write(f.Data)
			zw.Close()
			fontData = buf.Bytes()
			filter = "/Filter /FlateDecode"
		}

		streamDict := fmt.Sprintf("<< /Length %d /Length1 %d %s >>\nstream\n", len(fontData), len(f.Data), filter)
		streamData := append([]byte(streamDict), fontData...)
		streamData = append(streamData, []byte("\nendstream")...)
		fontStreamID, err := adder.AddObject(streamData)
		if err != nil {
			return 0, err
		}

		fdDict := fmt.Sprintf("<< /Type /FontDescriptor /FontName /%s /Flags 32 /FontBBox [-500 -200 1000 900] /ItalicAngle 0 /Ascent 800 /Descent -200 /CapHeight 700 /StemV 80 /FontFile2 %d 0 R >>", f.Name, fontStreamID)
		descriptorID, err := adder.AddObject([]byte(fdDict))
		if err != nil {
			return 0, err
		}

		var fontBuf bytes.Buffer
		fmt.Fprintf(&fontBuf, "<< /Type /Font /Subtype /TrueType /BaseFont /%s /FontDescriptor %d 0 R /FirstChar 32 /LastChar 255 /Encoding /WinAnsiEncoding /Widths [", f.Name, descriptorID)
		if f.Metrics != nil {
			for _, w := range f.Metrics.GetWidthsArray() {
				fmt.Fprintf(&fontBuf, " %d", w)
			}
		} else {
			for i := 32; i <= 255; i++ {
				fontBuf.WriteString(" 500")
			}
		}
		fontBuf.WriteString(" ] >>")
		return adder.AddObject(fontBuf.Bytes())
	}

	baseFont := "Helvetica"
	if f != nil && f.Name != "" {
		baseFont = f.Name
	}
	fontDict := fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding >>", baseFont)
	return adder.AddObject([]byte(fontDict))
}

func ifElse(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
