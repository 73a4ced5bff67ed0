// Package fonts provides the font resources used when flattening field
// values and rendering the certificate page. The standard PDF base fonts
// carry their published metrics so layout code can measure text; custom
// TrueType faces are parsed for embedding with Embed.
package fonts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// StandardType identifies a base font every PDF reader ships, needing no
// embedding.
type StandardType int

const (
	// Helvetica is the standard sans-serif font.
	Helvetica StandardType = iota
	// HelveticaBold is bold Helvetica.
	HelveticaBold
	// HelveticaOblique is italic/oblique Helvetica.
	HelveticaOblique
	// TimesRoman is the standard serif font.
	TimesRoman
	// TimesBold is bold Times Roman.
	TimesBold
	// Courier is the standard monospace font.
	Courier
	// CourierBold is bold Courier.
	CourierBold
)

// Font is a font resource usable in page content.
type Font struct {
	Name     string   // PostScript name
	Data     []byte   // TrueType data, nil for standard fonts
	Hash     string   // SHA-256 of Data, for deduplication
	Embedded bool     // whether the data goes into the PDF
	Metrics  *Metrics // advance widths for text measurement
}

var standardNames = map[StandardType]string{
	Helvetica:        "Helvetica",
	HelveticaBold:    "Helvetica-Bold",
	HelveticaOblique: "Helvetica-Oblique",
	TimesRoman:       "Times-Roman",
	TimesBold:        "Times-Bold",
	Courier:          "Courier",
	CourierBold:      "Courier-Bold",
}

// Standard returns a base font. The Helvetica family and Courier carry
// their published advance widths; the Times variants fall back to the
// approximation in GetStringWidth.
func Standard(ft StandardType) *Font {
	f := &Font{Name: standardNames[ft]}
	switch ft {
	case Helvetica, HelveticaOblique:
		f.Metrics = helveticaMetrics
	case HelveticaBold:
		f.Metrics = helveticaBoldMetrics
	case Courier, CourierBold:
		f.Metrics = courierMetrics
	}
	return f
}

// Embed wraps TrueType data for embedding, parsing its metrics and hashing
// the bytes so repeated registrations of the same file deduplicate.
func Embed(name string, data []byte) (*Font, error) {
	m, err := ParseTTFMetrics(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", name, err)
	}
	sum := sha256.Sum256(data)
	return &Font{
		Name:     name,
		Data:     data,
		Hash:     hex.EncodeToString(sum[:]),
		Embedded: true,
		Metrics:  m,
	}, nil
}

// Metrics holds per-rune advance widths for text measurement.
type Metrics struct {
	UnitsPerEm  int
	GlyphWidths map[rune]int // advance widths in font units
	font        *sfnt.Font
}

// ParseTTFMetrics extracts glyph metrics from a TrueType file, covering the
// WinAnsi range the renderer encodes.
func ParseTTFMetrics(data []byte) (*Metrics, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, err
	}

	unitsPerEm := f.UnitsPerEm()
	glyphWidths := make(map[rune]int)
	var buf sfnt.Buffer

	// Query advances at one pixel per font unit so they come back unscaled.
	ppem := fixed.Int26_6(unitsPerEm) << 6

	for r := rune(32); r <= rune(255); r++ {
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			continue
		}
		advance, err := f.GlyphAdvance(&buf, idx, ppem, font.HintingNone)
		if err != nil {
			continue
		}
		glyphWidths[r] = int(advance >> 6)
	}

	return &Metrics{
		UnitsPerEm:  int(unitsPerEm),
		GlyphWidths: glyphWidths,
		font:        f,
	}, nil
}

// GetStringWidth measures text in points at the given size. A nil or empty
// Metrics approximates at half an em per rune.
func (m *Metrics) GetStringWidth(text string, fontSize float64) float64 {
	if m == nil || m.UnitsPerEm == 0 {
		return float64(len(text)) * fontSize * 0.5
	}

	var total int
	for _, r := range text {
		if w, ok := m.GlyphWidths[r]; ok {
			total += w
		} else {
			total += m.UnitsPerEm / 2
		}
	}
	return (float64(total) / float64(m.UnitsPerEm)) * fontSize
}

// GetGlyphWidth returns one rune's advance in font units.
func (m *Metrics) GetGlyphWidth(r rune) int {
	if m == nil {
		return 0
	}
	if w, ok := m.GlyphWidths[r]; ok {
		return w
	}
	return m.UnitsPerEm / 2
}

// GetWidthsArray returns the /Widths entries for a font dictionary covering
// FirstChar 32 through LastChar 255, scaled to 1000 units per em.
func (m *Metrics) GetWidthsArray() []int {
	widths := make([]int, 256-32)
	defaultWidth := 500

	if m != nil && m.UnitsPerEm > 0 {
		scale := 1000.0 / float64(m.UnitsPerEm)
		defaultWidth = int(float64(m.UnitsPerEm/2) * scale)

		for i := 32; i < 256; i++ {
			if w, ok := m.GlyphWidths[rune(i)]; ok {
				widths[i-32] = int(float64(w) * scale)
			} else {
				widths[i-32] = defaultWidth
			}
		}
	} else {
		for i := range widths {
			widths[i] = defaultWidth
		}
	}

	return widths
}

// afmMetrics builds Metrics from a printable-ASCII width table as published
// in the Adobe AFM files, which use 1000 units per em.
func afmMetrics(widths [95]int) *Metrics {
	gw := make(map[rune]int, len(widths))
	for i, w := range widths {
		gw[rune(32+i)] = w
	}
	return &Metrics{UnitsPerEm: 1000, GlyphWidths: gw}
}

func monoMetrics(advance int) *Metrics {
	gw := make(map[rune]int, 95)
	for r := rune(32); r <= rune(126); r++ {
		gw[r] = advance
	}
	return &Metrics{UnitsPerEm: 1000, GlyphWidths: gw}
}

var (
	helveticaMetrics = afmMetrics([95]int{
		278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
		1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
		333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
		556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
	})
	helveticaBoldMetrics = afmMetrics([95]int{
		278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 333, 333, 584, 584, 584, 611,
		975, 722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 333, 278, 333, 584, 556,
		333, 556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889, 611, 611,
		611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500, 389, 280, 389, 584,
	})
	courierMetrics = monoMetrics(600)
)
