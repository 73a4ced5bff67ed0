package render

import (
	"github.com/doctransfer/signcore/fonts"
)

// Color represents an RGB color.
type Color struct {
	R, G, B uint8
}

// Element is a visual primitive that can be rendered into a PDF content
// stream. Coordinates are PDF-style: bottom-left origin, Y up, in the local
// space of whatever box the element list is drawn into.
type Element interface {
	IsElement()
}

// TextElement draws a string at a position.
type TextElement struct {
	Content string
	Font    *fonts.Font
	Size    float64
	X, Y    float64
	Color   Color
}

func (TextElement) IsElement() {}

// ImageElement draws decoded raster image bytes into a rectangle. The caller
// has already decided the rectangle; no fitting happens here.
type ImageElement struct {
	Data                []byte
	X, Y, Width, Height float64
}

func (ImageElement) IsElement() {}

// LineElement draws a stroked line.
type LineElement struct {
	X1, Y1, X2, Y2 float64
	StrokeColor    Color
	StrokeWidth    float64
}

func (LineElement) IsElement() {}

// ShapeKind discriminates ShapeElement geometry.
type ShapeKind int

const (
	// ShapeRect is an axis-aligned rectangle.
	ShapeRect ShapeKind = iota
	// ShapeEllipse is an axis-aligned ellipse given by center and radii.
	ShapeEllipse
)

// ShapeElement draws a stroked and/or filled shape.
type ShapeElement struct {
	Kind ShapeKind

	// Rect geometry.
	X, Y, Width, Height float64

	// Ellipse geometry (a circle when RX == RY).
	CX, CY, RX, RY float64

	StrokeColor, FillColor *Color
	StrokeWidth            float64
}

func (ShapeElement) IsElement() {}
