// Package stamps defines the built-in rubber stamp artwork. Each stamp is a
// list of vector elements authored in PDF user space (origin bottom-left) on
// the stamp's own canvas; the export engine scales the canvas into the target
// field rectangle.
package stamps

import (
	"fmt"

	"github.com/doctransfer/signcore/fonts"
	"github.com/doctransfer/signcore/internal/render"
)

// Kind identifies a built-in stamp.
type Kind string

const (
	Biohazard       Kind = "biohazard"
	AuthSquare      Kind = "auth-square"
	Saito           Kind = "saito"
	AuthSimple      Kind = "auth-simple"
	Authorized      Kind = "authorized"
	ApprovedGreen   Kind = "approved-green"
	ConfidentialRed Kind = "confidential-red"
	ReceivedBlue    Kind = "received-blue"
	UrgentRed       Kind = "urgent-red"
	PaidRed         Kind = "paid-red"
	DraftGrey       Kind = "draft-grey"
	RejectedRed     Kind = "rejected-red"
	CopyGrey        Kind = "copy-grey"
	VoidBlack       Kind = "void-black"
	CompletedGreen  Kind = "completed-green"
)

// Stamp is a renderable stamp definition.
type Stamp struct {
	Kind     Kind
	Label    string
	Width    float64
	Height   float64
	Elements []render.Element
}

var (
	green = render.Color{R: 5, G: 150, B: 105}
	red   = render.Color{R: 220, G: 38, B: 38}
	blue  = render.Color{R: 37, G: 99, B: 235}
	grey  = render.Color{R: 156, G: 163, B: 175}
	slate = render.Color{R: 107, G: 114, B: 128}
	black = render.Color{}
	amber = render.Color{R: 245, G: 158, B: 11}
	brick = render.Color{R: 217, G: 48, B: 37}
	white = render.Color{R: 255, G: 255, B: 255}
)

var helvBold = fonts.Standard(fonts.HelveticaBold)
var timesBold = fonts.Standard(fonts.TimesBold)

func rect(x, y, w, h float64, stroke *render.Color, strokeWidth float64, fill *render.Color) render.ShapeElement {
	return render.ShapeElement{Kind: render.ShapeRect, X: x, Y: y, Width: w, Height: h, StrokeColor: stroke, StrokeWidth: strokeWidth, FillColor: fill}
}

func ellipse(cx, cy, rx, ry float64, stroke *render.Color, strokeWidth float64, fill *render.Color) render.ShapeElement {
	return render.ShapeElement{Kind: render.ShapeEllipse, CX: cx, CY: cy, RX: rx, RY: ry, StrokeColor: stroke, StrokeWidth: strokeWidth, FillColor: fill}
}

func line(x1, y1, x2, y2 float64, stroke render.Color, strokeWidth float64) render.LineElement {
	return render.LineElement{X1: x1, Y1: y1, X2: x2, Y2: y2, StrokeColor: stroke, StrokeWidth: strokeWidth}
}

func text(s string, f *fonts.Font, size, x, y float64, c render.Color) render.TextElement {
	return render.TextElement{Content: s, Font: f, Size: size, X: x, Y: y, Color: c}
}

var registry = map[Kind]Stamp{
	ApprovedGreen: {
		Kind: ApprovedGreen, Label: "Approved (Green)", Width: 150, Height: 60,
		Elements: []render.Element{
			rect(4, 4, 142, 52, &green, 3, nil),
			rect(9, 9, 132, 42, &green, 1, nil),
			text("APPROVED", helvBold, 22, 14, 22, green),
		},
	},
	ConfidentialRed: {
		Kind: ConfidentialRed, Label: "Confidential (Red)", Width: 160, Height: 50,
		Elements: []render.Element{
			rect(2, 2, 156, 46, &red, 3, nil),
			text("CONFIDENTIAL", helvBold, 20, 6, 16, red),
		},
	},
	ReceivedBlue: {
		Kind: ReceivedBlue, Label: "Received (Blue)", Width: 140, Height: 70,
		Elements: []render.Element{
			rect(2, 2, 136, 66, &blue, 2, nil),
			text("RECEIVED", helvBold, 18, 25, 45, blue),
			line(20, 25, 120, 25, blue, 1),
			text("DATE: ....................", helvBold, 10, 22, 10, blue),
		},
	},
	UrgentRed: {
		Kind: UrgentRed, Label: "Urgent (Red)", Width: 140, Height: 60,
		Elements: []render.Element{
			ellipse(70, 30, 65, 25, &red, 3, nil),
			text("URGENT", helvBold, 24, 26, 22, red),
		},
	},
	PaidRed: {
		Kind: PaidRed, Label: "Paid (Red)", Width: 120, Height: 50,
		Elements: []render.Element{
			rect(2, 2, 116, 46, &red, 4, nil),
			text("PAID", helvBold, 26, 28, 16, red),
		},
	},
	DraftGrey: {
		Kind: DraftGrey, Label: "Draft (Grey)", Width: 140, Height: 60,
		Elements: []render.Element{
			text("DRAFT", helvBold, 36, 12, 20, grey),
		},
	},
	RejectedRed: {
		Kind: RejectedRed, Label: "Rejected (Red)", Width: 150, Height: 60,
		Elements: []render.Element{
			ellipse(75, 30, 28, 28, &red, 2, nil),
			text("REJECTED", helvBold, 18, 31, 25, red),
		},
	},
	CopyGrey: {
		Kind: CopyGrey, Label: "Copy (Grey)", Width: 120, Height: 50,
		Elements: []render.Element{
			rect(2, 2, 116, 46, &slate, 2, nil),
			text("COPY", helvBold, 24, 29, 18, slate),
		},
	},
	VoidBlack: {
		Kind: VoidBlack, Label: "Void (Black)", Width: 140, Height: 60,
		Elements: []render.Element{
			rect(5, 5, 130, 50, &black, 4, nil),
			text("VOID", helvBold, 32, 28, 20, black),
		},
	},
	CompletedGreen: {
		Kind: CompletedGreen, Label: "Completed (Green)", Width: 160, Height: 60,
		Elements: []render.Element{
			rect(2, 2, 156, 56, &green, 2, nil),
			line(20, 30, 30, 20, green, 3),
			line(30, 20, 50, 40, green, 3),
			text("COMPLETED", helvBold, 20, 39, 22, green),
		},
	},
	Biohazard: {
		Kind: Biohazard, Label: "Circles", Width: 100, Height: 100,
		Elements: []render.Element{
			rect(0, 0, 100, 100, &black, 2, &amber),
			ellipse(50, 72.4, 14.4, 14.4, &black, 5, nil),
			ellipse(69.4, 38.8, 14.4, 14.4, &black, 5, nil),
			ellipse(30.6, 38.8, 14.4, 14.4, &black, 5, nil),
			ellipse(50, 50, 12, 12, &black, 4, nil),
			ellipse(50, 50, 6, 6, nil, 0, &black),
		},
	},
	AuthSquare: {
		Kind: AuthSquare, Label: "Auth - square crop", Width: 150, Height: 60,
		Elements: []render.Element{
			rect(4, 4, 142, 52, &red, 2, nil),
			rect(8, 8, 134, 44, &red, 1, nil),
			text("AUTHORIZED", timesBold, 22, 10, 22, red),
		},
	},
	Saito: {
		Kind: Saito, Label: "Saito", Width: 80, Height: 80,
		Elements: []render.Element{
			ellipse(40, 40, 36, 36, &red, 2, &white),
			line(8, 54, 72, 54, red, 1),
			line(8, 26, 72, 26, red, 1),
			text("2026.01.18", helvBold, 12, 10, 60, red),
			text("SAITO", timesBold, 16, 16, 36, red),
			text("APPROVED", helvBold, 12, 14, 10, red),
		},
	},
	AuthSimple: {
		Kind: AuthSimple, Label: "Authorized - simple", Width: 120, Height: 120,
		Elements: []render.Element{
			ellipse(60, 60, 48, 48, &red, 3, nil),
			ellipse(60, 60, 38, 38, &red, 1, nil),
			text("AUTHORIZED", helvBold, 16, 12, 55, red),
		},
	},
	Authorized: {
		Kind: Authorized, Label: "Authorized", Width: 140, Height: 60,
		Elements: []render.Element{
			rect(5, 5, 130, 50, &brick, 5, nil),
			text("AUTHORIZED", helvBold, 22, 4, 22, brick),
			line(10, 10, 130, 45, brick, 2),
			line(15, 45, 125, 15, brick, 2),
		},
	},
}

// Default returns the stamp used when a stamp field carries no explicit kind.
func Default() Stamp {
	return registry[Biohazard]
}

// Lookup returns the stamp for the given kind.
func Lookup(k Kind) (Stamp, error) {
	s, ok := registry[k]
	if !ok {
		return Stamp{}, fmt.Errorf("unknown stamp kind %q", k)
	}
	return s, nil
}

// Kinds returns all registered stamp kinds.
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}
