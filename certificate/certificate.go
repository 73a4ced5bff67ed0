// Package certificate builds the certificate of completion page appended to
// an exported document: a process hash over the audit trail plus a rendered
// table of the trail itself.
package certificate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/doctransfer/signcore/audit"
	"github.com/doctransfer/signcore/fonts"
	"github.com/doctransfer/signcore/internal/render"
)

// A4 page dimensions in points.
const (
	PageWidth  = 595.28
	PageHeight = 841.89
)

const footerText = "Securely signed via DocTransfer"

var (
	ink      = render.Color{R: 26, G: 26, B: 26}
	dimGrey  = render.Color{R: 102, G: 102, B: 102}
	midGrey  = render.Color{R: 128, G: 128, B: 128}
	ruleGrey = render.Color{R: 204, G: 204, B: 204}
	textGrey = render.Color{R: 51, G: 51, B: 51}
)

var titleCaser = cases.Title(language.English)

type hashLog struct {
	Timestamp string `json:"event_timestamp"`
	Type      string `json:"event_type"`
	UserEmail string `json:"user_email,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// ProcessHash computes the SHA-256 hex digest binding a document ID to its
// audit trail. The digest is computed over a canonical JSON encoding so the
// same trail always yields the same hash.
func ProcessHash(documentID string, events []audit.Event) (string, error) {
	logs := make([]hashLog, len(events))
	for i, e := range events {
		logs[i] = hashLog{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Type:      string(e.Type),
			UserEmail: e.UserEmail,
			IPAddress: e.IPAddress,
		}
	}

	payload, err := json.Marshal(struct {
		DocumentID string    `json:"documentId"`
		Logs       []hashLog `json:"logs"`
	}{DocumentID: documentID, Logs: logs})
	if err != nil {
		return "", fmt.Errorf("encoding process hash payload: %w", err)
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// FormatEventType turns an event type like "signature_completed" into its
// display form "Signature Completed".
func FormatEventType(t audit.EventType) string {
	return titleCaser.String(strings.ReplaceAll(string(t), "_", " "))
}

// Build returns the certificate page content as render elements on an A4
// canvas. Trail rows that would not fit above the footer are dropped, and
// cells too wide for their column are truncated with an ellipsis.
func Build(documentID string, events []audit.Event, generatedAt time.Time) ([]render.Element, error) {
	font := fonts.Standard(fonts.Helvetica)
	bold := fonts.Standard(fonts.HelveticaBold)

	hash, err := ProcessHash(documentID, events)
	if err != nil {
		return nil, err
	}

	var els []render.Element
	y := PageHeight - 50.0

	els = append(els, render.TextElement{Content: "Certificate of Completion", Font: bold, Size: 24, X: 50, Y: y, Color: ink})
	y -= 30

	els = append(els, render.TextElement{Content: "Document ID: " + documentID, Font: font, Size: 10, X: 50, Y: y, Color: dimGrey})
	y -= 20

	els = append(els, render.TextElement{Content: "Generated on: " + generatedAt.UTC().Format("2006-01-02 15:04:05 UTC"), Font: font, Size: 10, X: 50, Y: y, Color: dimGrey})
	y -= 40

	els = append(els, render.TextElement{Content: "Cryptographic Process Hash (SHA-256):", Font: bold, Size: 12, X: 50, Y: y, Color: ink})
	y -= 15
	els = append(els, render.TextElement{Content: hash, Font: font, Size: 9, X: 50, Y: y, Color: textGrey})
	y -= 40

	els = append(els, render.TextElement{Content: "Audit Trail", Font: bold, Size: 16, X: 50, Y: y, Color: ink})
	y -= 25

	const (
		col1X = 50.0
		col2X = 200.0
		col3X = 400.0

		eventWidth = col3X - col2X - 10
		userWidth  = PageWidth - 50 - col3X
	)

	els = append(els,
		render.TextElement{Content: "Timestamp", Font: bold, Size: 10, X: col1X, Y: y, Color: ink},
		render.TextElement{Content: "Event", Font: bold, Size: 10, X: col2X, Y: y, Color: ink},
		render.TextElement{Content: "User / IP", Font: bold, Size: 10, X: col3X, Y: y, Color: ink},
	)
	y -= 5
	els = append(els, render.LineElement{X1: 50, Y1: y, X2: PageWidth - 50, Y2: y, StrokeColor: ruleGrey, StrokeWidth: 1})
	y -= 20

	for _, e := range events {
		if y < 50 {
			break
		}

		email := e.UserEmail
		if email == "" {
			email = "Anonymous"
		}
		ip := e.IPAddress
		if ip == "" {
			ip = "Unknown IP"
		}

		els = append(els,
			render.TextElement{Content: e.Timestamp.UTC().Format("2006-01-02 15:04:05"), Font: font, Size: 9, X: col1X, Y: y, Color: ink},
			render.TextElement{Content: fit(font.Metrics, FormatEventType(e.Type), 9, eventWidth), Font: font, Size: 9, X: col2X, Y: y, Color: ink},
			render.TextElement{Content: fit(font.Metrics, email, 9, userWidth), Font: font, Size: 9, X: col3X, Y: y, Color: ink},
			render.TextElement{Content: fit(font.Metrics, ip, 8, userWidth), Font: font, Size: 8, X: col3X, Y: y - 10, Color: midGrey},
		)
		y -= 30
	}

	footerX := (PageWidth - font.Metrics.GetStringWidth(footerText, 10)) / 2
	els = append(els, render.TextElement{Content: footerText, Font: font, Size: 10, X: footerX, Y: 30, Color: render.Color{R: 153, G: 153, B: 153}})

	return els, nil
}

// fit truncates text so it measures within maxWidth points, appending an
// ellipsis when anything was cut.
func fit(m *fonts.Metrics, text string, size, maxWidth float64) string {
	if m.GetStringWidth(text, size) <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if m.GetStringWidth(string(runes)+"...", size) <= maxWidth {
			return string(runes) + "..."
		}
	}
	return "..."
}
