// Package export flattens collected field values into the source PDF as an
// incremental update and appends the certificate of completion. The source
// bytes are never rewritten; everything the export adds goes after the last
// %%EOF, so an interrupted or failed export leaves the original intact.
package export

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/digitorus/pdf"
	"github.com/mattetti/filebuffer"

	"github.com/doctransfer/signcore/audit"
	"github.com/doctransfer/signcore/certificate"
	"github.com/doctransfer/signcore/config"
	"github.com/doctransfer/signcore/field"
	"github.com/doctransfer/signcore/fonts"
	"github.com/doctransfer/signcore/internal/render"
	"github.com/doctransfer/signcore/layout"
	"github.com/doctransfer/signcore/stamps"
)

var fallbackRed = render.Color{R: 255}

// Request describes one flattening run.
type Request struct {
	// DocumentID identifies the document in the audit trail and on the
	// certificate page.
	DocumentID string

	// Fields are the placed annotations; Values holds what signers entered.
	// Fields without a value are skipped.
	Fields []*field.Field
	Values field.Values

	// Trail is the document's audit history for the certificate page. When
	// Audit is set it is queried instead, falling back to Trail on failure.
	// An empty trail is replaced by placeholders synthesized from
	// SignerEmails.
	Trail        []audit.Event
	Audit        audit.Source
	SignerEmails []string

	// Font renders text, date and checkbox values. Defaults to Helvetica;
	// use fonts.Embed to flatten with a custom TrueType face.
	Font *fonts.Font

	// SkipCertificate omits the certificate of completion page.
	SkipCertificate bool

	// GeneratedAt stamps the certificate page; zero means now.
	GeneratedAt time.Time

	Config config.Config
}

// FlattenFile opens input, flattens per req and writes the result to output.
func FlattenFile(ctx context.Context, input, output string, req Request) error {
	inputFile, err := os.Open(input)
	if err != nil {
		return err
	}
	defer func() {
		_ = inputFile.Close()
	}()

	outputFile, err := os.Create(output)
	if err != nil {
		return err
	}
	defer func() {
		_ = outputFile.Close()
	}()

	finfo, err := inputFile.Stat()
	if err != nil {
		return err
	}

	rdr, err := pdf.NewReader(inputFile, finfo.Size())
	if err != nil {
		return err
	}

	return Flatten(ctx, inputFile, rdr, outputFile, req)
}

// Flatten appends an incremental update to the document read by rdr,
// flattening the request's field values into page content and appending the
// certificate page, and writes the complete result to output.
func Flatten(ctx context.Context, input io.ReadSeeker, rdr *pdf.Reader, output io.Writer, req Request) error {
	if req.Config == (config.Config{}) {
		req.Config = config.Default()
	}
	if req.Font == nil {
		req.Font = fonts.Standard(fonts.Helvetica)
	}

	c := &exportContext{
		input:         rdr,
		textFont:      req.Font,
		compressLevel: req.Config.CompressLevel,
	}
	c.lastXrefID = c.getLastObjectID()
	c.output = filebuffer.New([]byte{})

	if _, err := input.Seek(0, 0); err != nil {
		return err
	}
	if _, err := io.Copy(c.output, input); err != nil {
		return err
	}
	// File always needs an empty line after %%EOF.
	if _, err := c.output.Write([]byte("\n")); err != nil {
		return err
	}

	pages, err := collectPages(rdr)
	if err != nil {
		return err
	}
	metrics := layout.BuildPageMetrics(pageSizes(pages), req.Config.RenderWidth, req.Config.PageMargin)

	byPage := groupFieldsByPage(metrics, req)

	for pageIndex := range pages {
		pageFields := byPage[pageIndex]
		if len(pageFields) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.flattenPage(ctx, pages[pageIndex], metrics[pageIndex], pageFields, req.Values); err != nil {
			return fmt.Errorf("failed to flatten page %d: %w", pageIndex, err)
		}
	}

	if !req.SkipCertificate {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.appendCertificatePage(rdr, req, fetchTrail(ctx, req)); err != nil {
			// The flattened document is still complete without the
			// certificate page.
			slog.Warn("certificate page skipped", "document", req.DocumentID, "error", err)
		}
	}

	if err := c.writeXref(); err != nil {
		return fmt.Errorf("failed to write xref: %w", err)
	}
	if err := c.writeStartXref(); err != nil {
		return fmt.Errorf("failed to write trailer: %w", err)
	}

	if _, err := c.output.Seek(0, 0); err != nil {
		return err
	}
	if _, err := output.Write(c.output.Buff.Bytes()); err != nil {
		return err
	}

	slog.Info("document flattened",
		"document", req.DocumentID,
		"pages", len(pages),
		"fields", len(req.Fields),
		"size", c.output.Buff.Len())
	return nil
}

// groupFieldsByPage assigns each filled field to the page its top edge lands
// on. Fields in the inter-page gap or without a value are skipped.
func groupFieldsByPage(metrics []layout.PageMetric, req Request) map[int][]*field.Field {
	byPage := make(map[int][]*field.Field)
	for _, f := range req.Fields {
		v, ok := req.Values.Get(f.ID)
		if !ok || v.Empty() {
			continue
		}

		m, ok := layout.LocatePage(metrics, f.Y)
		if !ok {
			slog.Warn("field lies in the inter-page gap, skipping", "field", f.ID, "y", f.Y)
			continue
		}
		byPage[m.Index] = append(byPage[m.Index], f)
	}
	return byPage
}

// flattenPage builds the content stream for one page's fields and rewrites
// the page dictionary to include it.
func (c *exportContext) flattenPage(ctx context.Context, page pageInfo, m layout.PageMetric, pageFields []*field.Field, values field.Values) error {
	var stream bytes.Buffer
	res := render.NewResources()

	for _, f := range pageFields {
		if err := ctx.Err(); err != nil {
			return err
		}

		v, _ := values.Get(f.ID)
		if err := c.drawField(&stream, f, v, m, res); err != nil {
			// One broken field must not sink the export; stand in a red
			// marker where the value would have gone.
			slog.Warn("field could not be rendered, using placeholder",
				"field", f.ID, "type", f.Type.String(), "error", err)
			if err := c.drawFallback(&stream, f, m, res); err != nil {
				return err
			}
		}
	}

	contentID, err := c.addContentStream(stream.Bytes())
	if err != nil {
		return err
	}

	return c.updateObject(page.id, updatedPageDict(page, contentID, res))
}

// drawField emits the operators for one field value.
func (c *exportContext) drawField(stream *bytes.Buffer, f *field.Field, v field.Value, m layout.PageMetric, res *render.Resources) error {
	pdfX, pdfY := layout.ToPDFSpace(m, f.X, f.Y, f.Height)
	scale := m.Scale

	switch {
	case f.Type.IsImage():
		el, err := fitImage(v.Image, pdfX, pdfY, f.Width*scale, f.Height*scale)
		if err != nil {
			return err
		}
		return render.DrawElements(stream, []render.Element{el}, c, res)

	case f.Type.IsTextual():
		text := v.Text
		if f.Type == field.Date {
			text = v.Date.Format("01/02/2006")
		}
		el := render.TextElement{
			Content: text,
			Font:    c.textFont,
			Size:    12 * scale,
			X:       pdfX + 5*scale,
			Y:       pdfY + 12*scale,
			Color:   render.Color{},
		}
		return render.DrawElements(stream, []render.Element{el}, c, res)

	case f.Type == field.Checkbox:
		el := render.TextElement{
			Content: "X",
			Font:    c.textFont,
			Size:    20 * scale,
			X:       pdfX + 10*scale,
			Y:       pdfY + 10*scale,
			Color:   render.Color{},
		}
		return render.DrawElements(stream, []render.Element{el}, c, res)

	case f.Type == field.Stamp:
		stamp := stamps.Default()
		if f.StampKind != "" {
			var err error
			stamp, err = stamps.Lookup(stamps.Kind(f.StampKind))
			if err != nil {
				return err
			}
		}

		// The stamp is authored on its own canvas; fit it into the field
		// rectangle preserving its aspect ratio, centered.
		boxW, boxH := f.Width*scale, f.Height*scale
		sc := math.Min(boxW/stamp.Width, boxH/stamp.Height)
		tx := pdfX + (boxW-stamp.Width*sc)/2
		ty := pdfY + (boxH-stamp.Height*sc)/2
		fmt.Fprintf(stream, "q\n%f 0 0 %f %f %f cm\n", sc, sc, tx, ty)
		if err := render.DrawElements(stream, stamp.Elements, c, res); err != nil {
			return err
		}
		stream.WriteString("Q\n")
		return nil
	}

	return fmt.Errorf("unsupported field type %q", f.Type)
}

// drawFallback writes the red placeholder used when a field value cannot be
// rendered.
func (c *exportContext) drawFallback(stream *bytes.Buffer, f *field.Field, m layout.PageMetric, res *render.Resources) error {
	pdfX, pdfY := layout.ToPDFSpace(m, f.X, f.Y, f.Height)
	el := render.TextElement{
		Content: strings.ToUpper(f.Type.String()),
		Font:    c.textFont,
		Size:    12 * m.Scale,
		X:       pdfX,
		Y:       pdfY,
		Color:   fallbackRed,
	}
	return render.DrawElements(stream, []render.Element{el}, c, res)
}

// fitImage decodes the image dimensions and aspect-fits the image centered
// in the field box.
func fitImage(data []byte, x, y, boxW, boxH float64) (render.ImageElement, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return render.ImageElement{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return render.ImageElement{}, fmt.Errorf("image has zero dimension")
	}

	drawW := boxW
	drawH := float64(cfg.Height) / float64(cfg.Width) * drawW
	if drawH > boxH {
		drawH = boxH
		drawW = float64(cfg.Width) / float64(cfg.Height) * drawH
	}

	return render.ImageElement{
		Data:   data,
		X:      x + (boxW-drawW)/2,
		Y:      y + (boxH-drawH)/2,
		Width:  drawW,
		Height: drawH,
	}, nil
}

// addContentStream wraps operators into a stream object, compressing per the
// configured level.
func (c *exportContext) addContentStream(operators []byte) (uint32, error) {
	var obj bytes.Buffer

	if c.compressLevel != zlib.NoCompression {
		var compressed bytes.Buffer
		w, err := zlib.NewWriterLevel(&compressed, c.compressLevel)
		if err != nil {
			return 0, err
		}
		if _, err := w.Write(operators); err != nil {
			return 0, err
		}
		if err := w.Close(); err != nil {
			return 0, err
		}

		fmt.Fprintf(&obj, "<< /Length %d /Filter /FlateDecode >>\nstream\n", compressed.Len())
		obj.Write(compressed.Bytes())
	} else {
		fmt.Fprintf(&obj, "<< /Length %d >>\nstream\n", len(operators))
		obj.Write(operators)
	}
	obj.WriteString("\nendstream")

	return c.AddObject(obj.Bytes())
}

// fetchTrail resolves the audit history for the certificate page: the
// source when one is configured, the request's trail otherwise. A failed
// query degrades to the trail rather than failing the export.
func fetchTrail(ctx context.Context, req Request) []audit.Event {
	if req.Audit == nil {
		return req.Trail
	}
	events, err := req.Audit.Events(ctx, audit.Filter{DocumentID: req.DocumentID, Ascending: true})
	if err != nil {
		slog.Warn("audit trail unavailable, degrading", "document", req.DocumentID, "error", err)
		return req.Trail
	}
	return events
}

// appendCertificatePage builds the certificate of completion as a fresh A4
// page and hangs it off the root page tree node.
func (c *exportContext) appendCertificatePage(rdr *pdf.Reader, req Request, trail []audit.Event) error {
	if len(trail) == 0 {
		trail = audit.PlaceholderEvents(req.DocumentID, req.SignerEmails)
	}

	generatedAt := req.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}

	els, err := certificate.Build(req.DocumentID, trail, generatedAt)
	if err != nil {
		return err
	}

	var stream bytes.Buffer
	res := render.NewResources()
	if err := render.DrawElements(&stream, els, c, res); err != nil {
		return err
	}

	contentID, err := c.addContentStream(stream.Bytes())
	if err != nil {
		return err
	}

	pagesNode := rdr.Trailer().Key("Root").Key("Pages")
	pagesRef, ok := ref(pagesNode)
	if !ok {
		return fmt.Errorf("page tree root is not an indirect object")
	}
	pagesPtr := pagesNode.GetPtr()
	pagesID := uint32(pagesPtr.GetID())

	var pageObj bytes.Buffer
	pageObj.WriteString("<< /Type /Page\n")
	fmt.Fprintf(&pageObj, "  /Parent %s\n", pagesRef)
	fmt.Fprintf(&pageObj, "  /MediaBox [0 0 %.2f %.2f]\n", certificate.PageWidth, certificate.PageHeight)
	fmt.Fprintf(&pageObj, "  /Contents %d 0 R\n", contentID)
	pageObj.WriteString("  /Resources ")
	writeMergedResources(&pageObj, 0, pdf.Value{}, res)
	pageObj.WriteString("\n>>")

	pageID, err := c.AddObject(pageObj.Bytes())
	if err != nil {
		return err
	}

	// Rewrite the root Pages node with the new kid and bumped count.
	var pagesObj bytes.Buffer
	pagesObj.WriteString("<<\n")
	for _, key := range pagesNode.Keys() {
		if key == "Kids" || key == "Count" {
			continue
		}
		fmt.Fprintf(&pagesObj, "  /%s ", key)
		serializeValue(&pagesObj, pagesID, pagesNode.Key(key))
		pagesObj.WriteString("\n")
	}

	pagesObj.WriteString("  /Kids [")
	kids := pagesNode.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		if r, ok := ref(kids.Index(i)); ok {
			pagesObj.WriteString(" " + r)
		}
	}
	fmt.Fprintf(&pagesObj, " %d 0 R ]\n", pageID)
	fmt.Fprintf(&pagesObj, "  /Count %d\n", pagesNode.Key("Count").Int64()+1)
	pagesObj.WriteString(">>")

	return c.updateObject(pagesID, pagesObj.Bytes())
}
