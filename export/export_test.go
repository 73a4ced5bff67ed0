package export

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/digitorus/pdf"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/doctransfer/signcore/audit"
	"github.com/doctransfer/signcore/config"
	"github.com/doctransfer/signcore/field"
	"github.com/doctransfer/signcore/fonts"
)

// buildTestPDF assembles a one-page letter-size document with a classic xref
// table, computing the offsets as it writes.
func buildTestPDF() []byte {
	var buf bytes.Buffer
	offsets := make([]int, 5)

	buf.WriteString("%PDF-1.4\n")

	writeObj := func(id int, body string) {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, body)
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, "<< /Type /Pages /Kids [ 3 0 R ] /Count 1 /MediaBox [ 0 0 612 792 ] >>")
	writeObj(3, "<< /Type /Page /Parent 2 0 R /Resources << >> /Contents 4 0 R >>")
	writeObj(4, "<< /Length 4 >>\nstream\nq Q\n\nendstream")

	xrefStart := buf.Len()
	buf.WriteString("xref\n0 5\n")
	buf.WriteString("0000000000 65535 f \n")
	for id := 1; id <= 4; id++ {
		fmt.Fprintf(&buf, "%010d %05d n \n", offsets[id], 0)
	}
	buf.WriteString("trailer\n<< /Size 5 /Root 1 0 R >>\n")
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefStart)

	return buf.Bytes()
}

func testConfig() config.Config {
	c := config.Default()
	c.CompressLevel = zlib.NoCompression
	return c
}

func flatten(t *testing.T, req Request) []byte {
	t.Helper()

	src := buildTestPDF()
	rdr, err := pdf.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	var out bytes.Buffer
	if err := Flatten(context.Background(), bytes.NewReader(src), rdr, &out, req); err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if !bytes.HasPrefix(out.Bytes(), src) {
		t.Fatal("output does not preserve the source bytes")
	}
	return out.Bytes()
}

// reparse feeds the flattened output back through the reader to prove the
// incremental update is well formed.
func reparse(t *testing.T, out []byte) *pdf.Reader {
	t.Helper()
	rdr, err := pdf.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("failed to re-parse flattened output: %v", err)
	}
	return rdr
}

func TestFlattenTextFields(t *testing.T) {
	textField := field.New(field.Text, 100, 200)
	dateField := field.New(field.Date, 100, 300)
	checkField := field.New(field.Checkbox, 100, 400)

	out := flatten(t, Request{
		DocumentID: "doc-1",
		Fields:     []*field.Field{&textField, &dateField, &checkField},
		Values: field.Values{
			textField.ID:  field.TextValue("Agreed"),
			dateField.ID:  field.DateValue(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)),
			checkField.ID: field.CheckedValue(true),
		},
		SignerEmails: []string{"alice@example.com"},
		Config:       testConfig(),
	})

	for _, want := range []string{"Agreed", "03/15/2026", "X"} {
		if !bytes.Contains(out, []byte("<"+hex.EncodeToString([]byte(want))+"> Tj")) {
			t.Errorf("output missing text %q", want)
		}
	}

	rdr := reparse(t, out)
	pages, err := collectPages(rdr)
	if err != nil {
		t.Fatalf("collectPages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want original plus certificate", len(pages))
	}
	if pages[0].width != 612 {
		t.Errorf("first page width = %v, want 612", pages[0].width)
	}
	if pages[1].width != 595.28 {
		t.Errorf("certificate page width = %v, want 595.28", pages[1].width)
	}
}

func TestFlattenSkipCertificate(t *testing.T) {
	f := field.New(field.Text, 100, 200)

	out := flatten(t, Request{
		DocumentID:      "doc-2",
		Fields:          []*field.Field{&f},
		Values:          field.Values{f.ID: field.TextValue("ok")},
		SkipCertificate: true,
		Config:          testConfig(),
	})

	rdr := reparse(t, out)
	pages, err := collectPages(rdr)
	if err != nil {
		t.Fatalf("collectPages: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if bytes.Contains(out, []byte("Certificate of Completion")) {
		t.Error("certificate content present despite SkipCertificate")
	}
}

func TestFlattenEmptyValuesSkipped(t *testing.T) {
	f := field.New(field.Text, 100, 200)
	ticked := field.New(field.Checkbox, 100, 300)

	out := flatten(t, Request{
		DocumentID: "doc-3",
		Fields:     []*field.Field{&f, &ticked},
		Values: field.Values{
			f.ID:      field.TextValue(""),
			ticked.ID: field.CheckedValue(false),
		},
		SkipCertificate: true,
		Config:          testConfig(),
	})

	// Nothing to draw; the update is just the xref section and trailer.
	if bytes.Contains(out, []byte("5 0 obj")) {
		t.Error("content object written for empty values")
	}
	reparse(t, out)
}

func TestFlattenBrokenImageFallsBack(t *testing.T) {
	sig := field.New(field.Signature, 100, 200)

	out := flatten(t, Request{
		DocumentID:      "doc-4",
		Fields:          []*field.Field{&sig},
		Values:          field.Values{sig.ID: field.ImageValue([]byte("not an image"))},
		SkipCertificate: true,
		Config:          testConfig(),
	})

	if !bytes.Contains(out, []byte("<"+hex.EncodeToString([]byte("SIGNATURE"))+"> Tj")) {
		t.Error("broken image did not fall back to the placeholder marker")
	}
	reparse(t, out)
}

func TestFlattenStamp(t *testing.T) {
	st := field.New(field.Stamp, 100, 200)
	st.StampKind = "paid-red"

	out := flatten(t, Request{
		DocumentID:      "doc-5",
		Fields:          []*field.Field{&st},
		Values:          field.Values{st.ID: field.StampAppliedValue()},
		SkipCertificate: true,
		Config:          testConfig(),
	})

	if !bytes.Contains(out, []byte("<"+hex.EncodeToString([]byte("PAID"))+"> Tj")) {
		t.Error("stamp artwork missing from content stream")
	}
	reparse(t, out)
}

func TestFlattenEmbeddedFont(t *testing.T) {
	f := field.New(field.Text, 100, 200)
	custom, err := fonts.Embed("GoRegular", goregular.TTF)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	out := flatten(t, Request{
		DocumentID:      "doc-font",
		Fields:          []*field.Field{&f},
		Values:          field.Values{f.ID: field.TextValue("Agreed")},
		Font:            custom,
		SkipCertificate: true,
		Config:          testConfig(),
	})

	if !bytes.Contains(out, []byte("/Subtype /TrueType")) {
		t.Error("embedded font dictionary missing")
	}
	if !bytes.Contains(out, []byte("/FontFile2")) {
		t.Error("font program not embedded")
	}
	if !bytes.Contains(out, []byte("<"+hex.EncodeToString([]byte("Agreed"))+"> Tj")) {
		t.Error("text not rendered with the custom font")
	}
	reparse(t, out)
}

func TestFlattenUnknownStampKind(t *testing.T) {
	st := field.New(field.Stamp, 100, 200)
	st.StampKind = "no-such-stamp"

	out := flatten(t, Request{
		DocumentID:      "doc-6",
		Fields:          []*field.Field{&st},
		Values:          field.Values{st.ID: field.StampAppliedValue()},
		SkipCertificate: true,
		Config:          testConfig(),
	})

	if !bytes.Contains(out, []byte("<"+hex.EncodeToString([]byte("STAMP"))+"> Tj")) {
		t.Error("unknown stamp kind did not fall back to the placeholder marker")
	}
}

func TestFlattenGapFieldSkipped(t *testing.T) {
	// RenderWidth 800 shows the 612x792 page as 1035.29 visual units tall;
	// place the field just past the end, inside the inter-page margin.
	f := field.New(field.Text, 100, 1040)

	out := flatten(t, Request{
		DocumentID:      "doc-7",
		Fields:          []*field.Field{&f},
		Values:          field.Values{f.ID: field.TextValue("lost")},
		SkipCertificate: true,
		Config:          testConfig(),
	})

	if bytes.Contains(out, []byte("<"+hex.EncodeToString([]byte("lost"))+"> Tj")) {
		t.Error("field in the inter-page gap was rendered")
	}
}

func TestFlattenPlaceholderTrail(t *testing.T) {
	out := flatten(t, Request{
		DocumentID:   "doc-8",
		SignerEmails: []string{"bob@example.com"},
		Config:       testConfig(),
	})

	for _, want := range []string{"Certificate of Completion", "Document Created", "Signature Applied"} {
		if !bytes.Contains(out, []byte("<"+hex.EncodeToString([]byte(want))+"> Tj")) {
			t.Errorf("certificate missing %q", want)
		}
	}
}

func TestFlattenRealTrail(t *testing.T) {
	ev := audit.New(audit.DocumentUploaded, "doc-9")
	ev.UserEmail = "carol@example.com"

	out := flatten(t, Request{
		DocumentID:  "doc-9",
		Trail:       []audit.Event{ev},
		GeneratedAt: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
		Config:      testConfig(),
	})

	for _, want := range []string{"Document Uploaded", "carol@example.com", "Generated on: 2026-04-01 12:00:00 UTC"} {
		if !bytes.Contains(out, []byte("<"+hex.EncodeToString([]byte(want))+"> Tj")) {
			t.Errorf("certificate missing %q", want)
		}
	}
}

type fakeAudit struct {
	events []audit.Event
	err    error
}

func (f fakeAudit) Events(_ context.Context, _ audit.Filter) ([]audit.Event, error) {
	return f.events, f.err
}

func TestFlattenAuditSource(t *testing.T) {
	ev := audit.New(audit.PasswordVerified, "doc-12")

	out := flatten(t, Request{
		DocumentID: "doc-12",
		Audit:      fakeAudit{events: []audit.Event{ev}},
		Config:     testConfig(),
	})

	if !bytes.Contains(out, []byte("<"+hex.EncodeToString([]byte("Password Verified"))+"> Tj")) {
		t.Error("certificate did not use the audit source")
	}
}

func TestFlattenAuditSourceFailureDegrades(t *testing.T) {
	ev := audit.New(audit.DocumentViewed, "doc-13")

	out := flatten(t, Request{
		DocumentID: "doc-13",
		Trail:      []audit.Event{ev},
		Audit:      fakeAudit{err: fmt.Errorf("store offline")},
		Config:     testConfig(),
	})

	if !bytes.Contains(out, []byte("<"+hex.EncodeToString([]byte("Document Viewed"))+"> Tj")) {
		t.Error("failed audit query should fall back to the supplied trail")
	}
}

func TestFlattenCanceledContext(t *testing.T) {
	src := buildTestPDF()
	rdr, err := pdf.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := field.New(field.Text, 100, 200)
	var out bytes.Buffer
	err = Flatten(ctx, bytes.NewReader(src), rdr, &out, Request{
		DocumentID: "doc-10",
		Fields:     []*field.Field{&f},
		Values:     field.Values{f.ID: field.TextValue("late")},
		Config:     testConfig(),
	})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestFlattenFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.pdf")
	output := filepath.Join(dir, "out.pdf")

	if err := os.WriteFile(input, buildTestPDF(), 0o644); err != nil {
		t.Fatal(err)
	}

	f := field.New(field.Text, 100, 200)
	err := FlattenFile(context.Background(), input, output, Request{
		DocumentID: "doc-11",
		Fields:     []*field.Field{&f},
		Values:     field.Values{f.ID: field.TextValue("done")},
		Config:     testConfig(),
	})
	if err != nil {
		t.Fatalf("FlattenFile: %v", err)
	}

	out, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasSuffix(bytes.TrimRight(out, "\n"), []byte("%%EOF")) {
		t.Errorf("output does not end with %%%%EOF")
	}
	reparse(t, out)
}
