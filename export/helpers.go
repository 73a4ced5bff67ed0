package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/digitorus/pdf"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func pdfString(text string) string {
	if !isASCII(text) {
		// UTF-16BE
		enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
		res, _, err := transform.String(enc, text)
		if err != nil {
			panic(err)
		}
		return "(" + res + ")"
	}

	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, ")", "\\)")
	text = strings.ReplaceAll(text, "(", "\\(")
	text = strings.ReplaceAll(text, "\r", "\\r")
	return "(" + text + ")"
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > '\u007F' {
			return false
		}
	}
	return true
}

// serializeValue writes v in PDF syntax. A value that lives in a different
// object than parentID is written as an indirect reference; direct values are
// written inline, recursively. This keeps page-tree cycles (Parent, Kids)
// from being expanded.
func serializeValue(buf *bytes.Buffer, parentID uint32, v pdf.Value) {
	ptr := v.GetPtr()
	if ptr.GetID() != 0 && uint32(ptr.GetID()) != parentID {
		fmt.Fprintf(buf, "%d %d R", ptr.GetID(), ptr.GetGen())
		return
	}

	switch v.Kind() {
	case pdf.Null:
		buf.WriteString("null")
	case pdf.Bool, pdf.Integer, pdf.Real, pdf.Name:
		buf.WriteString(v.String())
	case pdf.String:
		buf.WriteString(pdfString(v.RawString()))
	case pdf.Array:
		buf.WriteString("[")
		for i := 0; i < v.Len(); i++ {
			buf.WriteString(" ")
			serializeValue(buf, parentID, v.Index(i))
		}
		buf.WriteString(" ]")
	case pdf.Dict:
		buf.WriteString("<<")
		for _, key := range v.Keys() {
			fmt.Fprintf(buf, " /%s ", key)
			serializeValue(buf, parentID, v.Key(key))
		}
		buf.WriteString(" >>")
	default:
		// Streams are always indirect; a direct one cannot be copied.
		buf.WriteString("null")
	}
}

// ref formats an indirect reference to the object a value was loaded from.
func ref(v pdf.Value) (string, bool) {
	ptr := v.GetPtr()
	if ptr.GetID() == 0 {
		return "", false
	}
	return fmt.Sprintf("%d %d R", ptr.GetID(), ptr.GetGen()), true
}
