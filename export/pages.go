package export

import (
	"bytes"
	"fmt"

	"github.com/digitorus/pdf"

	"github.com/doctransfer/signcore/internal/render"
	"github.com/doctransfer/signcore/layout"
)

// pageInfo is one leaf of the document's page tree with its inherited
// media box resolved.
type pageInfo struct {
	value  pdf.Value
	id     uint32
	gen    uint16
	width  float64
	height float64
}

// collectPages walks the page tree in reading order, resolving inherited
// MediaBox entries along the way.
func collectPages(r *pdf.Reader) ([]pageInfo, error) {
	root := r.Trailer().Key("Root")
	pages := root.Key("Pages")
	if pages.IsNull() {
		return nil, fmt.Errorf("document has no page tree")
	}

	var out []pageInfo
	if err := walkPages(pages, pages.Key("MediaBox"), &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	return out, nil
}

func walkPages(node pdf.Value, inheritedBox pdf.Value, out *[]pageInfo) error {
	switch node.Key("Type").Name() {
	case "Pages":
		box := node.Key("MediaBox")
		if box.IsNull() {
			box = inheritedBox
		}
		kids := node.Key("Kids")
		for i := 0; i < kids.Len(); i++ {
			if err := walkPages(kids.Index(i), box, out); err != nil {
				return err
			}
		}
		return nil

	case "Page":
		box := node.Key("MediaBox")
		if box.IsNull() {
			box = inheritedBox
		}
		if box.IsNull() || box.Len() != 4 {
			return fmt.Errorf("page %d has no media box", len(*out))
		}

		ptr := node.GetPtr()
		*out = append(*out, pageInfo{
			value:  node,
			id:     uint32(ptr.GetID()),
			gen:    uint16(ptr.GetGen()),
			width:  box.Index(2).Float64() - box.Index(0).Float64(),
			height: box.Index(3).Float64() - box.Index(1).Float64(),
		})
		return nil
	}

	return fmt.Errorf("unexpected page tree node type %q", node.Key("Type").Name())
}

func pageSizes(pages []pageInfo) []layout.PageSize {
	sizes := make([]layout.PageSize, len(pages))
	for i, p := range pages {
		sizes[i] = layout.PageSize{Width: p.width, Height: p.height}
	}
	return sizes
}

// updatedPageDict rebuilds a page dictionary with an extra content stream and
// the export's image and font resources merged in. Every other key is copied
// verbatim.
func updatedPageDict(page pageInfo, contentID uint32, res *render.Resources) []byte {
	var buf bytes.Buffer
	buf.WriteString("<<\n")

	for _, key := range page.value.Keys() {
		if key == "Contents" || key == "Resources" {
			continue
		}
		fmt.Fprintf(&buf, "  /%s ", key)
		serializeValue(&buf, page.id, page.value.Key(key))
		buf.WriteString("\n")
	}

	buf.WriteString("  /Contents [")
	contents := page.value.Key("Contents")
	switch {
	case contents.IsNull():
	case contents.Kind() == pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			if r, ok := ref(contents.Index(i)); ok {
				buf.WriteString(" " + r)
			}
		}
	default:
		if r, ok := ref(contents); ok {
			buf.WriteString(" " + r)
		}
	}
	fmt.Fprintf(&buf, " %d 0 R ]\n", contentID)

	buf.WriteString("  /Resources ")
	writeMergedResources(&buf, page.id, page.value.Key("Resources"), res)
	buf.WriteString("\n>>")

	return buf.Bytes()
}

// writeMergedResources copies the page's resource dictionary and folds the
// new XObject and Font names into their categories.
func writeMergedResources(buf *bytes.Buffer, parentID uint32, existing pdf.Value, res *render.Resources) {
	buf.WriteString("<<")

	written := map[string]bool{}
	if !existing.IsNull() && existing.Kind() == pdf.Dict {
		// Resolve through an indirect reference so the categories can be
		// merged rather than referenced wholesale.
		resID := parentID
		if ptr := existing.GetPtr(); ptr.GetID() != 0 {
			resID = uint32(ptr.GetID())
		}

		for _, key := range existing.Keys() {
			switch key {
			case "XObject":
				writeResourceCategory(buf, resID, existing.Key(key), "XObject", res.XObjects)
			case "Font":
				writeResourceCategory(buf, resID, existing.Key(key), "Font", res.Fonts)
			default:
				fmt.Fprintf(buf, " /%s ", key)
				serializeValue(buf, resID, existing.Key(key))
			}
			written[key] = true
		}
	}

	if !written["XObject"] && len(res.XObjects) > 0 {
		writeResourceCategory(buf, 0, pdf.Value{}, "XObject", res.XObjects)
	}
	if !written["Font"] && len(res.Fonts) > 0 {
		writeResourceCategory(buf, 0, pdf.Value{}, "Font", res.Fonts)
	}

	buf.WriteString(" >>")
}

func writeResourceCategory(buf *bytes.Buffer, parentID uint32, existing pdf.Value, name string, added map[string]uint32) {
	fmt.Fprintf(buf, " /%s <<", name)

	if !existing.IsNull() && existing.Kind() == pdf.Dict {
		catID := parentID
		if ptr := existing.GetPtr(); ptr.GetID() != 0 {
			catID = uint32(ptr.GetID())
		}
		for _, key := range existing.Keys() {
			fmt.Fprintf(buf, " /%s ", key)
			serializeValue(buf, catID, existing.Key(key))
		}
	}

	for resName, objID := range added {
		fmt.Fprintf(buf, " /%s %d 0 R", resName, objID)
	}

	buf.WriteString(" >>")
}
