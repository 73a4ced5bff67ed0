package export

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
)

const xrefStreamColumns = 6 // 1 byte type + 4 byte offset + 1 byte generation

func (c *exportContext) writeXref() error {
	c.newXrefStart = int64(c.output.Buff.Len())

	switch c.input.XrefInformation.Type {
	case "table":
		return c.writeIncrXrefTable()
	case "stream":
		return c.writeXrefStream()
	default:
		return fmt.Errorf("unknown xref type: %s", c.input.XrefInformation.Type)
	}
}

// writeIncrXrefTable writes a classic incremental xref section covering the
// updated and new objects, as contiguous subsection runs.
func (c *exportContext) writeIncrXrefTable() error {
	entries := make([]xrefEntry, 0, len(c.updatedXrefEntries)+len(c.newXrefEntries))
	entries = append(entries, c.updatedXrefEntries...)
	entries = append(entries, c.newXrefEntries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	if _, err := c.output.Write([]byte("xref\n")); err != nil {
		return err
	}

	for start := 0; start < len(entries); {
		end := start + 1
		for end < len(entries) && entries[end].ID == entries[end-1].ID+1 {
			end++
		}

		if _, err := fmt.Fprintf(c.output, "%d %d\n", entries[start].ID, end-start); err != nil {
			return err
		}
		for _, e := range entries[start:end] {
			if _, err := fmt.Fprintf(c.output, "%010d %05d n \n", e.Offset, 0); err != nil {
				return err
			}
		}

		start = end
	}

	return c.writeTableTrailer()
}

func (c *exportContext) writeTableTrailer() error {
	trailer := c.input.Trailer()

	var buf bytes.Buffer
	buf.WriteString("trailer\n<<\n")
	fmt.Fprintf(&buf, "  /Size %d\n", c.input.XrefInformation.ItemCount+int64(len(c.newXrefEntries)))

	if root, ok := ref(trailer.Key("Root")); ok {
		fmt.Fprintf(&buf, "  /Root %s\n", root)
	}
	if info, ok := ref(trailer.Key("Info")); ok {
		fmt.Fprintf(&buf, "  /Info %s\n", info)
	}
	fmt.Fprintf(&buf, "  /Prev %d\n", c.input.XrefInformation.StartPos)

	if id := trailer.Key("ID"); !id.IsNull() {
		id0 := hex.EncodeToString([]byte(id.Index(0).RawString()))
		id1 := hex.EncodeToString([]byte(id.Index(1).RawString()))
		fmt.Fprintf(&buf, "  /ID [<%s><%s>]\n", id0, id1)
	}

	buf.WriteString(">>\n")
	_, err := c.output.Write(buf.Bytes())
	return err
}

// writeXrefStream writes the cross-reference information as an xref stream
// object for documents whose existing xref is a stream.
func (c *exportContext) writeXrefStream() error {
	var entries bytes.Buffer
	for _, entry := range c.updatedXrefEntries {
		writeXrefStreamLine(&entries, 1, int(entry.Offset), 0)
	}
	for _, entry := range c.newXrefEntries {
		writeXrefStreamLine(&entries, 1, int(entry.Offset), 0)
	}

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(entries.Bytes()); err != nil {
		return fmt.Errorf("failed to encode xref stream: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to encode xref stream: %w", err)
	}
	streamBytes := compressed.Bytes()

	var obj bytes.Buffer
	obj.WriteString("<< /Type /XRef\n")
	fmt.Fprintf(&obj, "  /Length %d\n", len(streamBytes))
	obj.WriteString("  /Filter /FlateDecode\n")
	obj.WriteString("  /W [ 1 4 1 ]\n")
	fmt.Fprintf(&obj, "  /Prev %d\n", c.input.XrefInformation.StartPos)

	totalEntries := uint32(c.input.XrefInformation.ItemCount) + uint32(len(c.newXrefEntries))
	fmt.Fprintf(&obj, "  /Size %d\n", totalEntries+1)

	var indexArray []uint32
	for _, entry := range c.updatedXrefEntries {
		indexArray = append(indexArray, entry.ID, 1)
	}
	if len(c.newXrefEntries) > 0 {
		indexArray = append(indexArray, c.lastXrefID+1, uint32(len(c.newXrefEntries)))
	}
	if len(indexArray) > 0 {
		obj.WriteString("  /Index [")
		for _, idx := range indexArray {
			fmt.Fprintf(&obj, " %d", idx)
		}
		obj.WriteString(" ]\n")
	}

	trailer := c.input.Trailer()
	if root, ok := ref(trailer.Key("Root")); ok {
		fmt.Fprintf(&obj, "  /Root %s\n", root)
	}
	if id := trailer.Key("ID"); !id.IsNull() {
		id0 := hex.EncodeToString([]byte(id.Index(0).RawString()))
		id1 := hex.EncodeToString([]byte(id.Index(1).RawString()))
		fmt.Fprintf(&obj, "  /ID [<%s><%s>]\n", id0, id1)
	}

	obj.WriteString(">>\nstream\n")
	obj.Write(streamBytes)
	obj.WriteString("\nendstream")

	if _, err := c.AddObject(obj.Bytes()); err != nil {
		return fmt.Errorf("failed to add xref stream object: %w", err)
	}
	return nil
}

// writeXrefStreamLine writes a single [type offset generation] entry.
func writeXrefStreamLine(b *bytes.Buffer, xreftype byte, offset int, gen byte) {
	b.WriteByte(xreftype)

	offsetBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(offsetBytes, uint32(offset))
	b.Write(offsetBytes)

	b.WriteByte(gen)
}

// writeStartXref finishes the file with the offset of the new xref section.
func (c *exportContext) writeStartXref() error {
	if _, err := fmt.Fprintf(c.output, "startxref\n%d\n%%%%EOF\n", c.newXrefStart); err != nil {
		return err
	}
	return nil
}
