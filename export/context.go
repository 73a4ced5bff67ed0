package export

import (
	"bytes"
	"fmt"

	"github.com/digitorus/pdf"
	"github.com/mattetti/filebuffer"

	"github.com/doctransfer/signcore/fonts"
)

type xrefEntry struct {
	ID     uint32
	Offset int64
}

// exportContext carries the state of one incremental update: the source
// document, the output buffer the update is appended to, and the
// cross-reference entries for every object written so far.
type exportContext struct {
	input  *pdf.Reader
	output *filebuffer.Buffer

	textFont      *fonts.Font
	compressLevel int

	lastXrefID         uint32
	newXrefEntries     []xrefEntry
	updatedXrefEntries []xrefEntry
	newXrefStart       int64
}

// AddObject appends a new indirect object to the output and records its
// cross-reference entry. New object IDs continue from the source document's
// last ID.
func (c *exportContext) AddObject(object []byte) (uint32, error) {
	id := c.lastXrefID + uint32(len(c.newXrefEntries)) + 1
	offset := int64(c.output.Buff.Len())

	if _, err := fmt.Fprintf(c.output, "%d 0 obj\n", id); err != nil {
		return 0, err
	}
	if _, err := c.output.Write(bytes.TrimSpace(object)); err != nil {
		return 0, err
	}
	if _, err := c.output.Write([]byte("\nendobj\n")); err != nil {
		return 0, err
	}

	c.newXrefEntries = append(c.newXrefEntries, xrefEntry{ID: id, Offset: offset})
	return id, nil
}

// updateObject appends a replacement body for an existing object. The new
// offset shadows the original through the incremental xref section.
func (c *exportContext) updateObject(id uint32, object []byte) error {
	offset := int64(c.output.Buff.Len())

	if _, err := fmt.Fprintf(c.output, "%d 0 obj\n", id); err != nil {
		return err
	}
	if _, err := c.output.Write(bytes.TrimSpace(object)); err != nil {
		return err
	}
	if _, err := c.output.Write([]byte("\nendobj\n")); err != nil {
		return err
	}

	c.updatedXrefEntries = append(c.updatedXrefEntries, xrefEntry{ID: id, Offset: offset})
	return nil
}

// Compression reports the zlib level for streams added during this export.
func (c *exportContext) Compression() int {
	return c.compressLevel
}

// getLastObjectID derives the highest object ID of the source document from
// its xref item count, which includes the free object 0.
func (c *exportContext) getLastObjectID() uint32 {
	return uint32(c.input.XrefInformation.ItemCount) - 1
}
