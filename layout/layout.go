// Package layout converts between visual space and PDF page space.
//
// The editor and signing views render every page of a document at one fixed
// width, stacked top to bottom with a fixed margin between pages, and address
// positions in that continuous column with a top-left origin. PDF addresses
// positions per page with a bottom-left origin in user-space points. This
// package holds the pure math between the two, computed once per document so
// the editor and the export engine cannot disagree.
package layout

// PageSize is a page's native media box size in PDF user-space points.
type PageSize struct {
	Width, Height float64
}

// PageMetric maps one page's vertical range in the visual column to its
// native size and scale factor.
type PageMetric struct {
	// Index is the zero-based page number.
	Index int

	// PageWidth, PageHeight are the native size in PDF points.
	PageWidth, PageHeight float64

	// Scale converts visual units to PDF points (pageWidth / renderWidth).
	Scale float64

	// VisualStart, VisualEnd bound the page's slice of the visual column.
	VisualStart, VisualEnd float64
}

// VisualHeight returns the page's on-screen height in visual units.
func (m PageMetric) VisualHeight() float64 {
	return m.VisualEnd - m.VisualStart
}

// BuildPageMetrics lays the given pages out as one visual column rendered at
// renderWidth, separated by pageMargin. Pages appear in reading order,
// non-overlapping; metric i ends exactly pageMargin before metric i+1 starts.
func BuildPageMetrics(pages []PageSize, renderWidth, pageMargin float64) []PageMetric {
	metrics := make([]PageMetric, 0, len(pages))

	y := 0.0
	for i, p := range pages {
		scale := p.Width / renderWidth
		visualHeight := p.Height / scale

		metrics = append(metrics, PageMetric{
			Index:       i,
			PageWidth:   p.Width,
			PageHeight:  p.Height,
			Scale:       scale,
			VisualStart: y,
			VisualEnd:   y + visualHeight,
		})

		y += visualHeight + pageMargin
	}

	return metrics
}

// LocatePage finds the page whose visual range contains visualY. Both
// interval ends are inclusive; a point exactly on a page's end boundary
// belongs to that page, not the next. Points inside the inter-page margin
// belong to no page and report ok == false. The margin is a UI-only gap, so
// callers treat a miss as recoverable.
func LocatePage(metrics []PageMetric, visualY float64) (PageMetric, bool) {
	for _, m := range metrics {
		if visualY >= m.VisualStart && visualY <= m.VisualEnd {
			return m, true
		}
	}
	return PageMetric{}, false
}

// ToPDFSpace converts a top-left visual point within the metric's page to the
// PDF coordinates of the element's bottom-left corner. elementVisualHeight is
// the element's height in visual units; subtracting its scaled value anchors
// the element so its top edge sits at the given visual point despite PDF's
// inverted Y axis.
func ToPDFSpace(m PageMetric, visualX, visualY, elementVisualHeight float64) (x, y float64) {
	localY := visualY - m.VisualStart
	x = visualX * m.Scale
	y = m.PageHeight - localY*m.Scale - elementVisualHeight*m.Scale
	return x, y
}

// ToVisualSpace is the inverse of ToPDFSpace: given the PDF coordinates of an
// element's bottom-left corner, it recovers the top-left visual point.
func ToVisualSpace(m PageMetric, pdfX, pdfY, elementVisualHeight float64) (x, y float64) {
	x = pdfX / m.Scale
	localY := (m.PageHeight - pdfY) / m.Scale
	y = m.VisualStart + localY - elementVisualHeight
	return x, y
}
