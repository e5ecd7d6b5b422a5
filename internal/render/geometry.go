// Package render holds the document-rendering core: the UI-space to
// document-space coordinate transform, the signature artifact encoder and the
// PDF compositor. The package is pure with respect to application state; it
// sees byte slices and placements, never the database.
package render

// PageBox is a page size in PDF points.
type PageBox struct {
	Width  float64
	Height float64
}

// DisplayBox is the pixel size the client rendered a page at.
type DisplayBox struct {
	Width  float64
	Height float64
}

// FallbackBox resolves the display box for a placement. Legacy records
// predate display-dimension capture and carry zero boxes; those fall back to
// the configured canonical box and are marked degraded, because the transform
// can only be approximate for them.
type FallbackBox struct {
	Width       float64
	AspectRatio float64
}

func (f FallbackBox) Resolve(w, h float64) (DisplayBox, bool) {
	if w > 0 && h > 0 {
		return DisplayBox{Width: w, Height: h}, false
	}
	return DisplayBox{Width: f.Width, Height: f.Width * f.AspectRatio}, true
}

// MapToDocumentSpace converts a UI point (origin top-left, pixels) into
// document space (origin bottom-left, points). The Y axis flips: a click near
// the top of the rendered page lands near pageHeight in document space.
func MapToDocumentSpace(x, y float64, display DisplayBox, page PageBox) (docX, docY float64) {
	scaleX := page.Width / display.Width
	scaleY := page.Height / display.Height
	docX = x * scaleX
	docY = page.Height - y*scaleY
	return docX, docY
}

// MapToDisplaySpace is the inverse of MapToDocumentSpace.
func MapToDisplaySpace(docX, docY float64, display DisplayBox, page PageBox) (x, y float64) {
	scaleX := page.Width / display.Width
	scaleY := page.Height / display.Height
	x = docX / scaleX
	y = (page.Height - docY) / scaleY
	return x, y
}
