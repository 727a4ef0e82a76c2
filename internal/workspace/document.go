// Package workspace manages the live set of documents open in an editing session.
package workspace

import (
	"image"
)

// Document is a single open image document. The pixel data is treated as
// opaque by the snapshot subsystem; only the engine mutates it.
type Document struct {
	Title      string      // Unique within the workspace at any instant
	Img        image.Image // Raster data
	Dirty      bool        // Unsaved changes; always discarded on close
	SourcePath string      // File the document was imported from, if any

	// Active region selection (ROI), nil when none
	Selection *image.Rectangle

	// Display range applied by the engine (0,0 = full range)
	DisplayMin float64
	DisplayMax float64
}

// NewDocument creates a document with the given title and pixel data.
func NewDocument(title string, img image.Image) *Document {
	return &Document{
		Title: title,
		Img:   img,
	}
}

// Width returns the raster width in pixels.
func (d *Document) Width() int {
	if d.Img == nil {
		return 0
	}
	return d.Img.Bounds().Dx()
}

// Height returns the raster height in pixels.
func (d *Document) Height() int {
	if d.Img == nil {
		return 0
	}
	return d.Img.Bounds().Dy()
}

// Channels returns the number of color channels the engine can address.
func (d *Document) Channels() int {
	switch d.Img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return 4
	case nil:
		return 0
	default:
		return 3
	}
}

// SetSelection sets the active region selection.
func (d *Document) SetSelection(r image.Rectangle) {
	d.Selection = &r
}

// ClearSelection removes the active region selection.
func (d *Document) ClearSelection() {
	d.Selection = nil
}
