// Package engine defines the boundary to the external image-processing
// engine: named operations driven by opaque parameter strings, plus a small
// measurement and display API. The toolbox never interprets pixel data
// itself; it hands documents to an Engine.
package engine

import (
	"cell-toolbox/internal/workspace"
)

// Op names an engine operation. Parameter strings are engine wire format
// and are passed through without interpretation by callers.
type Op string

const (
	OpCrop           Op = "Crop"
	OpMergeChannels  Op = "Merge Channels..."
	OpRatioDivide    Op = "Divide"
	OpScaleBar       Op = "Scale Bar..."
	OpCalibrationBar Op = "Calibration Bar..."
)

// Stats holds the measurements the panel surfaces for a document.
type Stats struct {
	Mean float64
	Min  float64
	Max  float64
}

// Engine is the external image-processing collaborator.
type Engine interface {
	// Run applies a named operation in place to one or more documents.
	Run(op Op, params string, docs []*workspace.Document) error

	// Derive applies a named operation that produces a new document from
	// an existing one, leaving the source untouched.
	Derive(op Op, params string, doc *workspace.Document) (*workspace.Document, error)

	// Measure returns pixel statistics for a document.
	Measure(doc *workspace.Document) (Stats, error)

	// SetDisplayRange applies a display min/max to documents without
	// modifying pixel data.
	SetDisplayRange(docs []*workspace.Document, min, max float64)
}
