// Package ingest runs file import and the trailing snapshot for drop and
// reload events, on a background execution path.
package ingest

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"cell-toolbox/internal/engine"
	"cell-toolbox/internal/workspace"
)

// autoScaleClip is the histogram tail fraction clipped when choosing the
// initial display range on import.
const autoScaleClip = 0.005

// Options is the fixed set of import options applied to every file, matching
// the engine's native importer invocation. AutoScale picks an initial display
// range from the pixel histogram. ColorizeChannels, Hyperstack and AxisOrder
// are accepted for parity with that invocation and ignored by the decoder,
// which flattens every file to a single plane.
type Options struct {
	AutoScale        bool
	ColorizeChannels bool
	Hyperstack       bool
	AxisOrder        string
}

// DefaultOptions returns the option set used for every drop and reload.
func DefaultOptions() Options {
	return Options{
		AutoScale:        true,
		ColorizeChannels: true,
		Hyperstack:       true,
		AxisOrder:        "XYCZT",
	}
}

// Importer opens an absolute file path as a new document. Implementations
// report per-path success or failure; callers tolerate individual failures.
type Importer interface {
	Import(path string) (*workspace.Document, error)
}

// FileImporter decodes image files from disk with a fixed option set.
type FileImporter struct {
	opts Options
}

// NewFileImporter creates an importer with the given options.
func NewFileImporter(opts Options) *FileImporter {
	return &FileImporter{opts: opts}
}

// Import decodes the file at path into a new document titled after the
// file's base name.
func (fi *FileImporter) Import(path string) (*workspace.Document, error) {
	if !workspace.IsSupportedFormat(path) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Base(path))
	}
	img, err := workspace.DecodeImage(path)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	doc := workspace.NewDocument(title, img)
	doc.SourcePath = path
	if fi.opts.AutoScale {
		lo, hi, err := engine.AutoRange(doc, autoScaleClip)
		if err != nil {
			log.Printf("import: auto-scale skipped for %s: %v", title, err)
		} else {
			doc.DisplayMin, doc.DisplayMax = lo, hi
		}
	}
	return doc, nil
}
