// Package toolbox implements the panel's module actions. Every destructive
// module takes a workspace snapshot before mutating anything, so the undo
// module can step back one operation at a time.
package toolbox

import (
	"errors"
	"log"
	"strings"

	"cell-toolbox/internal/checkpoint"
	"cell-toolbox/internal/engine"
	"cell-toolbox/internal/ingest"
	"cell-toolbox/internal/workspace"
	"cell-toolbox/ui/prefs"
)

// ErrNoDocuments reports a module invoked with nothing open.
var ErrNoDocuments = errors.New("no open documents")

// ErrNoSelection reports a crop with no region selected on the active image.
var ErrNoSelection = errors.New("no selection on the active image")

// Toolbox wires the module actions to the workspace, the snapshot
// controller, and the engine. Confirmation dialogs are the panel's concern;
// these methods run unconditionally once called.
type Toolbox struct {
	ws     *workspace.Workspace
	ctrl   *checkpoint.Controller
	eng    engine.Engine
	prefs  *prefs.Prefs
	coord  *ingest.Coordinator
	cancel CancelToken
}

// New creates the toolbox for one session.
func New(ws *workspace.Workspace, ctrl *checkpoint.Controller, eng engine.Engine, p *prefs.Prefs, coord *ingest.Coordinator) *Toolbox {
	return &Toolbox{
		ws:    ws,
		ctrl:  ctrl,
		eng:   eng,
		prefs: p,
		coord: coord,
	}
}

// Cancel signals the running batch operation to stop after its current
// per-document step.
func (t *Toolbox) Cancel() {
	t.cancel.Cancel()
}

func (t *Toolbox) checkCancel() bool {
	if t.cancel.Consume() {
		log.Println("operation terminated by user")
		return true
	}
	return false
}

// CropROI applies the active image's selection as a crop, to all open
// images or just the active one per settings. Snapshot-before-mutate.
func (t *Toolbox) CropROI() error {
	if err := t.ctrl.SnapshotNow(t.ws); err != nil {
		return err
	}
	active := t.ws.Active()
	if active == nil {
		return ErrNoDocuments
	}
	if active.Selection == nil {
		return ErrNoSelection
	}

	sel := *active.Selection
	params := engine.CropParams{
		X:      sel.Min.X,
		Y:      sel.Min.Y,
		Width:  sel.Dx(),
		Height: sel.Dy(),
	}.String()

	targets := []*workspace.Document{active}
	if t.prefs.ROI().ApplyAll {
		targets = t.ws.Documents()
	}
	return t.eng.Run(engine.OpCrop, params, targets)
}

// MergeChannels keeps only the configured channels in every open image.
func (t *Toolbox) MergeChannels() error {
	if err := t.ctrl.SnapshotNow(t.ws); err != nil {
		return err
	}
	docs := t.ws.Documents()
	if len(docs) == 0 {
		return ErrNoDocuments
	}

	channels := t.prefs.Merge().ChannelList()
	params := engine.MergeParams{Channels: channels}.String()
	for _, doc := range docs {
		if t.checkCancel() {
			return nil
		}
		if err := t.eng.Run(engine.OpMergeChannels, params, []*workspace.Document{doc}); err != nil {
			return err
		}
	}
	return nil
}

// RatioRun carries the per-invocation ratio parameters, seeded from
// settings and optionally adjusted in the confirmation dialog.
type RatioRun struct {
	Batch       bool
	Numerator   int
	Denominator int
	Min         float64
	Max         float64
}

// RatioRunDefaults seeds a RatioRun from the stored settings.
func (t *Toolbox) RatioRunDefaults() RatioRun {
	s := t.prefs.Ratio()
	return RatioRun{
		Numerator:   s.Numerator,
		Denominator: s.Denominator,
		Min:         s.Min,
		Max:         s.Max,
	}
}

// RatioAnalysis derives a ratio image from each eligible source. In batch
// mode per-image calibration bars are suppressed and a single standalone
// legend is added instead. Returns the source documents that were
// processed, so the panel can offer to close them.
func (t *Toolbox) RatioAnalysis(run RatioRun) ([]*workspace.Document, error) {
	if err := t.ctrl.SnapshotNow(t.ws); err != nil {
		return nil, err
	}
	docs := t.ws.Documents()
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	s := t.prefs.Ratio()
	params := engine.RatioParams{
		Numerator:   run.Numerator,
		Denominator: run.Denominator,
		Min:         run.Min,
		Max:         run.Max,
	}.String()
	needed := run.Numerator
	if run.Denominator > needed {
		needed = run.Denominator
	}

	var originals []*workspace.Document
	if run.Batch {
		for _, doc := range docs {
			if t.checkCancel() {
				break
			}
			if strings.HasPrefix(doc.Title, "Ratio_") || doc.Channels() < needed {
				continue
			}
			derived, err := t.eng.Derive(engine.OpRatioDivide, params, doc)
			if err != nil {
				log.Printf("ratio: skipping %q: %v", doc.Title, err)
				continue
			}
			t.ws.Add(derived)
			originals = append(originals, doc)
		}
		if s.AddBar && len(originals) > 0 {
			legend, err := t.eng.Derive(engine.OpCalibrationBar, s.Bar.String(), nil)
			if err != nil {
				log.Printf("ratio: legend failed: %v", err)
			} else {
				t.ws.Add(legend)
			}
		}
		return originals, nil
	}

	active := t.ws.Active()
	if active == nil || active.Channels() < needed {
		return nil, errors.New("active image invalid for ratio analysis")
	}
	derived, err := t.eng.Derive(engine.OpRatioDivide, params, active)
	if err != nil {
		return nil, err
	}
	if s.AddBar {
		if err := t.eng.Run(engine.OpCalibrationBar, s.Bar.String(), []*workspace.Document{derived}); err != nil {
			log.Printf("ratio: calibration bar failed: %v", err)
		}
	}
	t.ws.Add(derived)
	return []*workspace.Document{active}, nil
}

// ScaleBars burns or overlays a scale bar onto every open image.
func (t *Toolbox) ScaleBars() error {
	if err := t.ctrl.SnapshotNow(t.ws); err != nil {
		return err
	}
	docs := t.ws.Documents()
	if len(docs) == 0 {
		return ErrNoDocuments
	}

	s := t.prefs.ScaleBar()
	if !s.EnableBar {
		return nil
	}
	params := s.Bar.String()
	for _, doc := range docs {
		if t.checkCancel() {
			return nil
		}
		if err := t.eng.Run(engine.OpScaleBar, params, []*workspace.Document{doc}); err != nil {
			return err
		}
	}
	return nil
}

// CopySequence walks the open images in natural title order, invoking step
// for each. The panel's step copies the image to the clipboard and prompts
// the user to paste; returning false stops the sequence. Reports whether
// every image was visited, so the caller can offer a follow-up only after a
// full pass.
func (t *Toolbox) CopySequence(step func(index, total int, doc *workspace.Document) bool) bool {
	titles := t.ws.Titles()
	sortNatural(titles)
	for i, title := range titles {
		if t.checkCancel() {
			return false
		}
		doc := t.ws.ByTitle(title)
		if doc == nil {
			continue
		}
		if !step(i+1, len(titles), doc) {
			return false
		}
	}
	return true
}

// AutoBrightness measures the active image and applies the resulting
// display range to every open image.
func (t *Toolbox) AutoBrightness() (min, max float64, err error) {
	if err := t.ctrl.SnapshotNow(t.ws); err != nil {
		return 0, 0, err
	}
	active := t.ws.Active()
	if active == nil {
		return 0, 0, ErrNoDocuments
	}
	min, max, err = engine.AutoRange(active, 0.005)
	if err != nil {
		return 0, 0, err
	}
	t.eng.SetDisplayRange(t.ws.Documents(), min, max)
	return min, max, nil
}

// ApplyDisplayRange applies an explicit display range to every open image.
func (t *Toolbox) ApplyDisplayRange(min, max float64) error {
	if err := t.ctrl.SnapshotNow(t.ws); err != nil {
		return err
	}
	if t.ws.Len() == 0 {
		return ErrNoDocuments
	}
	t.eng.SetDisplayRange(t.ws.Documents(), min, max)
	return nil
}

// Plan reports which path an undo will take, for the confirmation dialog.
func (t *Toolbox) Plan() (checkpoint.UndoPlan, int) {
	return t.ctrl.Plan(len(t.coord.SourcePaths()))
}

// Undo restores the most recent checkpoint, falling back to re-importing
// the last dropped files when no checkpoint is usable.
func (t *Toolbox) Undo() (checkpoint.RestoreOutcome, error) {
	return t.ctrl.RestoreLast(t.ws, t.coord.SourcePaths())
}

// CloseAll snapshots and then closes every open image, discarding changes.
func (t *Toolbox) CloseAll() error {
	if err := t.ctrl.SnapshotNow(t.ws); err != nil {
		return err
	}
	if t.ws.Len() == 0 {
		return ErrNoDocuments
	}
	t.ws.CloseAll()
	return nil
}

// Shutdown deletes all checkpoints; called when the panel closes.
func (t *Toolbox) Shutdown() {
	t.coord.Wait()
	t.ctrl.Reset()
}
