package toolbox

import (
	"fmt"
	"image"
	"path/filepath"
	"testing"
	"time"

	"cell-toolbox/internal/checkpoint"
	"cell-toolbox/internal/engine"
	"cell-toolbox/internal/ingest"
	"cell-toolbox/internal/workspace"
	"cell-toolbox/ui/prefs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine records every invocation so tests can assert call order and
// targets without OpenCV.
type fakeEngine struct {
	runs      []engineCall
	derived   []engineCall
	ranges    []float64
	depthAt   []int
	depthFn   func() int
	deriveErr error
}

type engineCall struct {
	op      engine.Op
	params  string
	targets []string
}

func (f *fakeEngine) Run(op engine.Op, params string, docs []*workspace.Document) error {
	titles := make([]string, len(docs))
	for i, d := range docs {
		titles[i] = d.Title
	}
	f.runs = append(f.runs, engineCall{op: op, params: params, targets: titles})
	if f.depthFn != nil {
		f.depthAt = append(f.depthAt, f.depthFn())
	}
	return nil
}

func (f *fakeEngine) Derive(op engine.Op, params string, doc *workspace.Document) (*workspace.Document, error) {
	if f.deriveErr != nil {
		return nil, f.deriveErr
	}
	title := "Ratio_Legend"
	if doc != nil {
		title = "Ratio_" + doc.Title
	}
	f.derived = append(f.derived, engineCall{op: op, params: params, targets: []string{title}})
	return workspace.NewDocument(title, image.NewGray(image.Rect(0, 0, 4, 4))), nil
}

func (f *fakeEngine) Measure(doc *workspace.Document) (engine.Stats, error) {
	return engine.Stats{}, nil
}

func (f *fakeEngine) SetDisplayRange(docs []*workspace.Document, min, max float64) {
	f.ranges = append(f.ranges, min, max)
}

type nullImporter struct{}

func (nullImporter) Import(path string) (*workspace.Document, error) {
	return nil, fmt.Errorf("no source for %s", path)
}

func newTestToolbox(t *testing.T) (*Toolbox, *workspace.Workspace, *fakeEngine, *checkpoint.Controller, *prefs.Prefs) {
	t.Helper()
	p := prefs.New()
	ws := workspace.New()
	store := checkpoint.NewStore(filepath.Join(t.TempDir(), "checkpoints"))
	ctrl := checkpoint.NewController(store, nullImporter{}, func() int { return p.Undo().MaxSteps })
	coord := ingest.NewCoordinator(ws, ctrl, nullImporter{}, time.Millisecond)
	eng := &fakeEngine{depthFn: ctrl.Depth}
	return New(ws, ctrl, eng, p, coord), ws, eng, ctrl, p
}

func addDoc(ws *workspace.Workspace, title string) *workspace.Document {
	doc := workspace.NewDocument(title, image.NewRGBA(image.Rect(0, 0, 8, 8)))
	ws.Add(doc)
	return doc
}

func TestCropROIAppliesToAll(t *testing.T) {
	tb, ws, eng, _, _ := newTestToolbox(t)
	addDoc(ws, "a")
	active := addDoc(ws, "b")
	active.SetSelection(image.Rect(1, 2, 5, 6))

	require.NoError(t, tb.CropROI())

	require.Len(t, eng.runs, 1)
	call := eng.runs[0]
	assert.Equal(t, engine.OpCrop, call.op)
	assert.Equal(t, "x=1 y=2 width=4 height=4", call.params)
	assert.ElementsMatch(t, []string{"a", "b"}, call.targets)

	// A snapshot was taken before the engine touched anything.
	assert.Equal(t, []int{1}, eng.depthAt)
}

func TestCropROIActiveOnly(t *testing.T) {
	tb, ws, eng, _, p := newTestToolbox(t)
	p.SetROI(prefs.ROISettings{Confirm: false, ApplyAll: false})
	addDoc(ws, "a")
	active := addDoc(ws, "b")
	active.SetSelection(image.Rect(0, 0, 2, 2))

	require.NoError(t, tb.CropROI())
	require.Len(t, eng.runs, 1)
	assert.Equal(t, []string{"b"}, eng.runs[0].targets)
}

func TestCropROIErrors(t *testing.T) {
	tb, ws, _, _, _ := newTestToolbox(t)
	assert.ErrorIs(t, tb.CropROI(), ErrNoDocuments)

	addDoc(ws, "a")
	assert.ErrorIs(t, tb.CropROI(), ErrNoSelection)
}

func TestMergeChannelsPerDocument(t *testing.T) {
	tb, ws, eng, _, p := newTestToolbox(t)
	p.SetMerge(prefs.MergeSettings{Channels: "1,2", Confirm: false})
	addDoc(ws, "a")
	addDoc(ws, "b")

	require.NoError(t, tb.MergeChannels())

	require.Len(t, eng.runs, 2)
	for _, call := range eng.runs {
		assert.Equal(t, engine.OpMergeChannels, call.op)
		assert.Equal(t, "channels=1,2", call.params)
	}
}

func TestCancelStopsBatch(t *testing.T) {
	tb, ws, eng, _, _ := newTestToolbox(t)
	addDoc(ws, "a")
	addDoc(ws, "b")

	tb.Cancel()
	require.NoError(t, tb.MergeChannels())
	assert.Empty(t, eng.runs)

	// A consumed cancel does not affect the next batch.
	require.NoError(t, tb.MergeChannels())
	assert.Len(t, eng.runs, 2)
}

func TestRatioAnalysisBatch(t *testing.T) {
	tb, ws, eng, _, _ := newTestToolbox(t)
	addDoc(ws, "cells1")
	addDoc(ws, "cells2")
	ws.Add(workspace.NewDocument("Ratio_old", image.NewRGBA(image.Rect(0, 0, 4, 4))))
	ws.Add(workspace.NewDocument("flat", image.NewGray(image.Rect(0, 0, 4, 4))))

	run := tb.RatioRunDefaults()
	run.Batch = true
	originals, err := tb.RatioAnalysis(run)
	require.NoError(t, err)

	// Prior ratio output and single-channel images are skipped.
	origTitles := make([]string, len(originals))
	for i, d := range originals {
		origTitles[i] = d.Title
	}
	assert.ElementsMatch(t, []string{"cells1", "cells2"}, origTitles)

	// Two derived ratio images plus one standalone legend.
	assert.Len(t, eng.derived, 3)
	assert.Contains(t, ws.Titles(), "Ratio_cells1")
	assert.Contains(t, ws.Titles(), "Ratio_cells2")
	assert.Contains(t, ws.Titles(), "Ratio_Legend")
}

func TestRatioAnalysisSingle(t *testing.T) {
	tb, ws, eng, _, _ := newTestToolbox(t)
	addDoc(ws, "cells")

	run := tb.RatioRunDefaults()
	originals, err := tb.RatioAnalysis(run)
	require.NoError(t, err)
	require.Len(t, originals, 1)
	assert.Equal(t, "cells", originals[0].Title)

	// Calibration bar runs on the derived image, not a standalone legend.
	require.Len(t, eng.runs, 1)
	assert.Equal(t, engine.OpCalibrationBar, eng.runs[0].op)
	assert.Equal(t, []string{"Ratio_cells"}, eng.runs[0].targets)
}

func TestScaleBarsRespectsEnableFlag(t *testing.T) {
	tb, ws, eng, _, p := newTestToolbox(t)
	addDoc(ws, "a")

	s := p.ScaleBar()
	s.EnableBar = false
	p.SetScaleBar(s)
	require.NoError(t, tb.ScaleBars())
	assert.Empty(t, eng.runs)

	s.EnableBar = true
	p.SetScaleBar(s)
	require.NoError(t, tb.ScaleBars())
	require.Len(t, eng.runs, 1)
	assert.Equal(t, engine.OpScaleBar, eng.runs[0].op)
}

func TestCopySequenceNaturalOrder(t *testing.T) {
	tb, ws, _, _, _ := newTestToolbox(t)
	addDoc(ws, "img10")
	addDoc(ws, "img2")
	addDoc(ws, "img1")

	var visited []string
	completed := tb.CopySequence(func(index, total int, doc *workspace.Document) bool {
		assert.Equal(t, 3, total)
		visited = append(visited, doc.Title)
		return true
	})
	assert.True(t, completed)
	assert.Equal(t, []string{"img1", "img2", "img10"}, visited)
}

func TestCopySequenceStopsOnFalse(t *testing.T) {
	tb, ws, _, _, _ := newTestToolbox(t)
	addDoc(ws, "a")
	addDoc(ws, "b")

	var visited int
	completed := tb.CopySequence(func(index, total int, doc *workspace.Document) bool {
		visited++
		return false
	})
	assert.False(t, completed)
	assert.Equal(t, 1, visited)
}

func TestAutoBrightnessAppliesRangeToAll(t *testing.T) {
	tb, ws, eng, _, _ := newTestToolbox(t)
	addDoc(ws, "a")
	addDoc(ws, "b")

	min, max, err := tb.AutoBrightness()
	require.NoError(t, err)
	assert.LessOrEqual(t, min, max)
	assert.Equal(t, []float64{min, max}, eng.ranges)
}

func TestUndoFallsThroughTiers(t *testing.T) {
	tb, ws, _, ctrl, _ := newTestToolbox(t)

	plan, _ := tb.Plan()
	assert.Equal(t, checkpoint.PlanNothing, plan)

	outcome, err := tb.Undo()
	require.NoError(t, err)
	assert.Equal(t, checkpoint.NothingToRestore, outcome)

	addDoc(ws, "a")
	require.NoError(t, ctrl.SnapshotNow(ws))
	plan, depth := tb.Plan()
	assert.Equal(t, checkpoint.PlanStepBack, plan)
	assert.Equal(t, 1, depth)

	outcome, err = tb.Undo()
	require.NoError(t, err)
	assert.Equal(t, checkpoint.Restored, outcome)
}

func TestCloseAllSnapshotsFirst(t *testing.T) {
	tb, ws, _, ctrl, _ := newTestToolbox(t)
	addDoc(ws, "a")

	require.NoError(t, tb.CloseAll())
	assert.Equal(t, 0, ws.Len())
	assert.Equal(t, 1, ctrl.Depth())

	// The workspace can be recovered even after Close All.
	outcome, err := tb.Undo()
	require.NoError(t, err)
	assert.Equal(t, checkpoint.Restored, outcome)
	assert.Equal(t, []string{"a"}, ws.Titles())
}

func TestShutdownDropsAllCheckpoints(t *testing.T) {
	tb, ws, _, ctrl, _ := newTestToolbox(t)
	addDoc(ws, "a")
	require.NoError(t, ctrl.SnapshotNow(ws))

	tb.Shutdown()
	assert.Equal(t, 0, ctrl.Depth())
}
