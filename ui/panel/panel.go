// Package panel provides the floating toolbox window.
package panel

import (
	"errors"
	"fmt"

	"cell-toolbox/internal/app"
	"cell-toolbox/internal/checkpoint"
	"cell-toolbox/internal/toolbox"
	"cell-toolbox/internal/version"
	"cell-toolbox/internal/workspace"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

// Panel is the floating control panel: one row per module, a settings gear
// beside each, and a drop area for importing images.
type Panel struct {
	fyne.Window
	state  *app.State
	status *widget.Label
}

// New creates the panel window.
func New(fyneApp fyne.App, state *app.State) *Panel {
	win := fyneApp.NewWindow(fmt.Sprintf("Cell Toolbox v%s", version.Version))

	p := &Panel{
		Window: win,
		state:  state,
	}

	p.setupUI()
	p.setupEventHandlers()

	// All checkpoints are session-scoped; closing the panel ends the session.
	win.SetCloseIntercept(func() {
		state.Toolbox.Shutdown()
		win.Close()
	})

	win.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		paths := make([]string, 0, len(uris))
		for _, u := range uris {
			paths = append(paths, u.Path())
		}
		state.DropFiles(paths)
	})

	win.Resize(fyne.NewSize(260, 520))
	return p
}

func (p *Panel) setupUI() {
	p.status = widget.NewLabel("Ready")

	title := widget.NewLabelWithStyle("Cell Image Toolbox",
		fyne.TextAlignCenter, fyne.TextStyle{Bold: true})

	dropHint := widget.NewLabelWithStyle("Drag Images Here",
		fyne.TextAlignCenter, fyne.TextStyle{Italic: true})

	browse := widget.NewButton("Browse...", p.onBrowse)

	content := container.NewVBox(
		title,
		widget.NewSeparator(),
		p.moduleRow("1. Apply ROI & Crop", p.onCrop, p.showROISettings),
		p.moduleRow("2. Batch Merge", p.onMerge, p.showMergeSettings),
		p.moduleRow("3. Ratio Analysis", p.onRatio, p.showRatioSettings),
		p.moduleRow("4. Scale Bar & Copy", p.onScaleBar, p.showScaleBarSettings),
		p.moduleRow("5. Batch Brightness", p.onBrightness, p.showBrightnessSettings),
		widget.NewSeparator(),
		p.moduleRow("6. Smart Undo", p.onUndo, p.showUndoSettings),
		p.moduleRow("7. Close All", p.onCloseAll, nil),
		widget.NewSeparator(),
		dropHint,
		browse,
	)

	p.SetContent(container.NewBorder(
		nil,
		container.NewPadded(p.status),
		nil,
		nil,
		content,
	))
}

// moduleRow builds an action button with a settings gear beside it. Actions
// run on their own goroutine so the panel stays responsive.
func (p *Panel) moduleRow(label string, action func(), settings func()) fyne.CanvasObject {
	btn := widget.NewButton(label, func() {
		go action()
	})
	if settings == nil {
		settings = func() {
			dialog.ShowInformation("Settings", "No settings available yet.", p.Window)
		}
	}
	gear := widget.NewButton("⚙", settings)
	return container.NewBorder(nil, nil, nil, gear, btn)
}

func (p *Panel) setupEventHandlers() {
	p.state.On(app.EventStatus, func(data interface{}) {
		if msg, ok := data.(string); ok {
			p.status.SetText(msg)
		}
	})
	p.state.On(app.EventImportSettled, func(data interface{}) {
		if r, ok := data.(app.ImportResult); ok {
			if r.Failed > 0 {
				p.status.SetText(fmt.Sprintf("Imported %d images (%d failed)", r.Imported, r.Failed))
			} else {
				p.status.SetText(fmt.Sprintf("Imported %d images", r.Imported))
			}
		}
	})
	p.state.On(app.EventWarning, func(data interface{}) {
		if msg, ok := data.(string); ok {
			p.status.SetText("Warning: " + msg)
		}
	})
	p.state.On(app.EventDocumentsChanged, func(interface{}) {
		p.status.SetText(fmt.Sprintf("%d images open", p.state.Workspace.Len()))
	})
}

// onBrowse opens a single image through a file dialog, as an alternative to
// dropping files onto the panel.
func (p *Panel) onBrowse() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, p.Window)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		rc.Close()
		p.state.DropFiles([]string{path})
	}, p.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(workspace.SupportedFormats()))
	fd.Show()
}

// reportErr shows module failures without tearing anything down.
func (p *Panel) reportErr(context string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, toolbox.ErrNoDocuments) {
		dialog.ShowInformation(context, "No images open.", p.Window)
		return
	}
	if errors.Is(err, toolbox.ErrNoSelection) {
		dialog.ShowInformation(context, "Draw a selection (ROI) on the current image first.", p.Window)
		return
	}
	dialog.ShowError(err, p.Window)
}

// Module actions. Each runs on a background goroutine (see moduleRow);
// confirmation dialogs block only that goroutine via confirmSync.

// confirmSync shows a confirm dialog and waits for the answer, so module
// goroutines can gate on it without callback plumbing.
func (p *Panel) confirmSync(title, message string) bool {
	answer := make(chan bool, 1)
	dialog.ShowConfirm(title, message, func(ok bool) {
		answer <- ok
	}, p.Window)
	return <-answer
}

func (p *Panel) onCrop() {
	s := p.state.Prefs.ROI()
	if s.Confirm {
		msg := "Crop the current image to its selection?"
		if s.ApplyAll {
			msg = "Apply the current selection as a crop to ALL open images?\nThis cannot be undone except via Smart Undo."
		}
		if !p.confirmSync("Apply ROI & Crop", msg) {
			return
		}
	}
	if err := p.state.Toolbox.CropROI(); err != nil {
		p.reportErr("Crop", err)
		return
	}
	p.state.Emit(app.EventDocumentsChanged, nil)
	p.status.SetText("Crop applied")
}

func (p *Panel) onMerge() {
	s := p.state.Prefs.Merge()
	if s.Confirm {
		msg := fmt.Sprintf("Merge channels on all open images.\nChannels: %s\n\nContinue?", s.Channels)
		if !p.confirmSync("Confirm Merge", msg) {
			return
		}
	}
	if err := p.state.Toolbox.MergeChannels(); err != nil {
		p.reportErr("Batch Merge", err)
		return
	}
	p.status.SetText("Channels merged")
}

func (p *Panel) onRatio() {
	run := p.state.Toolbox.RatioRunDefaults()
	if p.state.Prefs.Ratio().Confirm {
		ok := p.ratioRunDialog(&run)
		if !ok {
			return
		}
	}
	originals, err := p.state.Toolbox.RatioAnalysis(run)
	if err != nil {
		p.reportErr("Ratio Analysis", err)
		return
	}
	p.state.Emit(app.EventDocumentsChanged, nil)
	if len(originals) > 0 && p.confirmSync("Close Originals", "Close original source images?") {
		for _, doc := range originals {
			p.state.Workspace.Close(doc)
		}
		p.state.Emit(app.EventDocumentsChanged, nil)
	}
}

func (p *Panel) onScaleBar() {
	s := p.state.Prefs.ScaleBar()
	if err := p.state.Toolbox.ScaleBars(); err != nil {
		p.reportErr("Scale Bar", err)
		return
	}
	if !s.EnableCopy {
		if s.EnableBar {
			dialog.ShowInformation("Scale Bars Added", "Scale bars have been added to all images.", p.Window)
		}
		return
	}

	// Walk the images in natural order, pausing on each so the user can
	// copy it into their figure before moving on.
	completed := p.state.Toolbox.CopySequence(func(index, total int, doc *workspace.Document) bool {
		p.Clipboard().SetContent(doc.Title)
		msg := fmt.Sprintf("Image %d of %d: %s\n\nCopy it into your figure, then continue.", index, total, doc.Title)
		return p.confirmSync("Copy Sequence", msg)
	})
	p.status.SetText("Copy sequence finished")

	if completed && p.state.Workspace.Len() > 0 &&
		p.confirmSync("Copy Sequence", "All images processed. Close all open images?") {
		if err := p.state.Toolbox.CloseAll(); err != nil {
			p.reportErr("Close All", err)
			return
		}
		p.state.Emit(app.EventDocumentsChanged, nil)
	}
}

func (p *Panel) onBrightness() {
	if !p.confirmSync("Batch Brightness", "Measure the current image and apply its display range to all open images?") {
		return
	}
	min, max, err := p.state.Toolbox.AutoBrightness()
	if err != nil {
		p.reportErr("Batch Brightness", err)
		return
	}
	p.status.SetText(fmt.Sprintf("Display range %.1f-%.1f applied", min, max))
}

func (p *Panel) onUndo() {
	s := p.state.Prefs.Undo()
	plan, depth := p.state.Toolbox.Plan()

	if s.Confirm {
		switch plan {
		case checkpoint.PlanStepBack:
			msg := fmt.Sprintf("Step back to the previous state?\nStack size: %d", depth)
			if !p.confirmSync("Undo", msg) {
				return
			}
		case checkpoint.PlanReloadSource:
			if !p.confirmSync("Undo", "No steps to undo.\nReload the original source files?") {
				return
			}
		default:
			dialog.ShowInformation("Undo", "No history available.", p.Window)
			return
		}
	} else if plan == checkpoint.PlanNothing {
		dialog.ShowInformation("Undo", "No history available.", p.Window)
		return
	}

	outcome, err := p.state.Toolbox.Undo()
	if err != nil {
		p.reportErr("Undo", err)
		return
	}
	p.state.Emit(app.EventRestored, outcome)
	p.state.Emit(app.EventDocumentsChanged, nil)
	switch outcome {
	case checkpoint.Restored:
		p.status.SetText("Stepped back one operation")
	case checkpoint.RestoredFromSource:
		p.status.SetText("Reloaded original files")
	default:
		p.status.SetText("Nothing to undo")
	}
}

func (p *Panel) onCloseAll() {
	if !p.confirmSync("Close All", "Close ALL images?\nUnsaved changes are discarded.") {
		return
	}
	if err := p.state.Toolbox.CloseAll(); err != nil {
		p.reportErr("Close All", err)
		return
	}
	p.state.Emit(app.EventDocumentsChanged, nil)
}
