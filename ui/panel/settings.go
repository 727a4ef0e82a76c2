package panel

import (
	"fmt"
	"log"
	"strconv"

	"cell-toolbox/internal/engine"
	"cell-toolbox/internal/toolbox"
	"cell-toolbox/ui/prefs"

	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// Settings dialogs. Each gear button opens a form seeded from the stored
// settings; OK writes the values back and saves the preferences file.

func (p *Panel) savePrefs() {
	if err := p.state.Prefs.Save(); err != nil {
		log.Printf("Failed to save preferences: %v", err)
		p.status.SetText("Warning: could not save settings")
	}
}

func (p *Panel) showUndoSettings() {
	s := p.state.Prefs.Undo()

	steps := widget.NewEntry()
	steps.SetText(strconv.Itoa(s.MaxSteps))
	confirm := widget.NewCheck("Ask before undoing", nil)
	confirm.SetChecked(s.Confirm)

	items := []*widget.FormItem{
		widget.NewFormItem(fmt.Sprintf("Max steps (%d-%d)", prefs.MinUndoSteps, prefs.MaxUndoSteps), steps),
		widget.NewFormItem("", confirm),
	}
	dialog.ShowForm("Smart Undo Settings", "OK", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		if n, err := strconv.Atoi(steps.Text); err == nil {
			s.MaxSteps = n
		}
		s.Confirm = confirm.Checked
		p.state.Prefs.SetUndo(s)
		p.savePrefs()
	}, p.Window)
}

func (p *Panel) showROISettings() {
	s := p.state.Prefs.ROI()

	confirm := widget.NewCheck("Ask before cropping", nil)
	confirm.SetChecked(s.Confirm)
	applyAll := widget.NewCheck("Apply to all open images", nil)
	applyAll.SetChecked(s.ApplyAll)

	items := []*widget.FormItem{
		widget.NewFormItem("", confirm),
		widget.NewFormItem("", applyAll),
	}
	dialog.ShowForm("ROI & Crop Settings", "OK", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		s.Confirm = confirm.Checked
		s.ApplyAll = applyAll.Checked
		p.state.Prefs.SetROI(s)
		p.savePrefs()
	}, p.Window)
}

func (p *Panel) showMergeSettings() {
	s := p.state.Prefs.Merge()

	channels := widget.NewEntry()
	channels.SetText(s.Channels)
	confirm := widget.NewCheck("Ask before merging", nil)
	confirm.SetChecked(s.Confirm)

	items := []*widget.FormItem{
		widget.NewFormItem("Channels to keep (e.g. 1,2)", channels),
		widget.NewFormItem("", confirm),
	}
	dialog.ShowForm("Batch Merge Settings", "OK", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		s.Channels = channels.Text
		s.Confirm = confirm.Checked
		p.state.Prefs.SetMerge(s)
		p.savePrefs()
	}, p.Window)
}

func (p *Panel) showRatioSettings() {
	s := p.state.Prefs.Ratio()

	num := widget.NewEntry()
	num.SetText(strconv.Itoa(s.Numerator))
	den := widget.NewEntry()
	den.SetText(strconv.Itoa(s.Denominator))
	min := widget.NewEntry()
	min.SetText(strconv.FormatFloat(s.Min, 'g', -1, 64))
	max := widget.NewEntry()
	max.SetText(strconv.FormatFloat(s.Max, 'g', -1, 64))
	confirm := widget.NewCheck("Ask before running", nil)
	confirm.SetChecked(s.Confirm)
	addBar := widget.NewCheck("Add calibration bar", nil)
	addBar.SetChecked(s.AddBar)

	barLoc := widget.NewSelect(engine.BarLocations(), nil)
	barLoc.SetSelected(s.Bar.Location)
	barFill := widget.NewSelect(engine.BarColors(), nil)
	barFill.SetSelected(s.Bar.FillColor)
	barLabel := widget.NewSelect(engine.BarColors(), nil)
	barLabel.SetSelected(s.Bar.LabelColor)
	barLabels := widget.NewEntry()
	barLabels.SetText(strconv.Itoa(s.Bar.NumLabels))
	barDecimals := widget.NewEntry()
	barDecimals.SetText(strconv.Itoa(s.Bar.Decimals))
	barFont := widget.NewEntry()
	barFont.SetText(strconv.Itoa(s.Bar.FontSize))
	barZoom := widget.NewEntry()
	barZoom.SetText(strconv.FormatFloat(s.Bar.Zoom, 'g', -1, 64))
	barBold := widget.NewCheck("Bold labels", nil)
	barBold.SetChecked(s.Bar.Bold)
	barOverlay := widget.NewCheck("Draw as overlay", nil)
	barOverlay.SetChecked(s.Bar.Overlay)

	items := []*widget.FormItem{
		widget.NewFormItem("Numerator channel", num),
		widget.NewFormItem("Denominator channel", den),
		widget.NewFormItem("Display min", min),
		widget.NewFormItem("Display max", max),
		widget.NewFormItem("", confirm),
		widget.NewFormItem("", addBar),
		widget.NewFormItem("Bar location", barLoc),
		widget.NewFormItem("Bar fill", barFill),
		widget.NewFormItem("Bar labels", barLabel),
		widget.NewFormItem("Label count", barLabels),
		widget.NewFormItem("Decimals", barDecimals),
		widget.NewFormItem("Font size", barFont),
		widget.NewFormItem("Zoom", barZoom),
		widget.NewFormItem("", barBold),
		widget.NewFormItem("", barOverlay),
	}
	dialog.ShowForm("Ratio Analysis Settings", "OK", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		if n, err := strconv.Atoi(num.Text); err == nil {
			s.Numerator = n
		}
		if n, err := strconv.Atoi(den.Text); err == nil {
			s.Denominator = n
		}
		if f, err := strconv.ParseFloat(min.Text, 64); err == nil {
			s.Min = f
		}
		if f, err := strconv.ParseFloat(max.Text, 64); err == nil {
			s.Max = f
		}
		s.Confirm = confirm.Checked
		s.AddBar = addBar.Checked
		s.Bar.Location = barLoc.Selected
		s.Bar.FillColor = barFill.Selected
		s.Bar.LabelColor = barLabel.Selected
		if n, err := strconv.Atoi(barLabels.Text); err == nil {
			s.Bar.NumLabels = n
		}
		if n, err := strconv.Atoi(barDecimals.Text); err == nil {
			s.Bar.Decimals = n
		}
		if n, err := strconv.Atoi(barFont.Text); err == nil {
			s.Bar.FontSize = n
		}
		if f, err := strconv.ParseFloat(barZoom.Text, 64); err == nil {
			s.Bar.Zoom = f
		}
		s.Bar.Bold = barBold.Checked
		s.Bar.Overlay = barOverlay.Checked
		p.state.Prefs.SetRatio(s)
		p.savePrefs()
	}, p.Window)
}

func (p *Panel) showScaleBarSettings() {
	s := p.state.Prefs.ScaleBar()

	enableBar := widget.NewCheck("Draw scale bars", nil)
	enableBar.SetChecked(s.EnableBar)
	enableCopy := widget.NewCheck("Run copy sequence after", nil)
	enableCopy.SetChecked(s.EnableCopy)
	width := widget.NewEntry()
	width.SetText(strconv.FormatFloat(s.Bar.Width, 'g', -1, 64))
	height := widget.NewEntry()
	height.SetText(strconv.Itoa(s.Bar.Height))
	font := widget.NewEntry()
	font.SetText(strconv.Itoa(s.Bar.FontSize))
	col := widget.NewSelect(engine.BarColors(), nil)
	col.SetSelected(s.Bar.Color)
	bg := widget.NewSelect(engine.BarColors(), nil)
	bg.SetSelected(s.Bar.Background)
	loc := widget.NewSelect(engine.BarLocations(), nil)
	loc.SetSelected(s.Bar.Location)
	bold := widget.NewCheck("Bold label", nil)
	bold.SetChecked(s.Bar.Bold)
	hide := widget.NewCheck("Hide label text", nil)
	hide.SetChecked(s.Bar.HideText)
	overlay := widget.NewCheck("Draw as overlay", nil)
	overlay.SetChecked(s.Bar.Overlay)

	items := []*widget.FormItem{
		widget.NewFormItem("", enableBar),
		widget.NewFormItem("", enableCopy),
		widget.NewFormItem("Bar width (units)", width),
		widget.NewFormItem("Bar height (px)", height),
		widget.NewFormItem("Font size", font),
		widget.NewFormItem("Color", col),
		widget.NewFormItem("Background", bg),
		widget.NewFormItem("Location", loc),
		widget.NewFormItem("", bold),
		widget.NewFormItem("", hide),
		widget.NewFormItem("", overlay),
	}
	dialog.ShowForm("Scale Bar Settings", "OK", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		s.EnableBar = enableBar.Checked
		s.EnableCopy = enableCopy.Checked
		if f, err := strconv.ParseFloat(width.Text, 64); err == nil {
			s.Bar.Width = f
		}
		if n, err := strconv.Atoi(height.Text); err == nil {
			s.Bar.Height = n
		}
		if n, err := strconv.Atoi(font.Text); err == nil {
			s.Bar.FontSize = n
		}
		s.Bar.Color = col.Selected
		s.Bar.Background = bg.Selected
		s.Bar.Location = loc.Selected
		s.Bar.Bold = bold.Checked
		s.Bar.HideText = hide.Checked
		s.Bar.Overlay = overlay.Checked
		p.state.Prefs.SetScaleBar(s)
		p.savePrefs()
	}, p.Window)
}

// showBrightnessSettings applies a manual display range. Unlike the other
// dialogs it acts on the open images directly rather than storing settings.
func (p *Panel) showBrightnessSettings() {
	min := widget.NewEntry()
	min.SetText("0")
	max := widget.NewEntry()
	max.SetText("255")

	items := []*widget.FormItem{
		widget.NewFormItem("Display min", min),
		widget.NewFormItem("Display max", max),
	}
	dialog.ShowForm("Manual Display Range", "Apply", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		lo, err1 := strconv.ParseFloat(min.Text, 64)
		hi, err2 := strconv.ParseFloat(max.Text, 64)
		if err1 != nil || err2 != nil || hi <= lo {
			dialog.ShowError(fmt.Errorf("invalid display range %q..%q", min.Text, max.Text), p.Window)
			return
		}
		if err := p.state.Toolbox.ApplyDisplayRange(lo, hi); err != nil {
			p.reportErr("Display Range", err)
			return
		}
		p.status.SetText(fmt.Sprintf("Display range %.1f-%.1f applied", lo, hi))
	}, p.Window)
}

// ratioRunDialog lets the user adjust the per-run ratio parameters before
// execution. Blocks the calling (module) goroutine until answered.
func (p *Panel) ratioRunDialog(run *toolbox.RatioRun) bool {
	answer := make(chan bool, 1)

	batch := widget.NewCheck("Batch mode (all open images)", nil)
	batch.SetChecked(run.Batch)
	num := widget.NewEntry()
	num.SetText(strconv.Itoa(run.Numerator))
	den := widget.NewEntry()
	den.SetText(strconv.Itoa(run.Denominator))
	min := widget.NewEntry()
	min.SetText(strconv.FormatFloat(run.Min, 'g', -1, 64))
	max := widget.NewEntry()
	max.SetText(strconv.FormatFloat(run.Max, 'g', -1, 64))

	items := []*widget.FormItem{
		widget.NewFormItem("", batch),
		widget.NewFormItem("Numerator channel", num),
		widget.NewFormItem("Denominator channel", den),
		widget.NewFormItem("Display min", min),
		widget.NewFormItem("Display max", max),
	}
	dialog.ShowForm("Ratio Analysis", "Run", "Cancel", items, func(ok bool) {
		if ok {
			run.Batch = batch.Checked
			if n, err := strconv.Atoi(num.Text); err == nil {
				run.Numerator = n
			}
			if n, err := strconv.Atoi(den.Text); err == nil {
				run.Denominator = n
			}
			if f, err := strconv.ParseFloat(min.Text, 64); err == nil {
				run.Min = f
			}
			if f, err := strconv.ParseFloat(max.Text, 64); err == nil {
				run.Max = f
			}
		}
		answer <- ok
	}, p.Window)
	return <-answer
}
