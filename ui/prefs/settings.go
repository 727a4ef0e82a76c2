package prefs

import (
	"strconv"
	"strings"
	"time"

	"cell-toolbox/internal/engine"
)

// Preference keys. One flat namespace shared with the settings dialogs.
const (
	KeyUndoMaxSteps = "undo.max_steps"
	KeyUndoConfirm  = "undo.confirm"

	KeyROIConfirm  = "roi.confirm"
	KeyROIApplyAll = "roi.apply_all"

	KeyMergeChannels = "merge.channels"
	KeyMergeConfirm  = "merge.confirm"

	KeyRatioNum     = "ratio.num"
	KeyRatioDen     = "ratio.den"
	KeyRatioMin     = "ratio.min"
	KeyRatioMax     = "ratio.max"
	KeyRatioConfirm = "ratio.confirm"
	KeyRatioAddBar  = "ratio.add_bar"

	KeyCBLocation = "cb.loc"
	KeyCBFill     = "cb.fill"
	KeyCBLabel    = "cb.label"
	KeyCBNumber   = "cb.num"
	KeyCBDecimals = "cb.dec"
	KeyCBFont     = "cb.font"
	KeyCBZoom     = "cb.zoom"
	KeyCBBold     = "cb.bold"
	KeyCBOverlay  = "cb.overlay"
	KeyCBUnit     = "cb.unit"

	KeySBEnableBar  = "sb.enable_bar"
	KeySBEnableCopy = "sb.enable_copy"
	KeySBWidth      = "sb.width"
	KeySBHeight     = "sb.height"
	KeySBFont       = "sb.font"
	KeySBColor      = "sb.color"
	KeySBBackground = "sb.bg"
	KeySBLocation   = "sb.loc"
	KeySBBold       = "sb.bold"
	KeySBHide       = "sb.hide"
	KeySBOverlay    = "sb.overlay"

	KeyImportSettleMs = "import.settle_ms"
)

const (
	// MinUndoSteps and MaxUndoSteps bound the configurable stack depth.
	MinUndoSteps = 1
	MaxUndoSteps = 10
	// DefaultUndoSteps is the stack depth before the user changes it.
	DefaultUndoSteps = 5
)

// Settings readers. Each reads the live preference map on every call; values
// are never cached across snapshot/restore decisions.

// ImportSettle returns the wait between finishing an import batch and its
// trailing snapshot. Kept configurable because it stands in for a completion
// signal the engine does not expose.
func (p *Prefs) ImportSettle() time.Duration {
	ms := p.IntWithFallback(KeyImportSettleMs, 1000)
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

// UndoSettings configures the snapshot stack and the undo confirmation.
type UndoSettings struct {
	MaxSteps int
	Confirm  bool
}

// Undo returns the undo settings with MaxSteps clamped to [1,10].
func (p *Prefs) Undo() UndoSettings {
	steps := p.IntWithFallback(KeyUndoMaxSteps, DefaultUndoSteps)
	if steps < MinUndoSteps {
		steps = MinUndoSteps
	}
	if steps > MaxUndoSteps {
		steps = MaxUndoSteps
	}
	return UndoSettings{
		MaxSteps: steps,
		Confirm:  p.Bool(KeyUndoConfirm, true),
	}
}

// SetUndo stores the undo settings.
func (p *Prefs) SetUndo(s UndoSettings) {
	p.SetInt(KeyUndoMaxSteps, s.MaxSteps)
	p.SetBool(KeyUndoConfirm, s.Confirm)
}

// ROISettings configures the crop module.
type ROISettings struct {
	Confirm  bool
	ApplyAll bool
}

// ROI returns the crop module settings.
func (p *Prefs) ROI() ROISettings {
	return ROISettings{
		Confirm:  p.Bool(KeyROIConfirm, true),
		ApplyAll: p.Bool(KeyROIApplyAll, true),
	}
}

// SetROI stores the crop module settings.
func (p *Prefs) SetROI(s ROISettings) {
	p.SetBool(KeyROIConfirm, s.Confirm)
	p.SetBool(KeyROIApplyAll, s.ApplyAll)
}

// MergeSettings configures the channel-merge module.
type MergeSettings struct {
	Channels string // Comma-separated channel numbers, e.g. "1,2"
	Confirm  bool
}

// Merge returns the channel-merge settings.
func (p *Prefs) Merge() MergeSettings {
	return MergeSettings{
		Channels: p.StringWithFallback(KeyMergeChannels, "1,2,3,4"),
		Confirm:  p.Bool(KeyMergeConfirm, true),
	}
}

// SetMerge stores the channel-merge settings.
func (p *Prefs) SetMerge(s MergeSettings) {
	p.SetString(KeyMergeChannels, s.Channels)
	p.SetBool(KeyMergeConfirm, s.Confirm)
}

// ChannelList parses the configured channel string into channel numbers,
// ignoring anything that is not a number.
func (s MergeSettings) ChannelList() []int {
	var out []int
	for _, part := range strings.Split(s.Channels, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// RatioSettings configures the ratio-analysis module and its calibration bar.
type RatioSettings struct {
	Numerator   int
	Denominator int
	Min         float64
	Max         float64
	Confirm     bool
	AddBar      bool
	Bar         engine.CalibrationBarParams
}

// Ratio returns the ratio-analysis settings.
func (p *Prefs) Ratio() RatioSettings {
	return RatioSettings{
		Numerator:   p.IntWithFallback(KeyRatioNum, 1),
		Denominator: p.IntWithFallback(KeyRatioDen, 2),
		Min:         p.FloatWithFallback(KeyRatioMin, 0.0),
		Max:         p.FloatWithFallback(KeyRatioMax, 2.0),
		Confirm:     p.Bool(KeyRatioConfirm, true),
		AddBar:      p.Bool(KeyRatioAddBar, true),
		Bar: engine.CalibrationBarParams{
			Location:   p.StringWithFallback(KeyCBLocation, "Upper Right"),
			FillColor:  p.StringWithFallback(KeyCBFill, "White"),
			LabelColor: p.StringWithFallback(KeyCBLabel, "Black"),
			NumLabels:  p.IntWithFallback(KeyCBNumber, 5),
			Decimals:   p.IntWithFallback(KeyCBDecimals, 2),
			FontSize:   p.IntWithFallback(KeyCBFont, 12),
			Zoom:       p.FloatWithFallback(KeyCBZoom, 1.0),
			Bold:       p.Bool(KeyCBBold, false),
			Overlay:    p.Bool(KeyCBOverlay, true),
			ShowUnit:   p.Bool(KeyCBUnit, false),
		},
	}
}

// SetRatio stores the ratio-analysis settings.
func (p *Prefs) SetRatio(s RatioSettings) {
	p.SetInt(KeyRatioNum, s.Numerator)
	p.SetInt(KeyRatioDen, s.Denominator)
	p.SetFloat(KeyRatioMin, s.Min)
	p.SetFloat(KeyRatioMax, s.Max)
	p.SetBool(KeyRatioConfirm, s.Confirm)
	p.SetBool(KeyRatioAddBar, s.AddBar)
	p.SetString(KeyCBLocation, s.Bar.Location)
	p.SetString(KeyCBFill, s.Bar.FillColor)
	p.SetString(KeyCBLabel, s.Bar.LabelColor)
	p.SetInt(KeyCBNumber, s.Bar.NumLabels)
	p.SetInt(KeyCBDecimals, s.Bar.Decimals)
	p.SetInt(KeyCBFont, s.Bar.FontSize)
	p.SetFloat(KeyCBZoom, s.Bar.Zoom)
	p.SetBool(KeyCBBold, s.Bar.Bold)
	p.SetBool(KeyCBOverlay, s.Bar.Overlay)
	p.SetBool(KeyCBUnit, s.Bar.ShowUnit)
}

// ScaleBarSettings configures the scale-bar and copy-sequence module.
type ScaleBarSettings struct {
	EnableBar  bool
	EnableCopy bool
	Bar        engine.ScaleBarParams
}

// ScaleBar returns the scale-bar module settings.
func (p *Prefs) ScaleBar() ScaleBarSettings {
	return ScaleBarSettings{
		EnableBar:  p.Bool(KeySBEnableBar, true),
		EnableCopy: p.Bool(KeySBEnableCopy, true),
		Bar: engine.ScaleBarParams{
			Width:      p.FloatWithFallback(KeySBWidth, 10.0),
			Height:     p.IntWithFallback(KeySBHeight, 8),
			FontSize:   p.IntWithFallback(KeySBFont, 14),
			Color:      p.StringWithFallback(KeySBColor, "White"),
			Background: p.StringWithFallback(KeySBBackground, "None"),
			Location:   p.StringWithFallback(KeySBLocation, "Lower Right"),
			Bold:       p.Bool(KeySBBold, true),
			HideText:   p.Bool(KeySBHide, true),
			Overlay:    p.Bool(KeySBOverlay, true),
		},
	}
}

// SetScaleBar stores the scale-bar module settings.
func (p *Prefs) SetScaleBar(s ScaleBarSettings) {
	p.SetBool(KeySBEnableBar, s.EnableBar)
	p.SetBool(KeySBEnableCopy, s.EnableCopy)
	p.SetFloat(KeySBWidth, s.Bar.Width)
	p.SetInt(KeySBHeight, s.Bar.Height)
	p.SetInt(KeySBFont, s.Bar.FontSize)
	p.SetString(KeySBColor, s.Bar.Color)
	p.SetString(KeySBBackground, s.Bar.Background)
	p.SetString(KeySBLocation, s.Bar.Location)
	p.SetBool(KeySBBold, s.Bar.Bold)
	p.SetBool(KeySBHide, s.Bar.HideText)
	p.SetBool(KeySBOverlay, s.Bar.Overlay)
}
