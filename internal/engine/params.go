package engine

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Parameter-string builders. The formats follow the engine's native dialog
// command strings: space-separated key=value tokens, bracketed multi-word
// values, and bare flags appended at the end.

// CropParams selects the region applied by OpCrop.
type CropParams struct {
	X, Y, Width, Height int
}

func (p CropParams) String() string {
	return fmt.Sprintf("x=%d y=%d width=%d height=%d", p.X, p.Y, p.Width, p.Height)
}

// MergeParams selects which channels OpMergeChannels keeps.
type MergeParams struct {
	Channels []int
}

func (p MergeParams) String() string {
	parts := make([]string, len(p.Channels))
	for i, c := range p.Channels {
		parts[i] = strconv.Itoa(c)
	}
	return "channels=" + strings.Join(parts, ",")
}

// RatioParams drives OpRatioDivide: numerator/denominator channel and the
// display range of the derived ratio document.
type RatioParams struct {
	Numerator   int
	Denominator int
	Min         float64
	Max         float64
}

func (p RatioParams) String() string {
	return fmt.Sprintf("numerator=%d denominator=%d min=%g max=%g",
		p.Numerator, p.Denominator, p.Min, p.Max)
}

// CalibrationBarParams mirrors the engine's native Calibration Bar dialog.
type CalibrationBarParams struct {
	Location   string
	FillColor  string
	LabelColor string
	NumLabels  int
	Decimals   int
	FontSize   int
	Zoom       float64
	Bold       bool
	Overlay    bool
	ShowUnit   bool
}

func (p CalibrationBarParams) String() string {
	cmd := fmt.Sprintf("location=[%s] fill=%s label=%s number=%d decimal=%d font=%d zoom=%g",
		p.Location, p.FillColor, p.LabelColor, p.NumLabels, p.Decimals, p.FontSize, p.Zoom)
	if p.Overlay {
		cmd += " overlay"
	}
	if p.Bold {
		cmd += " bold"
	}
	if p.ShowUnit {
		cmd += " show"
	}
	return cmd
}

// ScaleBarParams mirrors the engine's native Scale Bar dialog.
type ScaleBarParams struct {
	Width      float64 // In calibrated units
	Height     int     // In pixels
	FontSize   int
	Color      string
	Background string
	Location   string
	Bold       bool
	HideText   bool
	Overlay    bool
}

func (p ScaleBarParams) String() string {
	cmd := fmt.Sprintf("width=%g height=%d font=%d color=%s background=%s location=[%s]",
		p.Width, p.Height, p.FontSize, p.Color, p.Background, p.Location)
	if p.Bold {
		cmd += " bold"
	}
	if p.HideText {
		cmd += " hide"
	}
	if p.Overlay {
		cmd += " overlay"
	}
	return cmd
}

// BarLocations lists the placements the bar dialogs accept.
func BarLocations() []string {
	return []string{"Upper Right", "Lower Right", "Upper Left", "Lower Left", "At Selection"}
}

// BarColors lists the color names the bar dialogs accept.
func BarColors() []string {
	return []string{"White", "Black", "Light Gray", "Gray", "Dark Gray", "Red", "Green", "Blue", "Yellow", "None"}
}

// parseParams splits an engine parameter string into key=value pairs and
// bare flags. Bracketed values keep their spaces.
func parseParams(params string) (map[string]string, map[string]bool) {
	values := make(map[string]string)
	flags := make(map[string]bool)

	rest := strings.TrimSpace(params)
	for rest != "" {
		var token string
		if eq := strings.Index(rest, "="); eq >= 0 && !strings.ContainsAny(rest[:eq], " ") {
			key := rest[:eq]
			rest = rest[eq+1:]
			var val string
			if strings.HasPrefix(rest, "[") {
				end := strings.Index(rest, "]")
				if end < 0 {
					end = len(rest) - 1
				}
				val = rest[1:end]
				rest = strings.TrimSpace(rest[end+1:])
			} else if sp := strings.Index(rest, " "); sp >= 0 {
				val = rest[:sp]
				rest = strings.TrimSpace(rest[sp+1:])
			} else {
				val = rest
				rest = ""
			}
			values[key] = val
			continue
		}
		if sp := strings.Index(rest, " "); sp >= 0 {
			token = rest[:sp]
			rest = strings.TrimSpace(rest[sp+1:])
		} else {
			token = rest
			rest = ""
		}
		flags[token] = true
	}
	return values, flags
}

func paramInt(values map[string]string, key string, fallback int) int {
	if v, ok := values[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func paramFloat(values map[string]string, key string, fallback float64) float64 {
	if v, ok := values[key]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func paramInts(values map[string]string, key string) []int {
	v, ok := values[key]
	if !ok {
		return nil
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// colorByName maps a dialog color name to a concrete color. "None" and
// unknown names return ok=false.
func colorByName(name string) (color.RGBA, bool) {
	switch name {
	case "White":
		return color.RGBA{255, 255, 255, 255}, true
	case "Black":
		return color.RGBA{0, 0, 0, 255}, true
	case "Light Gray":
		return color.RGBA{192, 192, 192, 255}, true
	case "Gray":
		return color.RGBA{128, 128, 128, 255}, true
	case "Dark Gray":
		return color.RGBA{64, 64, 64, 255}, true
	case "Red":
		return color.RGBA{255, 0, 0, 255}, true
	case "Green":
		return color.RGBA{0, 255, 0, 255}, true
	case "Blue":
		return color.RGBA{0, 0, 255, 255}, true
	case "Yellow":
		return color.RGBA{255, 255, 0, 255}, true
	default:
		return color.RGBA{}, false
	}
}
