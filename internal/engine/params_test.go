package engine

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropParamsString(t *testing.T) {
	p := CropParams{X: 10, Y: 20, Width: 100, Height: 50}
	assert.Equal(t, "x=10 y=20 width=100 height=50", p.String())
}

func TestMergeParamsString(t *testing.T) {
	assert.Equal(t, "channels=1,3", MergeParams{Channels: []int{1, 3}}.String())
	assert.Equal(t, "channels=", MergeParams{}.String())
}

func TestRatioParamsString(t *testing.T) {
	p := RatioParams{Numerator: 1, Denominator: 2, Min: 0, Max: 2.5}
	assert.Equal(t, "numerator=1 denominator=2 min=0 max=2.5", p.String())
}

func TestCalibrationBarParamsString(t *testing.T) {
	p := CalibrationBarParams{
		Location:   "Upper Right",
		FillColor:  "White",
		LabelColor: "Black",
		NumLabels:  5,
		Decimals:   2,
		FontSize:   12,
		Zoom:       1,
		Overlay:    true,
	}
	assert.Equal(t,
		"location=[Upper Right] fill=White label=Black number=5 decimal=2 font=12 zoom=1 overlay",
		p.String())

	p.Overlay = false
	p.Bold = true
	p.ShowUnit = true
	assert.Equal(t,
		"location=[Upper Right] fill=White label=Black number=5 decimal=2 font=12 zoom=1 bold show",
		p.String())
}

func TestScaleBarParamsString(t *testing.T) {
	p := ScaleBarParams{
		Width:      10,
		Height:     8,
		FontSize:   14,
		Color:      "White",
		Background: "None",
		Location:   "Lower Right",
		Bold:       true,
		HideText:   true,
		Overlay:    true,
	}
	assert.Equal(t,
		"width=10 height=8 font=14 color=White background=None location=[Lower Right] bold hide overlay",
		p.String())
}

func TestParseParams(t *testing.T) {
	values, flags := parseParams("location=[Upper Right] fill=White number=5 zoom=1.5 overlay bold")

	assert.Equal(t, "Upper Right", values["location"])
	assert.Equal(t, "White", values["fill"])
	assert.Equal(t, 5, paramInt(values, "number", 0))
	assert.Equal(t, 1.5, paramFloat(values, "zoom", 0))
	assert.True(t, flags["overlay"])
	assert.True(t, flags["bold"])
	assert.False(t, flags["hide"])

	// Missing keys fall back.
	assert.Equal(t, 7, paramInt(values, "absent", 7))
	assert.Equal(t, 2.0, paramFloat(values, "absent", 2.0))
}

func TestParseParamsRoundTrip(t *testing.T) {
	in := ScaleBarParams{
		Width:      12.5,
		Height:     6,
		FontSize:   10,
		Color:      "Yellow",
		Background: "Black",
		Location:   "At Selection",
		HideText:   true,
	}
	values, flags := parseParams(in.String())

	assert.Equal(t, 12.5, paramFloat(values, "width", 0))
	assert.Equal(t, 6, paramInt(values, "height", 0))
	assert.Equal(t, "Yellow", values["color"])
	assert.Equal(t, "At Selection", values["location"])
	assert.True(t, flags["hide"])
	assert.False(t, flags["bold"])
}

func TestParamInts(t *testing.T) {
	values, _ := parseParams("channels=1,2,4")
	assert.Equal(t, []int{1, 2, 4}, paramInts(values, "channels"))
	assert.Nil(t, paramInts(values, "absent"))
}

func TestColorByName(t *testing.T) {
	c, ok := colorByName("Red")
	require.True(t, ok)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, c)

	_, ok = colorByName("None")
	assert.False(t, ok)
	_, ok = colorByName("Chartreuse")
	assert.False(t, ok)
}
