package engine

import (
	"fmt"
	"image"
	"sort"

	"gonum.org/v1/gonum/stat"

	"cell-toolbox/internal/workspace"
)

// Measure returns pixel statistics over the document's luminance values.
func (e *OpenCV) Measure(doc *workspace.Document) (Stats, error) {
	samples, err := luminanceSamples(doc.Img)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{Min: samples[0], Max: samples[0]}
	for _, v := range samples {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = stat.Mean(samples, nil)
	return s, nil
}

// AutoRange computes a display range that clips the given fraction of
// pixels at each end, the usual auto brightness heuristic.
func AutoRange(doc *workspace.Document, clip float64) (min, max float64, err error) {
	samples, err := luminanceSamples(doc.Img)
	if err != nil {
		return 0, 0, err
	}
	sort.Float64s(samples)
	min = stat.Quantile(clip, stat.Empirical, samples, nil)
	max = stat.Quantile(1-clip, stat.Empirical, samples, nil)
	if max <= min {
		max = min + 1
	}
	return min, max, nil
}

// luminanceSamples flattens an image to per-pixel luminance, subsampling
// large rasters so measurement stays cheap.
func luminanceSamples(img image.Image) ([]float64, error) {
	if img == nil {
		return nil, fmt.Errorf("no image data")
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image")
	}

	step := 1
	const maxSamples = 1 << 18
	for (w/step)*(h/step) > maxSamples {
		step++
	}

	samples := make([]float64, 0, (w/step+1)*(h/step+1))
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, _ := img.At(x, y).RGBA()
			// Rec. 601 luma, 16-bit inputs scaled to 8-bit range
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
			samples = append(samples, lum)
		}
	}
	return samples, nil
}
