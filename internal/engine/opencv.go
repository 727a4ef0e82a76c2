package engine

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"cell-toolbox/internal/workspace"
)

// OpenCV is the production engine, backed by OpenCV through gocv. Each
// operation is a thin translation of its parameter string onto Mat calls;
// no algorithmic work beyond what the library provides.
type OpenCV struct{}

// NewOpenCV creates the OpenCV-backed engine.
func NewOpenCV() *OpenCV {
	return &OpenCV{}
}

// Run applies a named operation in place to the given documents.
func (e *OpenCV) Run(op Op, params string, docs []*workspace.Document) error {
	switch op {
	case OpCrop:
		return e.crop(params, docs)
	case OpMergeChannels:
		return e.mergeChannels(params, docs)
	case OpScaleBar:
		return e.scaleBar(params, docs)
	case OpCalibrationBar:
		for _, doc := range docs {
			if err := e.drawCalibrationBar(doc, params); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown engine operation %q", op)
	}
}

// Derive produces a new document from doc. OpRatioDivide divides the
// numerator channel by the denominator channel into a 32-bit ratio scaled
// onto the requested display range. OpCalibrationBar with a nil doc renders
// a standalone legend.
func (e *OpenCV) Derive(op Op, params string, doc *workspace.Document) (*workspace.Document, error) {
	switch op {
	case OpRatioDivide:
		return e.ratioDivide(params, doc)
	case OpCalibrationBar:
		if doc == nil {
			return e.legend(params)
		}
		clone := workspace.NewDocument(doc.Title, doc.Img)
		if err := e.drawCalibrationBar(clone, params); err != nil {
			return nil, err
		}
		return clone, nil
	default:
		return nil, fmt.Errorf("operation %q cannot derive a document", op)
	}
}

// SetDisplayRange applies a display min/max without touching pixel data.
func (e *OpenCV) SetDisplayRange(docs []*workspace.Document, min, max float64) {
	for _, doc := range docs {
		doc.DisplayMin = min
		doc.DisplayMax = max
	}
}

func (e *OpenCV) crop(params string, docs []*workspace.Document) error {
	values, _ := parseParams(params)
	x := paramInt(values, "x", 0)
	y := paramInt(values, "y", 0)
	w := paramInt(values, "width", 0)
	h := paramInt(values, "height", 0)
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid crop region %dx%d", w, h)
	}

	for _, doc := range docs {
		mat, err := imageToMat(doc.Img)
		if err != nil {
			return fmt.Errorf("failed to convert %q: %w", doc.Title, err)
		}

		r := image.Rect(x, y, x+w, y+h).Intersect(image.Rect(0, 0, mat.Cols(), mat.Rows()))
		if r.Empty() {
			mat.Close()
			continue
		}
		roi := mat.Region(r)
		cropped := roi.Clone()
		roi.Close()
		mat.Close()

		img, err := matToImage(cropped)
		cropped.Close()
		if err != nil {
			return err
		}
		doc.Img = img
		doc.Dirty = true
		doc.ClearSelection()
	}
	return nil
}

func (e *OpenCV) mergeChannels(params string, docs []*workspace.Document) error {
	values, _ := parseParams(params)
	keep := paramInts(values, "channels")
	if len(keep) == 0 {
		return fmt.Errorf("no channels selected")
	}
	kept := make(map[int]bool, len(keep))
	for _, c := range keep {
		kept[c] = true
	}

	for _, doc := range docs {
		mat, err := imageToMat(doc.Img)
		if err != nil {
			return fmt.Errorf("failed to convert %q: %w", doc.Title, err)
		}

		planes := gocv.Split(mat)
		mat.Close()
		// Split order is BGR; dialog channels are 1=red 2=green 3=blue.
		for ch := 1; ch <= len(planes); ch++ {
			if kept[ch] {
				continue
			}
			idx := len(planes) - ch // R=2, G=1, B=0 for 3 planes
			if idx >= 0 && idx < len(planes) {
				planes[idx].SetTo(gocv.NewScalar(0, 0, 0, 0))
			}
		}

		merged := gocv.NewMat()
		gocv.Merge(planes, &merged)
		for i := range planes {
			planes[i].Close()
		}

		img, err := matToImage(merged)
		merged.Close()
		if err != nil {
			return err
		}
		doc.Img = img
		doc.Dirty = true
	}
	return nil
}

func (e *OpenCV) ratioDivide(params string, doc *workspace.Document) (*workspace.Document, error) {
	values, _ := parseParams(params)
	num := paramInt(values, "numerator", 1)
	den := paramInt(values, "denominator", 2)
	rmin := paramFloat(values, "min", 0)
	rmax := paramFloat(values, "max", 2)
	if rmax <= rmin {
		return nil, fmt.Errorf("invalid display range [%g, %g]", rmin, rmax)
	}

	mat, err := imageToMat(doc.Img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %q: %w", doc.Title, err)
	}
	defer mat.Close()

	planes := gocv.Split(mat)
	defer func() {
		for i := range planes {
			planes[i].Close()
		}
	}()
	numPlane, err := channelPlane(planes, num)
	if err != nil {
		return nil, err
	}
	denPlane, err := channelPlane(planes, den)
	if err != nil {
		return nil, err
	}

	numF := gocv.NewMat()
	defer numF.Close()
	denF := gocv.NewMat()
	defer denF.Close()
	numPlane.ConvertTo(&numF, gocv.MatTypeCV32F)
	denPlane.ConvertTo(&denF, gocv.MatTypeCV32F)

	ratio := gocv.NewMat()
	defer ratio.Close()
	gocv.Divide(numF, denF, &ratio)

	// Map [min,max] onto the 8-bit output range.
	scale := 255.0 / (rmax - rmin)
	scaled := gocv.NewMat()
	defer scaled.Close()
	ratio.ConvertToWithParams(&scaled, gocv.MatTypeCV8U, float32(scale), float32(-rmin*scale))

	img, err := grayMatToImage(scaled)
	if err != nil {
		return nil, err
	}
	out := workspace.NewDocument("Ratio_"+doc.Title, img)
	out.DisplayMin = rmin
	out.DisplayMax = rmax
	out.Dirty = true
	return out, nil
}

// channelPlane maps a 1-based dialog channel (1=red 2=green 3=blue) onto a
// BGR split plane.
func channelPlane(planes []gocv.Mat, ch int) (gocv.Mat, error) {
	idx := len(planes) - ch
	if idx < 0 || idx >= len(planes) {
		return gocv.Mat{}, fmt.Errorf("channel %d out of range (%d planes)", ch, len(planes))
	}
	return planes[idx], nil
}

func (e *OpenCV) scaleBar(params string, docs []*workspace.Document) error {
	values, flags := parseParams(params)
	barW := int(paramFloat(values, "width", 10))
	barH := paramInt(values, "height", 8)
	font := paramInt(values, "font", 14)
	loc := values["location"]

	fg, fgOK := colorByName(values["color"])
	if !fgOK {
		fg = color.RGBA{255, 255, 255, 255}
	}
	bg, bgOK := colorByName(values["background"])

	for _, doc := range docs {
		mat, err := imageToMat(doc.Img)
		if err != nil {
			return fmt.Errorf("failed to convert %q: %w", doc.Title, err)
		}

		origin := barOrigin(loc, doc.Selection, mat.Cols(), mat.Rows(), barW, barH)
		bar := image.Rect(origin.X, origin.Y, origin.X+barW, origin.Y+barH)
		if bgOK {
			gocv.Rectangle(&mat, bar.Inset(-4), bg, -1)
		}
		gocv.Rectangle(&mat, bar, fg, -1)
		if !flags["hide"] {
			thickness := 1
			if flags["bold"] {
				thickness = 2
			}
			label := values["width"]
			gocv.PutText(&mat, label, image.Pt(origin.X, origin.Y-4),
				gocv.FontHersheySimplex, float64(font)/28.0, fg, thickness)
		}

		img, err := matToImage(mat)
		mat.Close()
		if err != nil {
			return err
		}
		doc.Img = img
		doc.Dirty = true
	}
	return nil
}

// drawCalibrationBar renders a vertical intensity ramp with labels onto the
// document. The parameter string is the native dialog command.
func (e *OpenCV) drawCalibrationBar(doc *workspace.Document, params string) error {
	values, flags := parseParams(params)
	zoom := paramFloat(values, "zoom", 1.0)
	nLabels := paramInt(values, "number", 5)
	font := paramInt(values, "font", 12)
	loc := values["location"]

	fill, fillOK := colorByName(values["fill"])
	if !fillOK {
		fill = color.RGBA{255, 255, 255, 255}
	}
	label, labelOK := colorByName(values["label"])
	if !labelOK {
		label = color.RGBA{0, 0, 0, 255}
	}

	mat, err := imageToMat(doc.Img)
	if err != nil {
		return fmt.Errorf("failed to convert %q: %w", doc.Title, err)
	}

	barW := int(24 * zoom)
	barH := int(128 * zoom)
	origin := barOrigin(loc, doc.Selection, mat.Cols(), mat.Rows(), barW+40, barH)
	gocv.Rectangle(&mat, image.Rect(origin.X-4, origin.Y-4, origin.X+barW+44, origin.Y+barH+4), fill, -1)

	// Intensity ramp, brightest at the top.
	for row := 0; row < barH; row++ {
		v := uint8(255 - row*255/barH)
		y := origin.Y + row
		gocv.Line(&mat, image.Pt(origin.X, y), image.Pt(origin.X+barW, y),
			color.RGBA{v, v, v, 255}, 1)
	}

	if nLabels > 1 {
		thickness := 1
		if flags["bold"] {
			thickness = 2
		}
		for i := 0; i < nLabels; i++ {
			y := origin.Y + i*barH/(nLabels-1)
			gocv.PutText(&mat, fmt.Sprintf("%d", i), image.Pt(origin.X+barW+6, y+4),
				gocv.FontHersheySimplex, float64(font)/28.0, label, thickness)
		}
	}

	img, err := matToImage(mat)
	mat.Close()
	if err != nil {
		return err
	}
	doc.Img = img
	doc.Dirty = true
	return nil
}

// legend renders a standalone calibration-bar document, used in batch ratio
// mode where per-image bars are suppressed.
func (e *OpenCV) legend(params string) (*workspace.Document, error) {
	blank := image.NewRGBA(image.Rect(0, 0, 150, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 150; x++ {
			blank.Set(x, y, color.White)
		}
	}
	doc := workspace.NewDocument("Ratio_Legend", blank)
	if err := e.drawCalibrationBar(doc, params); err != nil {
		return nil, err
	}
	return doc, nil
}

// barOrigin resolves a dialog location name to a top-left point for a bar
// of the given size, honoring "At Selection" when a selection exists.
func barOrigin(loc string, sel *image.Rectangle, imgW, imgH, barW, barH int) image.Point {
	const margin = 12
	switch loc {
	case "At Selection":
		if sel != nil {
			return sel.Min
		}
	case "Upper Left":
		return image.Pt(margin, margin)
	case "Upper Right":
		return image.Pt(imgW-barW-margin, margin)
	case "Lower Left":
		return image.Pt(margin, imgH-barH-margin)
	}
	// Default: Lower Right
	return image.Pt(imgW-barW-margin, imgH-barH-margin)
}

// imageToMat converts a Go image.Image to a gocv.Mat in BGR format.
func imageToMat(img image.Image) (gocv.Mat, error) {
	if img == nil {
		return gocv.Mat{}, fmt.Errorf("nil image")
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			mat.SetUCharAt(y, x*3+0, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return mat, nil
}

// matToImage converts a BGR gocv.Mat back to a Go image.
func matToImage(mat gocv.Mat) (image.Image, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("empty mat")
	}
	h, w := mat.Rows(), mat.Cols()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b := mat.GetUCharAt(y, x*3+0)
			g := mat.GetUCharAt(y, x*3+1)
			r := mat.GetUCharAt(y, x*3+2)
			img.SetRGBA(x, y, color.RGBA{r, g, b, 255})
		}
	}
	return img, nil
}

// grayMatToImage converts a single-channel 8-bit Mat to a grayscale image.
func grayMatToImage(mat gocv.Mat) (image.Image, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("empty mat")
	}
	h, w := mat.Rows(), mat.Cols()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: mat.GetUCharAt(y, x)})
		}
	}
	return img, nil
}
