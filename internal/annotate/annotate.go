// Package annotate draws face detections onto images for inspection.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/facedecode/internal/detector"
)

// Style controls how detections are drawn.
type Style struct {
	BoxColor       color.RGBA
	LandmarkColor  color.RGBA
	Thickness      int
	LandmarkRadius int
	ShowConfidence bool
	FontScale      float64
}

// DefaultStyle returns green boxes with red landmarks and confidence labels.
func DefaultStyle() Style {
	return Style{
		BoxColor:       color.RGBA{R: 0, G: 255, B: 0, A: 0},
		LandmarkColor:  color.RGBA{R: 255, G: 0, B: 0, A: 0},
		Thickness:      2,
		LandmarkRadius: 2,
		ShowConfidence: true,
		FontScale:      0.5,
	}
}

// Draw renders dets onto img in place.
func Draw(img *gocv.Mat, dets []detector.Detection, style Style) error {
	if img == nil || img.Empty() {
		return fmt.Errorf("annotate: empty image")
	}

	for _, d := range dets {
		gocv.Rectangle(img, d.BBox.Rectangle(), style.BoxColor, style.Thickness)

		if d.Landmarks != nil {
			for _, p := range d.Landmarks {
				gocv.Circle(img, p.Point(), style.LandmarkRadius, style.LandmarkColor, -1)
			}
		}

		if style.ShowConfidence {
			label := fmt.Sprintf("%.2f", d.Confidence)
			org := image.Pt(d.BBox.X1, max(d.BBox.Y1-4, 12))
			gocv.PutText(img, label, org, gocv.FontHersheySimplex, style.FontScale, style.BoxColor, 1)
		}
	}

	return nil
}

// File reads the image at inPath, draws dets and writes the result to
// outPath. The output format follows the outPath extension.
func File(inPath, outPath string, dets []detector.Detection, style Style) error {
	img := gocv.IMRead(inPath, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return fmt.Errorf("read image %s: empty or unsupported", inPath)
	}

	if err := Draw(&img, dets, style); err != nil {
		return err
	}

	if ok := gocv.IMWrite(outPath, img); !ok {
		return fmt.Errorf("write image %s: failed", outPath)
	}
	return nil
}
