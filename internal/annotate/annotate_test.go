package annotate

import (
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/facedecode/internal/detector"
)

func TestDraw(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 64, 64, gocv.MatTypeCV8UC3)
	defer img.Close()

	lm := detector.FaceLandmarks{{20, 20}, {40, 20}, {30, 30}, {22, 40}, {38, 40}}
	dets := []detector.Detection{
		{BBox: detector.Rect{X1: 10, Y1: 10, X2: 50, Y2: 50}, Confidence: 0.9, Landmarks: &lm},
	}

	style := DefaultStyle()
	style.ShowConfidence = false
	style.Thickness = 1

	if err := Draw(&img, dets, style); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	// Mats are BGR.
	edge := img.GetVecbAt(10, 30)
	if edge[1] != 255 || edge[0] != 0 || edge[2] != 0 {
		t.Errorf("expected green box edge at (30,10), got %v", edge)
	}

	nose := img.GetVecbAt(30, 30)
	if nose[2] != 255 {
		t.Errorf("expected red landmark at (30,30), got %v", nose)
	}

	inside := img.GetVecbAt(45, 45)
	if inside[0] != 0 || inside[1] != 0 || inside[2] != 0 {
		t.Errorf("expected untouched pixel inside box, got %v", inside)
	}
}

func TestDraw_EmptyImage(t *testing.T) {
	img := gocv.NewMat()
	defer img.Close()

	if err := Draw(&img, nil, DefaultStyle()); err == nil {
		t.Error("expected error for empty image")
	}
	if err := Draw(nil, nil, DefaultStyle()); err == nil {
		t.Error("expected error for nil image")
	}
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")

	blank := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer blank.Close()
	if !gocv.IMWrite(in, blank) {
		t.Fatal("failed to write input image")
	}

	dets := []detector.Detection{{BBox: detector.Rect{X1: 5, Y1: 20, X2: 40, Y2: 45}, Confidence: 0.75}}
	if err := File(in, out, dets, DefaultStyle()); err != nil {
		t.Fatalf("File() error = %v", err)
	}

	result := gocv.IMRead(out, gocv.IMReadColor)
	defer result.Close()
	if result.Empty() {
		t.Fatal("expected annotated output image")
	}
	if result.Rows() != 48 || result.Cols() != 64 {
		t.Errorf("expected 64x48 output, got %dx%d", result.Cols(), result.Rows())
	}
	if px := result.GetVecbAt(20, 20); px[1] != 255 {
		t.Errorf("expected green box edge, got %v", px)
	}
}

func TestFile_MissingInput(t *testing.T) {
	dir := t.TempDir()
	err := File(filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.png"), nil, DefaultStyle())
	if err == nil {
		t.Error("expected error for missing input")
	}
}
