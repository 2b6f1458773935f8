package detector

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	detections []Detection
	err        error
	calls      int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetDetections sets the detections that will be returned by Detect.
func (m *MockDetector) SetDetections(detections []Detection) {
	m.detections = detections
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured detections or error.
func (m *MockDetector) Detect(frame *Frame, params Params) ([]Detection, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.detections, nil
}

// FixtureConfig returns the single-stride configuration the fixture frames
// are built for: stride 8 on a 16x16 input, i.e. a 2x2 grid of 4 anchors at
// (0,0), (8,0), (0,8) and (8,8).
func FixtureConfig() Config {
	cfg := DefaultConfig()
	cfg.InputSize = 16
	cfg.Strides = []int{8}
	cfg.Params = Params{
		ConfidenceThreshold: 0.5,
		IOUThreshold:        0.5,
		MinFaceSize:         5,
		ReturnLandmarks:     true,
	}
	return cfg
}

// fixtureOutput returns zeroed stride outputs with landmarks for rows anchors.
func fixtureOutput(rows int) StrideOutput {
	lm := Tensor{Rows: rows, Cols: 2 * NumLandmarks, Data: make([]float32, rows*2*NumLandmarks)}
	return StrideOutput{
		Boxes:     Tensor{Rows: rows, Cols: 4, Data: make([]float32, rows*4)},
		Scores:    Tensor{Rows: rows, Cols: 2, Data: make([]float32, rows*2)},
		Landmarks: &lm,
	}
}

// setRow fills one anchor row of a fixture output.
func setRow(out StrideOutput, row int, score float32, dist [4]float32, landmarks [2 * NumLandmarks]float32) {
	out.Scores.Data[row*2] = 1 - score
	out.Scores.Data[row*2+1] = score
	copy(out.Boxes.Row(row), dist[:])
	copy(out.Landmarks.Row(row), landmarks[:])
}

// SingleFaceFrame returns a 64x64 frame with one face at anchor (0,0):
// score 0.9, distances (10,10,10,10), scale 1. The other anchors score 0.1.
// Decoded with FixtureConfig it yields bbox (0,0,10,10).
func SingleFaceFrame() *Frame {
	out := fixtureOutput(4)
	setRow(out, 0, 0.9, [4]float32{10, 10, 10, 10}, [10]float32{-4, -3, 4, -3, 0, 0, -3, 4, 3, 4})
	for row := 1; row < 4; row++ {
		setRow(out, row, 0.1, [4]float32{10, 10, 10, 10}, [10]float32{})
	}

	return &Frame{
		Outputs:     []StrideOutput{out},
		ScaleFactor: 1,
		Width:       64,
		Height:      64,
	}
}

// OverlappingFacesFrame returns a 128x128 frame with two candidates whose
// boxes (0,0,100,100) and (0,0,100,90) have an IoU of 0.9, scored 0.8 and
// 0.6.
func OverlappingFacesFrame() *Frame {
	out := fixtureOutput(4)
	setRow(out, 0, 0.8, [4]float32{0, 0, 100, 100}, [10]float32{30, 40, 70, 40, 50, 60, 35, 80, 65, 80})
	setRow(out, 1, 0.6, [4]float32{8, 0, 92, 90}, [10]float32{22, 40, 62, 40, 42, 60, 27, 80, 57, 80})
	setRow(out, 2, 0.2, [4]float32{}, [10]float32{})
	setRow(out, 3, 0.2, [4]float32{}, [10]float32{})

	return &Frame{
		Outputs:     []StrideOutput{out},
		ScaleFactor: 1,
		Width:       128,
		Height:      128,
	}
}
