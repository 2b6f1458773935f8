package detector

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Detector defines the interface for face detection post-processors.
type Detector interface {
	// Detect decodes one frame of raw network outputs.
	// Returns an empty slice if no faces survive filtering.
	Detect(frame *Frame, params Params) ([]Detection, error)
}

// Params holds the per-call detection options.
type Params struct {
	// ConfidenceThreshold is the minimum face score (0.0-1.0).
	ConfidenceThreshold float32 `validate:"gte=0,lte=1"`

	// IOUThreshold is the overlap above which the lower scored box is
	// suppressed (0.0-1.0).
	IOUThreshold float32 `validate:"gte=0,lte=1"`

	// MinFaceSize is the minimum clipped width and height in pixels.
	// 0 disables size filtering.
	MinFaceSize int `validate:"gte=0"`

	// ReturnLandmarks enables landmark decoding when the model provides them.
	ReturnLandmarks bool
}

// Config holds configuration options for an SCRFD decoder.
type Config struct {
	// InputSize is the square network input resolution.
	InputSize int `validate:"gt=0"`

	// Strides lists the detection heads in output order.
	Strides []int `validate:"required,min=1,dive,gt=0"`

	// AnchorsPerLocation is the number of anchor rows per grid cell.
	AnchorsPerLocation int `validate:"gte=1"`

	// BatchWorkers bounds the concurrency of DetectBatch.
	BatchWorkers int `validate:"gte=1,lte=64"`

	// Params are the defaults used by callers that do not override them.
	Params Params
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		InputSize:          640,
		Strides:            []int{8, 16, 32},
		AnchorsPerLocation: 1,
		BatchWorkers:       4,
		Params: Params{
			ConfidenceThreshold: 0.5,
			IOUThreshold:        0.4,
			MinFaceSize:         20,
			ReturnLandmarks:     true,
		},
	}
}

var validate = validator.New()

// Validate checks the configuration, including the default Params.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks that thresholds and sizes are in range.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// SCRFD decodes outputs of an anchor-free SCRFD face detector.
// It is safe for concurrent use.
type SCRFD struct {
	config  Config
	grid    *AnchorGrid
	decoder *StrideDecoder
	pool    sync.Pool
}

// NewSCRFD validates config and precomputes the anchor grids of all strides.
func NewSCRFD(config Config) (*SCRFD, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	grid, err := NewAnchorGrid(config.InputSize, config.Strides, config.AnchorsPerLocation)
	if err != nil {
		return nil, err
	}

	d := &SCRFD{
		config:  config,
		grid:    grid,
		decoder: NewStrideDecoder(grid),
	}
	d.pool.New = func() any { return NewSuppressor() }

	return d, nil
}

// Config returns the decoder configuration.
func (d *SCRFD) Config() Config {
	return d.config
}

// Grid returns the precomputed anchor grid.
func (d *SCRFD) Grid() *AnchorGrid {
	return d.grid
}

// Detect decodes every stride of frame, merges the candidates, suppresses
// overlaps and returns the accepted detections by descending confidence.
func (d *SCRFD) Detect(frame *Frame, params Params) ([]Detection, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := d.checkFrame(frame); err != nil {
		return nil, err
	}

	perStride := make([][]Candidate, len(frame.Outputs))
	for i, out := range frame.Outputs {
		stride := d.config.Strides[i]
		candidates, err := d.decoder.Decode(out, stride, frame.ScaleFactor, params.ConfidenceThreshold, params.ReturnLandmarks)
		if err != nil {
			return nil, err
		}
		perStride[i] = candidates
	}

	candidates := Aggregate(perStride)
	if len(candidates) == 0 {
		return []Detection{}, nil
	}

	s := d.pool.Get().(*Suppressor)
	defer d.pool.Put(s)

	keep := s.Suppress(Boxes(candidates), Scores(candidates), params.IOUThreshold)

	return Assemble(candidates, keep, frame.Width, frame.Height, params.MinFaceSize, params.ReturnLandmarks), nil
}

func (d *SCRFD) checkFrame(frame *Frame) error {
	if frame == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidConfig)
	}
	scale := float64(frame.ScaleFactor)
	if !(scale > 0) || math.IsInf(scale, 0) {
		return fmt.Errorf("%w: scale factor %v", ErrInvalidConfig, frame.ScaleFactor)
	}
	if frame.Width < 0 || frame.Height < 0 {
		return fmt.Errorf("%w: image size %dx%d", ErrInvalidConfig, frame.Width, frame.Height)
	}
	if len(frame.Outputs) > len(d.config.Strides) {
		return fmt.Errorf("%w: %d stride outputs for %d configured strides", ErrShapeMismatch, len(frame.Outputs), len(d.config.Strides))
	}
	return nil
}
