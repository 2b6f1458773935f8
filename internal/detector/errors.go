package detector

import "errors"

var (
	// ErrShapeMismatch is returned when tensor shapes disagree within a stride
	// or with the configured anchor layout. No partial output is produced.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidConfig is returned for out-of-range thresholds, sizes or
	// strides, and for frames with an unusable scale factor or dimensions.
	ErrInvalidConfig = errors.New("invalid config")
)
