package detector

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Tensor is a row-major 2D float32 matrix with one row per anchor.
type Tensor struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float32 `json:"data"`
}

// NewTensor wraps data as a rows×cols tensor.
func NewTensor(rows, cols int, data []float32) (Tensor, error) {
	t := Tensor{Rows: rows, Cols: cols, Data: data}
	if err := t.check(); err != nil {
		return Tensor{}, err
	}
	return t, nil
}

// Row returns the i-th row. It aliases the backing data.
func (t Tensor) Row(i int) []float32 {
	return t.Data[i*t.Cols : (i+1)*t.Cols]
}

func (t Tensor) check() error {
	if t.Rows < 0 || t.Cols < 0 {
		return fmt.Errorf("%w: negative tensor shape %dx%d", ErrShapeMismatch, t.Rows, t.Cols)
	}
	if len(t.Data) != t.Rows*t.Cols {
		return fmt.Errorf("%w: tensor %dx%d has %d values", ErrShapeMismatch, t.Rows, t.Cols, len(t.Data))
	}
	return nil
}

// StrideOutput groups the raw outputs of one detection head.
// Landmarks is nil when the model has no landmark branch.
type StrideOutput struct {
	Boxes     Tensor  `json:"boxes"`
	Scores    Tensor  `json:"scores"`
	Landmarks *Tensor `json:"landmarks,omitempty"`
}

// Frame is everything the decoder needs for one image: the per-stride
// outputs in configured stride order, the preprocessing scale factor and the
// original image size.
type Frame struct {
	Outputs     []StrideOutput
	ScaleFactor float32
	Width       int
	Height      int
}

// GroupOutputs groups a flat list of network outputs into per-stride sets.
// Accepted layouts are triples (boxes, scores, landmarks) per stride or pairs
// (boxes, scores) per stride, in stride order.
func GroupOutputs(tensors []Tensor, numStrides int) ([]StrideOutput, error) {
	if numStrides <= 0 {
		return nil, fmt.Errorf("%w: %d strides", ErrInvalidConfig, numStrides)
	}

	var width int
	switch len(tensors) {
	case 3 * numStrides:
		width = 3
	case 2 * numStrides:
		width = 2
	default:
		return nil, fmt.Errorf("%w: %d outputs for %d strides", ErrShapeMismatch, len(tensors), numStrides)
	}

	outputs := make([]StrideOutput, numStrides)
	for i := range outputs {
		base := i * width
		outputs[i] = StrideOutput{
			Boxes:  tensors[base],
			Scores: tensors[base+1],
		}
		if width == 3 {
			lm := tensors[base+2]
			outputs[i].Landmarks = &lm
		}
	}
	return outputs, nil
}

// TensorFromDense converts a float32 runtime tensor of shape [N, C] or
// [1, N, C] into a Tensor.
func TensorFromDense(d *tensor.Dense) (Tensor, error) {
	if d == nil {
		return Tensor{}, fmt.Errorf("%w: nil tensor", ErrShapeMismatch)
	}
	if d.Dtype() != tensor.Float32 {
		return Tensor{}, fmt.Errorf("%w: dtype %v, want float32", ErrShapeMismatch, d.Dtype())
	}

	shape := d.Shape()
	var rows, cols int
	switch {
	case len(shape) == 2:
		rows, cols = shape[0], shape[1]
	case len(shape) == 3 && shape[0] == 1:
		rows, cols = shape[1], shape[2]
	default:
		return Tensor{}, fmt.Errorf("%w: unsupported shape %v", ErrShapeMismatch, shape)
	}

	if d.RequiresIterator() {
		m, ok := d.Materialize().(*tensor.Dense)
		if !ok {
			return Tensor{}, fmt.Errorf("%w: cannot materialize view", ErrShapeMismatch)
		}
		d = m
	}

	data, ok := d.Data().([]float32)
	if !ok {
		return Tensor{}, fmt.Errorf("%w: unexpected backing type %T", ErrShapeMismatch, d.Data())
	}

	out := make([]float32, len(data))
	copy(out, data)
	return NewTensor(rows, cols, out)
}
